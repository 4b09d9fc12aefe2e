package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/predb-announcer/internal/release"
)

type sequentialIDs struct{ n int }

func (s *sequentialIDs) NewID() (string, error) {
	s.n++
	return fmt.Sprintf("id-%03d", s.n), nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func openStore(t *testing.T, path string) *ReleaseStore {
	t.Helper()
	store, err := Open(context.Background(), path, &sequentialIDs{}, fixedClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })
	return store
}

func TestStoreAndListRoundTrip(t *testing.T) {
	t.Parallel()

	store := openStore(t, ":memory:")
	ctx := context.Background()

	withProof := release.Record{
		Title:        "Some.Game.NSW-VENOM",
		TitleID:      "0100000000010000",
		MaskedID:     "0100000000010000",
		Size:         "1.5 GiB",
		CRC:          "DEADBEEF",
		ProofURL:     "https://files.test/proof.jpg",
		DocumentURL:  "https://img.test/u/Some.Game.NSW-VENOM.jpeg",
		ThumbnailURL: "https://tinfoil.media/ti/0100000000010000/1024/1024/",
		Media:        []release.MediaUpload{{URL: "https://files.test/proof.jpg", MediaID: "9"}},
	}
	withoutProof := withProof
	withoutProof.Title = "Some.Game.Update.NSW-VENOM"
	withoutProof.ProofURL = ""
	withoutProof.Media = nil

	require.NoError(t, store.StoreRecord(ctx, withProof))
	require.NoError(t, store.StoreRecord(ctx, withoutProof))

	stored, err := store.ListByTitleID(ctx, "0100000000010000")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	require.Equal(t, "id-001", stored[0].ID)
	require.Equal(t, withProof, stored[0].Record)
	require.Equal(t, withoutProof, stored[1].Record)
	require.True(t, stored[1].CreatedAt.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)))

	none, err := store.ListByTitleID(ctx, "0100FFFFFFFF0000")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestOpenCreatesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "predb.db")
	store := openStore(t, path)
	require.NoError(t, store.StoreRecord(context.Background(), release.Record{Title: "A-B", TitleID: "x"}))
	require.FileExists(t, path)
}

func TestOpenValidation(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "", &sequentialIDs{}, fixedClock{})
	require.Error(t, err)
	_, err = Open(context.Background(), ":memory:", nil, fixedClock{})
	require.Error(t, err)
}
