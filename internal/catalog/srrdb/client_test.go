package srrdb

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/predb-announcer/internal/release"
)

func TestScanDecodesCandidates(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{bodies: map[string]string{
		DefaultScanURL: `{"resultsCount":"3","results":[
			{"release":"Some.Game.NSW-VENOM","date":"2024-03-01 10:20:30","hasNFO":"yes"},
			{"release":"Other.Game.NSW-BigBlueBox","date":"bad","hasNFO":"no"},
			{"release":"","hasNFO":true},
			{"release":"Third.Game.NSW-SUXXORS","hasNFO":true}
		]}`,
	}}
	client, err := New(Config{}, fetcher)
	require.NoError(t, err)

	got, err := client.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "Some.Game.NSW-VENOM", got[0].Name)
	require.True(t, got[0].HasDocument)
	require.Equal(t, time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC), got[0].PublishedAt)
	require.False(t, got[1].HasDocument)
	require.True(t, got[1].PublishedAt.IsZero())
	require.True(t, got[2].HasDocument)
	require.Equal(t, []string{"SCN"}, fetcher.callers)
}

func TestScanPropagatesFetchFailure(t *testing.T) {
	t.Parallel()

	client, err := New(Config{ScanURL: "https://catalog.test/scan"}, &stubFetcher{})
	require.NoError(t, err)

	_, err = client.Scan(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "scan catalog")
}

func TestDetailsEscapesName(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{bodies: map[string]string{
		"https://catalog.test/details/Some.Game%20Edition.NSW-GRP": `{
			"name":"Some.Game Edition.NSW-GRP",
			"files":[{"name":"grp.nfo","size":1234,"crc":"AAAA0000"},{"name":"Proof/grp-proof.jpg","size":99,"crc":"BBBB"}],
			"archived-files":[{"name":"game.nsp","size":1536,"crc":"DEADBEEF"}]
		}`,
	}}
	client, err := New(Config{DetailsURL: "https://catalog.test/details/{release_name}"}, fetcher)
	require.NoError(t, err)

	details, err := client.Details(context.Background(), "Some.Game Edition.NSW-GRP")
	require.NoError(t, err)
	require.Len(t, details.Files, 2)
	require.Equal(t, "grp.nfo", details.Files[0].Name)
	require.Equal(t, int64(1536), details.ArchivedFiles[0].Size)
	require.Equal(t, "DEADBEEF", details.ArchivedFiles[0].CRC)
}

func TestFileURL(t *testing.T) {
	t.Parallel()

	client, err := New(Config{}, &stubFetcher{})
	require.NoError(t, err)
	require.Equal(t,
		"https://www.srrdb.com/download/file/Some.Game.NSW-GRP/Proof%2Fproof.jpg",
		client.FileURL("Some.Game.NSW-GRP", "Proof/proof.jpg"),
	)
}

func TestNewRequiresFetcher(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, nil)
	require.Error(t, err)
}

func TestFlexBool(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		`true`:  true,
		`false`: false,
		`"yes"`: true,
		`"no"`:  false,
		`"1"`:   true,
		`""`:    false,
	}
	for raw, want := range tests {
		var b flexBool
		require.NoError(t, json.Unmarshal([]byte(raw), &b), raw)
		require.Equal(t, want, bool(b), raw)
	}

	var b flexBool
	require.Error(t, json.Unmarshal([]byte(`{}`), &b))
}

type stubFetcher struct {
	bodies  map[string]string
	callers []string
}

func (s *stubFetcher) FetchBytes(_ context.Context, caller string, url string) ([]byte, error) {
	s.callers = append(s.callers, caller)
	body, ok := s.bodies[url]
	if !ok {
		return nil, errors.New("not found: " + url)
	}
	return []byte(body), nil
}

func (s *stubFetcher) FetchJSON(ctx context.Context, caller string, url string, out any) error {
	body, err := s.FetchBytes(ctx, caller, url)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

var _ release.Fetcher = (*stubFetcher)(nil)
