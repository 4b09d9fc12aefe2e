package sha256

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/predb-announcer/internal/release"
)

var _ release.Hasher = New()

func TestReleaseNamesMapToStableKeys(t *testing.T) {
	t.Parallel()

	h := New()
	base, err := h.Hash([]byte("Some.Game.NSW-VENOM"))
	require.NoError(t, err)
	require.Len(t, base, 64)

	again, err := h.Hash([]byte("Some.Game.NSW-VENOM"))
	require.NoError(t, err)
	require.Equal(t, base, again)

	update, err := h.Hash([]byte("Some.Game.Update.v65536.NSW-VENOM"))
	require.NoError(t, err)
	require.NotEqual(t, base, update)

	cased, err := h.Hash([]byte("some.game.nsw-venom"))
	require.NoError(t, err)
	require.NotEqual(t, base, cased)
}

func TestEmptyNameHasKnownKey(t *testing.T) {
	t.Parallel()

	got, err := New().Hash(nil)
	require.NoError(t, err)
	require.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", got)
}
