package dedup

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/predb-announcer/internal/hash/sha256"
	"github.com/JakeFAU/predb-announcer/internal/release"
)

func candidates(names ...string) []release.Candidate {
	out := make([]release.Candidate, 0, len(names))
	for _, name := range names {
		out = append(out, release.Candidate{Name: name, HasDocument: true})
	}
	return out
}

func TestFilterColdStartSuppressesFirstScan(t *testing.T) {
	t.Parallel()

	d := New(sha256.New(), true)
	fresh, stats, err := d.Filter(candidates("A-GRP", "B-GRP", "C-GRP"))
	require.NoError(t, err)
	require.Empty(t, fresh)
	require.Equal(t, 3, stats.Bootstrapped)
	require.Equal(t, 3, d.Len())

	fresh, stats, err = d.Filter(candidates("D-GRP", "A-GRP", "B-GRP"))
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	require.Equal(t, "D-GRP", fresh[0].Name)
	require.Equal(t, Stats{New: 1, Seen: 2}, stats)
}

func TestFilterEmptyScanKeepsBootstrapPending(t *testing.T) {
	t.Parallel()

	d := New(sha256.New(), true)
	fresh, _, err := d.Filter(nil)
	require.NoError(t, err)
	require.Empty(t, fresh)

	fresh, stats, err := d.Filter(candidates("A-GRP"))
	require.NoError(t, err)
	require.Empty(t, fresh)
	require.Equal(t, 1, stats.Bootstrapped)
}

func TestFilterWithoutBootstrapYieldsFirstScan(t *testing.T) {
	t.Parallel()

	d := New(sha256.New(), false)
	fresh, stats, err := d.Filter(candidates("A-GRP", "B-GRP"))
	require.NoError(t, err)
	require.Len(t, fresh, 2)
	require.Equal(t, 2, stats.New)
}

func TestFilterIdenticalNamesCollapse(t *testing.T) {
	t.Parallel()

	d := New(sha256.New(), false)
	fresh, stats, err := d.Filter(candidates("A-GRP", "A-GRP", "A-GRP"))
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	require.Equal(t, Stats{New: 1, Seen: 2}, stats)

	fresh, _, err = d.Filter(candidates("A-GRP"))
	require.NoError(t, err)
	require.Empty(t, fresh)
}

func TestIsNewRecordsKey(t *testing.T) {
	t.Parallel()

	d := New(sha256.New(), false)
	key, err := d.Key("A-GRP")
	require.NoError(t, err)
	require.True(t, d.IsNew(key))
	require.False(t, d.IsNew(key))
}

func TestFilterHashError(t *testing.T) {
	t.Parallel()

	d := New(failingHasher{}, false)
	_, _, err := d.Filter(candidates("A-GRP"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "hash release name")
}

type failingHasher struct{}

func (failingHasher) Hash([]byte) (string, error) {
	return "", errors.New("hash failure")
}
