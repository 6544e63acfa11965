package match

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrecon/mvmatch/internal/errors"
	"github.com/openrecon/mvmatch/internal/pairs"
)

func sampleMatches() Matches {
	return Matches{
		pairs.MakePair(0, 1): {{I: 3, J: 7}, {I: 4, J: 1}},
		pairs.MakePair(1, 2): nil,
		pairs.MakePair(0, 4): {{I: 0, J: 0}},
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matches.bin")
	want := sampleMatches()

	require.NoError(t, Save(want, path))
	got, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, want.PairCount(), got.PairCount())
	assert.Equal(t, want[pairs.MakePair(0, 1)], got[pairs.MakePair(0, 1)])
	assert.Equal(t, want[pairs.MakePair(0, 4)], got[pairs.MakePair(0, 4)])
	// The empty pair survives as an attempted pair with no correspondences.
	assert.Contains(t, got, pairs.MakePair(1, 2))
	assert.Empty(t, got[pairs.MakePair(1, 2)])
}

func TestStore_SaveIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.bin")
	b := filepath.Join(dir, "b.bin")

	m := sampleMatches()
	require.NoError(t, Save(m, a))
	require.NoError(t, Save(m, b))

	ab, err := os.ReadFile(a)
	require.NoError(t, err)
	bb, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, ab, bb)
}

func TestStore_SaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "matches.bin")
	require.NoError(t, Save(sampleMatches(), path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "matches.bin", entries[0].Name())
}

func TestStore_LoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.bin"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeFileNotFound, errors.GetCode(err))
}

func TestStore_LoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matches.bin")
	require.NoError(t, os.WriteFile(path, []byte("not a match file"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeFileCorrupt, errors.GetCode(err))
}

func TestStore_LoadTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matches.bin")
	require.NoError(t, Save(sampleMatches(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)/2], 0o644))

	_, err = Load(path)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeFileCorrupt, errors.GetCode(err))
}

func TestStore_Exists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "matches.bin")

	assert.False(t, Exists(path))
	require.NoError(t, Save(Matches{}, path))
	assert.True(t, Exists(path))
	// A directory at the output path does not count as a prior run.
	assert.False(t, Exists(dir))
}
