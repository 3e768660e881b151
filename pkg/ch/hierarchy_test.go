package ch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHierarchySaveLoad(t *testing.T) {
	g := gridGraph(t, 3)
	h := build(t, g, quietOptions())

	dir := filepath.Join(t.TempDir(), "nested", "ch")
	require.NoError(t, h.Save(dir))
	for _, name := range []string{UpFile, DownFile, RemainderFile, OrderFile, QueueFile} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, h.BuildID, got.BuildID)
	assert.Equal(t, h.Order, got.Order)
	assert.Empty(t, got.Queue)
	assert.True(t, got.Complete())
	assert.Equal(t, edgeSet(h.Up), edgeSet(got.Up))
	assert.Equal(t, edgeSet(h.Down), edgeSet(got.Down))
	requireDistancesPreserved(t, g, got)
}

func TestLoadRejectsMixedBuilds(t *testing.T) {
	g := gridGraph(t, 2)
	dirA, dirB := t.TempDir(), t.TempDir()
	require.NoError(t, build(t, g, quietOptions()).Save(dirA))
	require.NoError(t, build(t, g, quietOptions()).Save(dirB))

	order, err := os.ReadFile(filepath.Join(dirB, OrderFile))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dirA, OrderFile), order, 0o644))

	_, err = Load(dirA)
	assert.ErrorIs(t, err, ErrMismatch)
}

func TestLoadRejectsArtifactsFromAnotherSave(t *testing.T) {
	opt := quietOptions()
	opt.MaxContract = 3
	b, err := NewBuilder(gridGraph(t, 3), opt)
	require.NoError(t, err)

	require.NoError(t, b.Run(context.Background()))
	older := t.TempDir()
	require.NoError(t, b.Hierarchy().Save(older))

	require.NoError(t, b.Run(context.Background()))
	dir := t.TempDir()
	require.NoError(t, b.Hierarchy().Save(dir))

	// A save interrupted after renaming only some artifacts.
	for _, name := range []string{RemainderFile, QueueFile} {
		data, err := os.ReadFile(filepath.Join(older, name))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}

	_, err = Load(dir)
	assert.ErrorIs(t, err, ErrMismatch)

	_, err = Load(older)
	assert.NoError(t, err)
}

func TestSavedQueueRoundTrip(t *testing.T) {
	opt := quietOptions()
	opt.MaxContract = 4
	b, err := NewBuilder(gridGraph(t, 3), opt)
	require.NoError(t, err)
	require.NoError(t, b.Run(context.Background()))
	h := b.Hierarchy()

	dir := t.TempDir()
	require.NoError(t, h.Save(dir))
	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, h.Queue, got.Queue)
	assert.Len(t, got.Queue, got.Remainder.NumVertices())
}

func TestLoadRejectsSwappedArtifacts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, build(t, gridGraph(t, 2), quietOptions()).Save(dir))

	up := filepath.Join(dir, UpFile)
	down := filepath.Join(dir, DownFile)
	tmp := filepath.Join(dir, "swap")
	require.NoError(t, os.Rename(up, tmp))
	require.NoError(t, os.Rename(down, up))
	require.NoError(t, os.Rename(tmp, down))

	_, err := Load(dir)
	assert.ErrorIs(t, err, ErrMismatch)
}

func TestLoadMissingArtifact(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, build(t, gridGraph(t, 2), quietOptions()).Save(dir))
	require.NoError(t, os.Remove(filepath.Join(dir, RemainderFile)))

	_, err := Load(dir)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestHierarchyRank(t *testing.T) {
	h := build(t, linkGraph(t, "A", "B", 1, "B", "C", 1), quietOptions())
	r, ok := h.Rank("B")
	assert.True(t, ok)
	assert.Zero(t, r)
	r, _ = h.Rank("C")
	assert.Equal(t, 2, r)
	_, ok = h.Rank("Z")
	assert.False(t, ok)
}
