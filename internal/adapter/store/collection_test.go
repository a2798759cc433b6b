package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"importrag/config"
	"importrag/internal/port"
)

func openTestCollection(t *testing.T, path string) *BoltCollection {
	t.Helper()
	c, err := OpenCollection(path, 2)
	require.NoError(t, err)
	return c
}

func item(id, source string, v ...float32) port.CollectionItem {
	return port.CollectionItem{
		ID:       id,
		Vector:   v,
		Text:     "text of " + id,
		Metadata: map[string]string{MetaSource: source},
	}
}

func TestCollectionQueryOrdersByDistance(t *testing.T) {
	c := openTestCollection(t, filepath.Join(t.TempDir(), "c.db"))
	defer c.Close()

	require.NoError(t, c.Upsert([]port.CollectionItem{
		item("far", "a.txt", 3, 0),
		item("near", "a.txt", 1, 0),
		item("exact", "b.txt", 0, 0),
	}))

	hits, err := c.Query([]float32{0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "exact", hits[0].ID)
	assert.Equal(t, 0.0, hits[0].Distance)
	assert.Equal(t, "near", hits[1].ID)
	assert.Equal(t, 1.0, hits[1].Distance)
	assert.Equal(t, "text of near", hits[1].Text)
	assert.Equal(t, "a.txt", hits[1].Metadata[MetaSource])

	hits, err = c.Query([]float32{0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 3)
	assert.Equal(t, 9.0, hits[2].Distance)
}

func TestCollectionTiesOrderedByID(t *testing.T) {
	c := openTestCollection(t, filepath.Join(t.TempDir(), "c.db"))
	defer c.Close()

	require.NoError(t, c.Upsert([]port.CollectionItem{
		item("b", "x", 1, 0),
		item("a", "x", 0, 1),
	}))

	hits, err := c.Query([]float32{0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ID)
	assert.Equal(t, "b", hits[1].ID)
}

func TestCollectionUpsertIsIdempotent(t *testing.T) {
	c := openTestCollection(t, filepath.Join(t.TempDir(), "c.db"))
	defer c.Close()

	items := []port.CollectionItem{item("k1", "a.txt", 1, 1), item("k2", "a.txt", 2, 2)}
	require.NoError(t, c.Upsert(items))
	require.NoError(t, c.Upsert(items))

	n, err := c.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ids, err := c.SourceIDs("a.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k2"}, ids)
}

func TestCollectionRejectsDimensionMismatch(t *testing.T) {
	c := openTestCollection(t, filepath.Join(t.TempDir(), "c.db"))
	defer c.Close()

	err := c.Upsert([]port.CollectionItem{item("ok", "a", 1, 1), item("bad", "a", 1, 1, 1)})
	assert.Error(t, err)

	// the failed batch left nothing behind
	n, _ := c.Count()
	assert.Equal(t, 0, n)

	_, err = c.Query([]float32{1}, 1)
	assert.Error(t, err)
}

func TestCollectionPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.db")
	c := openTestCollection(t, path)
	require.NoError(t, c.Upsert([]port.CollectionItem{item("k1", "a.txt", 1, 0)}))
	require.NoError(t, c.Close())

	c = openTestCollection(t, path)
	defer c.Close()

	hits, err := c.Query([]float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "k1", hits[0].ID)
	assert.Equal(t, "text of k1", hits[0].Text)
}

func TestCollectionDeleteAndSourceIndex(t *testing.T) {
	c := openTestCollection(t, filepath.Join(t.TempDir(), "c.db"))
	defer c.Close()

	require.NoError(t, c.Upsert([]port.CollectionItem{
		item("a1", "a.txt", 1, 0),
		item("a2", "a.txt", 2, 0),
		item("ab", "ab.txt", 3, 0),
	}))

	ids, err := c.SourceIDs("a.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, ids)

	require.NoError(t, c.Delete([]string{"a1", "missing"}))

	ids, err = c.SourceIDs("a.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"a2"}, ids)
	assert.Equal(t, map[string]int{"a.txt": 1, "ab.txt": 1}, c.CountBySource())
}

func TestCollectionClear(t *testing.T) {
	c := openTestCollection(t, filepath.Join(t.TempDir(), "c.db"))
	defer c.Close()

	require.NoError(t, c.Upsert([]port.CollectionItem{item("a1", "a.txt", 1, 0)}))
	require.NoError(t, c.Clear())

	n, _ := c.Count()
	assert.Equal(t, 0, n)
	ids, err := c.SourceIDs("a.txt")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestPrepareClearsOnConfigChange(t *testing.T) {
	c := openTestCollection(t, filepath.Join(t.TempDir(), "c.db"))
	defer c.Close()

	cfg := config.DefaultConfig()
	cleared, _, err := c.Prepare(cfg)
	require.NoError(t, err)
	assert.False(t, cleared)

	require.NoError(t, c.Upsert([]port.CollectionItem{item("a1", "a.txt", 1, 0)}))

	cleared, _, err = c.Prepare(cfg)
	require.NoError(t, err)
	assert.False(t, cleared)
	n, _ := c.Count()
	assert.Equal(t, 1, n)

	cfg.Embedding.Model = "nomic-embed-text"
	cleared, reason, err := c.Prepare(cfg)
	require.NoError(t, err)
	assert.True(t, cleared)
	assert.Equal(t, "embedding configuration changed", reason)
	n, _ = c.Count()
	assert.Equal(t, 0, n)

	info, err := c.GetSchemaInfo()
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, info.Version)
	assert.Equal(t, ComputeConfigHash(cfg), info.ConfigHash)
}
