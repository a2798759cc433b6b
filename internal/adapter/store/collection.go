package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.etcd.io/bbolt"

	"importrag/internal/port"
)

var (
	bucketEntries = []byte("entries")
	bucketSources = []byte("sources")
	bucketMeta    = []byte("meta")
)

// MetaSource is the metadata key the source index is built from.
const MetaSource = "source"

// BoltCollection is a persistent vector collection backed by BoltDB.
// Search is brute force over an in-memory copy of every entry.
type BoltCollection struct {
	db        *bbolt.DB
	dimension int
	mu        sync.RWMutex
	entries   map[string]entry
}

type entry struct {
	vector   []float32
	text     string
	metadata map[string]string
}

type storedEntry struct {
	Vector   []float32         `json:"v"`
	Text     string            `json:"t"`
	Metadata map[string]string `json:"m,omitempty"`
}

// OpenCollection opens (or creates) the collection file at path.
func OpenCollection(path string, dimension int) (*BoltCollection, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketEntries, bucketSources, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	c := &BoltCollection{
		db:        db,
		dimension: dimension,
		entries:   make(map[string]entry),
	}
	if err := c.load(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}
	return c, nil
}

func (c *BoltCollection) load() error {
	return c.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEntries).ForEach(func(k, v []byte) error {
			var stored storedEntry
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // Skip corrupted entries
			}
			c.entries[string(k)] = entry{
				vector:   stored.Vector,
				text:     stored.Text,
				metadata: stored.Metadata,
			}
			return nil
		})
	})
}

func (c *BoltCollection) Dimension() int {
	return c.dimension
}

// Upsert writes all items in one transaction. An existing ID is overwritten, so writing
// the same items twice leaves the collection unchanged.
func (c *BoltCollection) Upsert(items []port.CollectionItem) error {
	if len(items) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.db.Update(func(tx *bbolt.Tx) error {
		entries := tx.Bucket(bucketEntries)
		sources := tx.Bucket(bucketSources)

		for _, item := range items {
			if len(item.Vector) != c.dimension {
				return fmt.Errorf("vector dimension mismatch: expected %d, got %d", c.dimension, len(item.Vector))
			}

			if prev := entries.Get([]byte(item.ID)); prev != nil {
				var old storedEntry
				if json.Unmarshal(prev, &old) == nil {
					if err := sources.Delete(sourceKey(old.Metadata[MetaSource], item.ID)); err != nil {
						return err
					}
				}
			}

			data, err := json.Marshal(storedEntry{
				Vector:   item.Vector,
				Text:     item.Text,
				Metadata: item.Metadata,
			})
			if err != nil {
				return err
			}
			if err := entries.Put([]byte(item.ID), data); err != nil {
				return err
			}
			if err := sources.Put(sourceKey(item.Metadata[MetaSource], item.ID), nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, item := range items {
		c.entries[item.ID] = entry{
			vector:   item.Vector,
			text:     item.Text,
			metadata: item.Metadata,
		}
	}
	return nil
}

// Query returns the k entries nearest to vector by squared Euclidean distance.
// Equal distances are ordered by ID.
func (c *BoltCollection) Query(vector []float32, k int) ([]port.CollectionHit, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(vector) != c.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", c.dimension, len(vector))
	}
	if k <= 0 || len(c.entries) == 0 {
		return nil, nil
	}

	hits := make([]port.CollectionHit, 0, len(c.entries))
	for id, e := range c.entries {
		hits = append(hits, port.CollectionHit{
			ID:       id,
			Text:     e.text,
			Metadata: e.metadata,
			Distance: squaredL2(vector, e.vector),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Delete removes entries by ID. Unknown IDs are ignored.
func (c *BoltCollection) Delete(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.db.Update(func(tx *bbolt.Tx) error {
		entries := tx.Bucket(bucketEntries)
		sources := tx.Bucket(bucketSources)
		for _, id := range ids {
			if e, ok := c.entries[id]; ok {
				if err := sources.Delete(sourceKey(e.metadata[MetaSource], id)); err != nil {
					return err
				}
			}
			if err := entries.Delete([]byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, id := range ids {
		delete(c.entries, id)
	}
	return nil
}

// SourceIDs lists the IDs stored for a source, in key order.
func (c *BoltCollection) SourceIDs(source string) ([]string, error) {
	var ids []string
	prefix := sourceKey(source, "")
	err := c.db.View(func(tx *bbolt.Tx) error {
		cur := tx.Bucket(bucketSources).Cursor()
		for k, _ := cur.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = cur.Next() {
			ids = append(ids, string(k[len(prefix):]))
		}
		return nil
	})
	return ids, err
}

func (c *BoltCollection) Count() (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries), nil
}

// CountBySource returns entry counts per source.
func (c *BoltCollection) CountBySource() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	counts := make(map[string]int)
	for _, e := range c.entries {
		counts[e.metadata[MetaSource]]++
	}
	return counts
}

// Clear removes every entry but keeps schema metadata.
func (c *BoltCollection) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketEntries, bucketSources} {
			if err := tx.DeleteBucket(name); err != nil && err != bbolt.ErrBucketNotFound {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.entries = make(map[string]entry)
	return nil
}

func (c *BoltCollection) Close() error {
	return c.db.Close()
}

func sourceKey(source, id string) []byte {
	return []byte(source + "\x00" + id)
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
