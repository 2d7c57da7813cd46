package sessionclient

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Entry is the locally buffered answer to one question.
type Entry struct {
	Response string    `json:"response"`
	Version  uint64    `json:"version"`
	SavedAt  time.Time `json:"saved_at"`
	Synced   bool      `json:"synced"`
}

// Buffer keeps answers on disk until the server has acknowledged them.
// Each test link gets its own bucket keyed by question ID.
type Buffer struct {
	db *bolt.DB
}

func OpenBuffer(path string) (*Buffer, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open answer buffer: %w", err)
	}
	return &Buffer{db: db}, nil
}

func (b *Buffer) Close() error {
	return b.db.Close()
}

func questionKey(questionID uint) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(questionID))
	return key
}

// Put stores value as the latest, not yet synced, answer and returns its version.
// Versions grow monotonically per test link.
func (b *Buffer) Put(testLink string, questionID uint, value string, at time.Time) (uint64, error) {
	var version uint64
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(testLink))
		if err != nil {
			return err
		}
		version, err = bucket.NextSequence()
		if err != nil {
			return err
		}
		raw, err := json.Marshal(Entry{Response: value, Version: version, SavedAt: at})
		if err != nil {
			return err
		}
		return bucket.Put(questionKey(questionID), raw)
	})
	return version, err
}

// MarkSynced flags the entry as acknowledged, unless a newer version replaced it meanwhile.
func (b *Buffer) MarkSynced(testLink string, questionID uint, version uint64) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(testLink))
		if bucket == nil {
			return nil
		}
		raw := bucket.Get(questionKey(questionID))
		if raw == nil {
			return nil
		}
		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return err
		}
		if entry.Version != version || entry.Synced {
			return nil
		}
		entry.Synced = true
		updated, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return bucket.Put(questionKey(questionID), updated)
	})
}

func (b *Buffer) Get(testLink string, questionID uint) (Entry, bool, error) {
	var entry Entry
	found := false
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(testLink))
		if bucket == nil {
			return nil
		}
		raw := bucket.Get(questionKey(questionID))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &entry)
	})
	return entry, found, err
}

// All returns every buffered answer of the test link.
func (b *Buffer) All(testLink string) (map[uint]Entry, error) {
	out := make(map[uint]Entry)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(testLink))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			out[uint(binary.BigEndian.Uint64(k))] = entry
			return nil
		})
	})
	return out, err
}

// Pending returns the answers the server has not acknowledged yet.
func (b *Buffer) Pending(testLink string) (map[uint]Entry, error) {
	all, err := b.All(testLink)
	if err != nil {
		return nil, err
	}
	for id, entry := range all {
		if entry.Synced {
			delete(all, id)
		}
	}
	return all, nil
}

// Clear drops everything buffered for the test link.
func (b *Buffer) Clear(testLink string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(testLink)) == nil {
			return nil
		}
		return tx.DeleteBucket([]byte(testLink))
	})
}
