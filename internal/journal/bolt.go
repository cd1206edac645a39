package journal

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"qclctl/internal/logger"
	"qclctl/internal/protocol"

	"go.etcd.io/bbolt"
)

var exchangesBucket = []byte("exchanges")

// Store persists entries in a BoltDB file, keyed by a big endian sequence number.
type Store struct {
	db         *bbolt.DB
	maxEntries int
	log        logger.Logger
}

var _ Journal = (*Store)(nil)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithMaxEntries prunes the oldest entries once the store holds more than n.
func WithMaxEntries(n int) StoreOption {
	return func(s *Store) { s.maxEntries = n }
}

// WithStoreLogger sets the logger for write failures, which Record cannot return.
func WithStoreLogger(l logger.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// OpenStore opens or creates the journal database at path.
func OpenStore(path string, opts ...StoreOption) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("journal: create %s: %w", dir, err)
		}
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(exchangesBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: init %s: %w", path, err)
	}

	s := &Store{db: db, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "journal", "path", path)
	return s, nil
}

// Record appends ex. Failures are logged, never returned to the engine.
func (s *Store) Record(ex protocol.Exchange) {
	if err := s.Append(FromExchange(ex)); err != nil {
		s.log.Error("failed to record exchange", "id", ex.ID, "error", err)
	}
}

// Append stores e under the next sequence number.
func (s *Store) Append(e Entry) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(exchangesBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		e.Seq = seq
		data, err := encodeEntry(e)
		if err != nil {
			return err
		}
		if err := b.Put(seqKey(seq), data); err != nil {
			return err
		}
		if s.maxEntries > 0 && seq > uint64(s.maxEntries) {
			return prune(b, seq-uint64(s.maxEntries))
		}
		return nil
	})
}

// prune deletes every entry with a sequence number up to and including last.
func prune(b *bbolt.Bucket, last uint64) error {
	var stale [][]byte
	c := b.Cursor()
	for k, _ := c.First(); k != nil && binary.BigEndian.Uint64(k) <= last; k, _ = c.Next() {
		stale = append(stale, append([]byte(nil), k...))
	}
	for _, k := range stale {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// List returns up to limit of the newest entries, oldest first. limit <= 0 returns all.
func (s *Store) List(limit int) ([]Entry, error) {
	var out []Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(exchangesBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(out) >= limit {
				break
			}
			e, err := decodeEntry(v)
			if err != nil {
				return fmt.Errorf("journal: entry %d: %w", binary.BigEndian.Uint64(k), err)
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
