// Package storage is a small pebble-backed blob store keyed by KSUID.
// Values are snappy-compressed on write.
package storage

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/golang/snappy"
	"github.com/segmentio/ksuid"
)

// ErrNotFound is returned for an id with no stored value.
var ErrNotFound = errors.New("not found")

// Options configures a DefaultStorage.
type Options struct {
	// Sync makes every write durable before returning.
	Sync bool
}

type DefaultStorage struct {
	db        *pebble.DB
	writeOpts *pebble.WriteOptions
}

func NewDefaultStorage(path string, opts Options) (*DefaultStorage, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open storage at %s: %w", path, err)
	}
	s := &DefaultStorage{db: db, writeOpts: pebble.NoSync}
	if opts.Sync {
		s.writeOpts = pebble.Sync
	}
	return s, nil
}

// Create stores data under a new id.
func (s *DefaultStorage) Create(data []byte) (ksuid.KSUID, error) {
	id := ksuid.New()
	if err := s.db.Set(id.Bytes(), snappy.Encode(nil, data), s.writeOpts); err != nil {
		return ksuid.Nil, err
	}
	return id, nil
}

func (s *DefaultStorage) Read(id ksuid.KSUID) ([]byte, error) {
	raw, closer, err := s.db.Get(id.Bytes())
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	return decode(raw)
}

// Update replaces the value stored under an existing id.
func (s *DefaultStorage) Update(id ksuid.KSUID, data []byte) error {
	if _, err := s.Read(id); err != nil {
		return err
	}
	return s.db.Set(id.Bytes(), snappy.Encode(nil, data), s.writeOpts)
}

func (s *DefaultStorage) Delete(id ksuid.KSUID) error {
	if _, err := s.Read(id); err != nil {
		return err
	}
	return s.db.Delete(id.Bytes(), s.writeOpts)
}

// Scan calls fn for every stored value in id order. KSUIDs sort by creation
// time at one-second resolution. Iteration stops at the first error fn
// returns.
func (s *DefaultStorage) Scan(fn func(id ksuid.KSUID, data []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		id, err := ksuid.FromBytes(iter.Key())
		if err != nil {
			return fmt.Errorf("bad key %x: %w", iter.Key(), err)
		}
		data, err := decode(iter.Value())
		if err != nil {
			return fmt.Errorf("bad value for %s: %w", id, err)
		}
		if err := fn(id, data); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (s *DefaultStorage) Close() error {
	return s.db.Close()
}

// decode decompresses raw into a fresh slice, so the result outlives the
// pebble buffer it came from.
func decode(raw []byte) ([]byte, error) {
	data, err := snappy.Decode(nil, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress value: %w", err)
	}
	return data, nil
}
