// Package kv provides a key-value store with hierarchical keys. Keys are
// string slices (e.g. ["conversion", "8f0c..."]) joined with ':' for
// storage.
//
// Badger persists to disk (or memory, for tests); Memory is a map-backed
// store for unit tests.
package kv

import (
	"context"
	"errors"
	"iter"
	"strings"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("kv: not found")

// Separator joins key segments in the encoded key.
const Separator = ':'

// Key is a hierarchical path. Segments must not contain Separator.
type Key []string

// String returns the encoded form of k.
func (k Key) String() string {
	return strings.Join(k, string(Separator))
}

func (k Key) encode() []byte {
	return []byte(k.String())
}

// prefix returns the encoded prefix matching keys below k. The trailing
// separator keeps "a:b" from matching "a:bc".
func (k Key) prefix() []byte {
	if len(k) == 0 {
		return nil
	}
	return append(k.encode(), Separator)
}

func decodeKey(b []byte) Key {
	return Key(strings.Split(string(b), string(Separator)))
}

// Entry is a key-value pair returned by List.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is a key-value store.
type Store interface {
	// Get returns the value of key, or ErrNotFound.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set stores value under key, replacing any existing value.
	Set(ctx context.Context, key Key, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key Key) error

	// BatchDelete removes keys in one write. Missing keys are ignored.
	BatchDelete(ctx context.Context, keys []Key) error

	// List iterates over the entries below prefix in lexicographic key
	// order.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	// Close releases the store.
	Close() error
}
