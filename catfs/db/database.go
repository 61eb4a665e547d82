package db

import (
	"encoding/gob"
	"errors"
	"io"
	"sort"
	"strings"
)

var (
	// ErrNoSuchKey is returned when Get() was passed a non-existent key
	ErrNoSuchKey = errors.New("This key does not exist")
)

// Batch is an API object used to model a transaction.
type Batch interface {
	// Put sets `val` at `key`.
	Put(val []byte, key ...string)

	// Clear all contents below and including `key`.
	Clear(key ...string) error

	// Erase a key from the database.
	Erase(key ...string)

	// Flush the batch to the database.
	// Only now, all changes will be written to disk.
	Flush() error

	// Rollback will forget all changes without executing them.
	// It also ends all nested batches.
	Rollback()

	// HaveWrites returns true when the batch contains something
	// we can write to the disk on Flush().
	HaveWrites() bool
}

// Database is a key/value store. Keys are a list of strings
// (similar to a path), values are arbitrary untyped data.
// Key parts may not contain a slash.
type Database interface {
	// Get retrieves the value at `key`.
	// If no such key exists, it will return (nil, ErrNoSuchKey)
	// If a batch is currently open, Get() shall still return the
	// most current value set by the last Put() call to `key`.
	Get(key ...string) ([]byte, error)

	// Keys returns all keys below `prefix`, sorted lexically.
	Keys(prefix ...string) ([][]string, error)

	// Batch returns a new Batch object, that will allow modifications
	// of the state. Batch() can be called recursive: The changes will
	// only be flushed to disk if batch.Flush() was called equal times
	// to the number Batch() was called.
	Batch() Batch

	// Export backups all database content to `w` in
	// an implemenation specific format that can be read by Import.
	Export(w io.Writer) error

	// Import reads a previously exported db dump by Export from `r`.
	// Existing keys might be overwritten if the dump also contains them.
	Import(r io.Reader) error

	// Close closes the database. Since I/O may happen, an error is returned.
	Close() error

	// Glob finds all existing keys in the store, where all but the last
	// part equal `prefix` and the last part starts with the last part of
	// `prefix`. It does not descend into deeper keys.
	Glob(prefix []string) ([][]string, error)
}

const keySep = "/"

func joinKey(key []string) string {
	return strings.Join(key, keySep)
}

func splitKey(key string) []string {
	return strings.Split(key, keySep)
}

// hasKeyPrefix checks if `key` equals `prefix` or is nested below it.
func hasKeyPrefix(key, prefix string) bool {
	if prefix == "" || key == prefix {
		return true
	}

	return strings.HasPrefix(key, prefix+keySep)
}

// globMatch implements the matching rule of Database.Glob for joined keys.
func globMatch(key string, prefix []string) bool {
	if len(prefix) == 0 {
		return !strings.Contains(key, keySep)
	}

	parts := splitKey(key)
	if len(parts) != len(prefix) {
		return false
	}

	for idx := 0; idx < len(prefix)-1; idx++ {
		if parts[idx] != prefix[idx] {
			return false
		}
	}

	return strings.HasPrefix(parts[len(parts)-1], prefix[len(prefix)-1])
}

func sortedKeys(joined []string) [][]string {
	sort.Strings(joined)
	results := make([][]string, 0, len(joined))
	for _, key := range joined {
		results = append(results, splitKey(key))
	}

	return results
}

// exportMap and importMap implement the dump format
// shared by the memory and disk database.
func exportMap(w io.Writer, data map[string][]byte) error {
	return gob.NewEncoder(w).Encode(data)
}

func importMap(r io.Reader, db Database) (err error) {
	data := make(map[string][]byte)
	if err := gob.NewDecoder(r).Decode(&data); err != nil {
		return err
	}

	batch := db.Batch()
	defer func() {
		if err != nil {
			batch.Rollback()
		} else {
			err = batch.Flush()
		}
	}()

	for key, val := range data {
		batch.Put(val, splitKey(key)...)
	}

	return nil
}
