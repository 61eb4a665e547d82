package db

import (
	"io"
	"sync"

	log "github.com/sirupsen/logrus"
)

// MemoryDatabase is a purely in memory database.
// Batches are applied directly, but a copy of the state before
// the outermost batch is kept, so Rollback() can restore it.
type MemoryDatabase struct {
	mu         sync.Mutex
	data       map[string][]byte
	backup     map[string][]byte
	refs       int
	haveWrites bool
}

// NewMemoryDatabase allocates a new empty MemoryDatabase
func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		data: make(map[string][]byte),
	}
}

func copyMap(m map[string][]byte) map[string][]byte {
	cpy := make(map[string][]byte, len(m))
	for key, val := range m {
		cpy[key] = val
	}

	return cpy
}

// Batch starts a new (possibly nested) batch.
func (mdb *MemoryDatabase) Batch() Batch {
	mdb.mu.Lock()
	defer mdb.mu.Unlock()

	if mdb.refs == 0 {
		mdb.backup = copyMap(mdb.data)
	}

	mdb.refs++
	return mdb
}

// Flush ends a batch. The outermost Flush makes the changes permanent.
func (mdb *MemoryDatabase) Flush() error {
	mdb.mu.Lock()
	defer mdb.mu.Unlock()

	if mdb.refs <= 0 {
		return nil
	}

	mdb.refs--
	if mdb.refs > 0 {
		return nil
	}

	mdb.backup = nil
	mdb.haveWrites = false
	return nil
}

// Rollback restores the state before the outermost batch.
func (mdb *MemoryDatabase) Rollback() {
	mdb.mu.Lock()
	defer mdb.mu.Unlock()

	if mdb.refs <= 0 {
		return
	}

	log.Debugf("memory db: rolling back %d batch(es)", mdb.refs)
	mdb.data = mdb.backup
	mdb.backup = nil
	mdb.refs = 0
	mdb.haveWrites = false
}

// HaveWrites returns true if the current batch modified something.
func (mdb *MemoryDatabase) HaveWrites() bool {
	mdb.mu.Lock()
	defer mdb.mu.Unlock()

	return mdb.haveWrites
}

// Get returns the value at `key`.
func (mdb *MemoryDatabase) Get(key ...string) ([]byte, error) {
	mdb.mu.Lock()
	defer mdb.mu.Unlock()

	data, ok := mdb.data[joinKey(key)]
	if !ok {
		return nil, ErrNoSuchKey
	}

	return data, nil
}

// Put sets `key` to `data`.
func (mdb *MemoryDatabase) Put(data []byte, key ...string) {
	mdb.mu.Lock()
	defer mdb.mu.Unlock()

	cpy := make([]byte, len(data))
	copy(cpy, data)

	mdb.data[joinKey(key)] = cpy
	mdb.haveWrites = true
}

// Clear removes all keys including and below `key`.
func (mdb *MemoryDatabase) Clear(key ...string) error {
	mdb.mu.Lock()
	defer mdb.mu.Unlock()

	prefix := joinKey(key)
	for mapKey := range mdb.data {
		if hasKeyPrefix(mapKey, prefix) {
			delete(mdb.data, mapKey)
		}
	}

	mdb.haveWrites = true
	return nil
}

// Erase removes exactly `key`.
func (mdb *MemoryDatabase) Erase(key ...string) {
	mdb.mu.Lock()
	defer mdb.mu.Unlock()

	delete(mdb.data, joinKey(key))
	mdb.haveWrites = true
}

// Keys will return all keys currently stored below `prefix`.
func (mdb *MemoryDatabase) Keys(prefix ...string) ([][]string, error) {
	mdb.mu.Lock()
	defer mdb.mu.Unlock()

	prefixKey := joinKey(prefix)
	joined := []string{}
	for key := range mdb.data {
		if hasKeyPrefix(key, prefixKey) {
			joined = append(joined, key)
		}
	}

	return sortedKeys(joined), nil
}

// Glob is described in the Database interface.
func (mdb *MemoryDatabase) Glob(prefix []string) ([][]string, error) {
	mdb.mu.Lock()
	defer mdb.mu.Unlock()

	joined := []string{}
	for key := range mdb.data {
		if globMatch(key, prefix) {
			joined = append(joined, key)
		}
	}

	return sortedKeys(joined), nil
}

// Export encodes the internal memory map to a gob structure,
// and writes it to `w`.
func (mdb *MemoryDatabase) Export(w io.Writer) error {
	mdb.mu.Lock()
	data := copyMap(mdb.data)
	mdb.mu.Unlock()

	return exportMap(w, data)
}

// Import imports a previously exported dump and decodes the gob structure.
func (mdb *MemoryDatabase) Import(r io.Reader) error {
	return importMap(r, mdb)
}

// Close the memory - a no op.
func (mdb *MemoryDatabase) Close() error {
	return nil
}
