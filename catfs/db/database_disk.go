package db

import (
	"io"
	"io/ioutil"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sahib/snap/util"
	log "github.com/sirupsen/logrus"
)

// DiskDatabase is a database that simply uses the filesystem as storage.
// Each key part except the last is one directory. Leaf keys are simple files.
// Every file is replaced atomically on write.
//
// Note that this database backend was written for easy debugging.
// It is by no means optimized for fast reads and writes.
type DiskDatabase struct {
	mu       sync.Mutex
	basePath string

	// overlay holds values of the current batch; nil means deleted.
	overlay map[string][]byte
	cleared []string
	ops     []func() error
	refs    int
}

// NewDiskDatabase creates a new database at `basePath`.
func NewDiskDatabase(basePath string) (*DiskDatabase, error) {
	if err := os.MkdirAll(basePath, 0700); err != nil {
		return nil, err
	}

	return &DiskDatabase{
		basePath: basePath,
		overlay:  make(map[string][]byte),
	}, nil
}

// Key parts are escaped, so "." and ".." do not turn into
// special directory entries.
func escapeKeyPart(part string) string {
	switch part {
	case ".":
		return "%2E"
	case "..":
		return "%2E%2E"
	default:
		return url.PathEscape(part)
	}
}

func (db *DiskDatabase) keyToPath(key []string) string {
	parts := make([]string, 0, len(key)+1)
	parts = append(parts, db.basePath)
	for _, part := range key {
		parts = append(parts, escapeKeyPart(part))
	}

	return filepath.Join(parts...)
}

func (db *DiskDatabase) pathToKey(path string) ([]string, error) {
	rel, err := filepath.Rel(db.basePath, path)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(filepath.ToSlash(rel), "/")
	for idx, part := range parts {
		unescaped, err := url.PathUnescape(part)
		if err != nil {
			return nil, err
		}

		parts[idx] = unescaped
	}

	return parts, nil
}

func (db *DiskDatabase) isCleared(key string) bool {
	for _, prefix := range db.cleared {
		if hasKeyPrefix(key, prefix) {
			return true
		}
	}

	return false
}

// Batch starts a new (possibly nested) batch.
func (db *DiskDatabase) Batch() Batch {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.refs++
	return db
}

func (db *DiskDatabase) reset() {
	db.overlay = make(map[string][]byte)
	db.cleared = nil
	db.ops = nil
}

// Flush applies all queued operations once the outermost batch ends.
func (db *DiskDatabase) Flush() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.refs <= 0 {
		return nil
	}

	db.refs--
	if db.refs > 0 {
		return nil
	}

	// Make sure that the queue is empty, even if Flush fails.
	ops := db.ops
	db.reset()

	// No operation is revertible. If something goes wrong on the
	// filesystem, chances are high that we could not revert anyways.
	for _, op := range ops {
		if err := op(); err != nil {
			return err
		}
	}

	return util.SyncDir(db.basePath)
}

// Rollback forgets all queued operations.
func (db *DiskDatabase) Rollback() {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.refs > 0 {
		log.Debugf("disk db: dropping %d queued op(s)", len(db.ops))
	}

	db.refs = 0
	db.reset()
}

// HaveWrites returns true if operations are queued.
func (db *DiskDatabase) HaveWrites() bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	return len(db.ops) > 0
}

// Get a single value by `key`.
func (db *DiskDatabase) Get(key ...string) ([]byte, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	joined := joinKey(key)
	if data, ok := db.overlay[joined]; ok {
		if data == nil {
			return nil, ErrNoSuchKey
		}

		return data, nil
	}

	if db.isCleared(joined) {
		return nil, ErrNoSuchKey
	}

	filePath := db.keyToPath(key)
	info, err := os.Stat(filePath)
	if os.IsNotExist(err) || (err == nil && info.IsDir()) {
		return nil, ErrNoSuchKey
	}

	if err != nil {
		return nil, err
	}

	return ioutil.ReadFile(filePath)
}

func removeNonDirs(basePath, path string) error {
	if path == basePath || len(path) < len(basePath) {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	if info != nil && !info.IsDir() {
		return os.Remove(path)
	}

	return removeNonDirs(basePath, filepath.Dir(path))
}

// Put stores a new `val` under `key`.
func (db *DiskDatabase) Put(val []byte, key ...string) {
	db.mu.Lock()
	defer db.mu.Unlock()

	cpy := make([]byte, len(val))
	copy(cpy, val)

	filePath := db.keyToPath(key)
	db.ops = append(db.ops, func() error {
		// If any of the parents are files, they need to make
		// place for directories (e.g. set a/b/c over a/b).
		parentDir := filepath.Dir(filePath)
		if err := removeNonDirs(db.basePath, parentDir); err != nil {
			return err
		}

		if err := os.MkdirAll(parentDir, 0700); err != nil {
			return err
		}

		// Setting "a/b" over "a/b/c" removes the nested keys.
		info, err := os.Stat(filePath)
		if err != nil && !os.IsNotExist(err) {
			return err
		}

		if info != nil && info.IsDir() {
			if err := os.RemoveAll(filePath); err != nil {
				return err
			}
		}

		return util.AtomicWriteFile(filePath, cpy, 0600)
	})

	db.overlay[joinKey(key)] = cpy
}

// Clear removes all keys below and including `key`.
func (db *DiskDatabase) Clear(key ...string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	fullPath := db.keyToPath(key)
	db.ops = append(db.ops, func() error {
		if fullPath == db.basePath {
			entries, err := ioutil.ReadDir(fullPath)
			if err != nil {
				return err
			}

			for _, entry := range entries {
				if err := os.RemoveAll(filepath.Join(fullPath, entry.Name())); err != nil {
					return err
				}
			}

			return nil
		}

		return os.RemoveAll(fullPath)
	})

	prefix := joinKey(key)
	for cached := range db.overlay {
		if hasKeyPrefix(cached, prefix) {
			delete(db.overlay, cached)
		}
	}

	db.cleared = append(db.cleared, prefix)
	return nil
}

// Erase removes exactly `key`.
func (db *DiskDatabase) Erase(key ...string) {
	db.mu.Lock()
	defer db.mu.Unlock()

	fullPath := db.keyToPath(key)
	db.ops = append(db.ops, func() error {
		err := os.Remove(fullPath)
		if os.IsNotExist(err) {
			return nil
		}

		return err
	})

	db.overlay[joinKey(key)] = nil
}

// allKeys returns every joined key as currently visible,
// including the changes of an unflushed batch.
func (db *DiskDatabase) allKeys() ([]string, error) {
	seen := make(map[string]bool)
	err := filepath.Walk(db.basePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() || strings.HasPrefix(info.Name(), ".tmp-") {
			return nil
		}

		key, err := db.pathToKey(path)
		if err != nil {
			return err
		}

		joined := joinKey(key)
		if !db.isCleared(joined) {
			seen[joined] = true
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	for key, val := range db.overlay {
		seen[key] = val != nil
	}

	keys := []string{}
	for key, exists := range seen {
		if exists {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

// Keys returns all keys below `prefix`.
func (db *DiskDatabase) Keys(prefix ...string) ([][]string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	all, err := db.allKeys()
	if err != nil {
		return nil, err
	}

	prefixKey := joinKey(prefix)
	joined := []string{}
	for _, key := range all {
		if hasKeyPrefix(key, prefixKey) {
			joined = append(joined, key)
		}
	}

	return sortedKeys(joined), nil
}

// Glob is described in the Database interface.
func (db *DiskDatabase) Glob(prefix []string) ([][]string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	all, err := db.allKeys()
	if err != nil {
		return nil, err
	}

	joined := []string{}
	for _, key := range all {
		if globMatch(key, prefix) {
			joined = append(joined, key)
		}
	}

	return sortedKeys(joined), nil
}

// Export writes all key/values as gob encoded map to `w`.
func (db *DiskDatabase) Export(w io.Writer) error {
	keys, err := db.Keys()
	if err != nil {
		return err
	}

	data := make(map[string][]byte, len(keys))
	for _, key := range keys {
		val, err := db.Get(key...)
		if err != nil {
			return err
		}

		data[joinKey(key)] = val
	}

	return exportMap(w, data)
}

// Import a dump created by Export into the current database.
func (db *DiskDatabase) Import(r io.Reader) error {
	return importMap(r, db)
}

// Close the database
func (db *DiskDatabase) Close() error {
	return nil
}
