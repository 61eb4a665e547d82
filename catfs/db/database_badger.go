package db

import (
	"io"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	log "github.com/sirupsen/logrus"
)

// badgerLogger forwards badger's log output to logrus.
// Badger is quite chatty on info level, so info is demoted to debug.
type badgerLogger struct {
	entry *log.Entry
}

func (bl badgerLogger) Errorf(f string, v ...interface{})   { bl.entry.Errorf(f, v...) }
func (bl badgerLogger) Warningf(f string, v ...interface{}) { bl.entry.Warningf(f, v...) }
func (bl badgerLogger) Infof(f string, v ...interface{})    { bl.entry.Debugf(f, v...) }
func (bl badgerLogger) Debugf(f string, v ...interface{})   { bl.entry.Debugf(f, v...) }

// BadgerDatabase is a database implementation based on BadgerDB.
// One outermost batch maps to one badger transaction.
type BadgerDatabase struct {
	mu         sync.Mutex
	db         *badger.DB
	txn        *badger.Txn
	txnErr     error
	refCount   int
	haveWrites bool
}

// NewBadgerDatabase opens (or creates) a badger database in `path`.
func NewBadgerDatabase(path string) (*BadgerDatabase, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(badgerLogger{entry: log.WithField("db", "badger")})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &BadgerDatabase{
		db: db,
	}, nil
}

func (db *BadgerDatabase) view(fn func(txn *badger.Txn) error) error {
	// If we have an open transaction, retrieve the values from there.
	// Otherwise we would not be able to retrieve in-memory values.
	if db.txn != nil {
		return fn(db.txn)
	}

	// If no transaction is running (no Batch()-call), use a fresh view txn.
	return db.db.View(fn)
}

// Get is described in the Database interface.
func (db *BadgerDatabase) Get(key ...string) ([]byte, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var data []byte
	err := db.view(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(joinKey(key)))
		if err == badger.ErrKeyNotFound {
			return ErrNoSuchKey
		}

		if err != nil {
			return err
		}

		data, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		return nil, err
	}

	return data, nil
}

func (db *BadgerDatabase) collect(match func(key string) bool) ([]string, error) {
	joined := []string{}
	err := db.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := string(iter.Item().KeyCopy(nil))
			if match(key) {
				joined = append(joined, key)
			}
		}

		return nil
	})

	return joined, err
}

// Keys is described in the Database interface.
func (db *BadgerDatabase) Keys(prefix ...string) ([][]string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	prefixKey := joinKey(prefix)
	joined, err := db.collect(func(key string) bool {
		return hasKeyPrefix(key, prefixKey)
	})

	if err != nil {
		return nil, err
	}

	return sortedKeys(joined), nil
}

// Glob is described in the Database interface.
func (db *BadgerDatabase) Glob(prefix []string) ([][]string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	joined, err := db.collect(func(key string) bool {
		return globMatch(key, prefix)
	})

	if err != nil {
		return nil, err
	}

	return sortedKeys(joined), nil
}

// Export writes all keys in the same format as the other backends,
// so a dump can be restored into any of them.
func (db *BadgerDatabase) Export(w io.Writer) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	data := make(map[string][]byte)
	err := db.view(func(txn *badger.Txn) error {
		iter := txn.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}

			data[string(item.KeyCopy(nil))] = val
		}

		return nil
	})

	if err != nil {
		return err
	}

	return exportMap(w, data)
}

// Import loads a dump written by Export.
func (db *BadgerDatabase) Import(r io.Reader) error {
	return importMap(r, db)
}

// Batch is described in the Database interface.
func (db *BadgerDatabase) Batch() Batch {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.txn == nil {
		db.txn = db.db.NewTransaction(true)
		db.txnErr = nil
	}

	db.refCount++
	return db
}

func (db *BadgerDatabase) setErr(err error) {
	if err != nil && db.txnErr == nil {
		db.txnErr = err
	}
}

// Put is described in the Batch interface.
func (db *BadgerDatabase) Put(val []byte, key ...string) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.haveWrites = true

	cpy := make([]byte, len(val))
	copy(cpy, val)
	db.setErr(db.txn.Set([]byte(joinKey(key)), cpy))
}

// Clear is described in the Batch interface.
func (db *BadgerDatabase) Clear(key ...string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.haveWrites = true

	prefix := joinKey(key)
	keys, err := db.collect(func(key string) bool {
		return hasKeyPrefix(key, prefix)
	})

	if err != nil {
		return err
	}

	for _, key := range keys {
		if err := db.txn.Delete([]byte(key)); err != nil {
			db.setErr(err)
			return err
		}
	}

	return nil
}

// Erase is described in the Batch interface.
func (db *BadgerDatabase) Erase(key ...string) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.haveWrites = true
	db.setErr(db.txn.Delete([]byte(joinKey(key))))
}

func (db *BadgerDatabase) endTxn() {
	if db.txn != nil {
		db.txn.Discard()
	}

	db.txn = nil
	db.txnErr = nil
	db.haveWrites = false
	db.refCount = 0
}

// Flush commits the transaction when the outermost batch ends.
func (db *BadgerDatabase) Flush() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.refCount <= 0 {
		return nil
	}

	db.refCount--
	if db.refCount > 0 {
		return nil
	}

	defer db.endTxn()
	if db.txnErr != nil {
		return db.txnErr
	}

	return db.txn.Commit()
}

// Rollback discards the transaction and ends all nested batches.
func (db *BadgerDatabase) Rollback() {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.refCount <= 0 {
		return
	}

	db.endTxn()
}

// HaveWrites is described in the Batch interface.
func (db *BadgerDatabase) HaveWrites() bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.haveWrites
}

// Close discards a pending transaction and closes the database.
func (db *BadgerDatabase) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	// With an open transaction it would deadlock:
	db.endTxn()

	if db.db != nil {
		oldDb := db.db
		db.db = nil
		if err := oldDb.Close(); err != nil {
			return err
		}
	}

	return nil
}
