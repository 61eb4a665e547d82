package core

import (
	"testing"

	"github.com/sahib/snap/catfs/db"
	h "github.com/sahib/snap/util/hashlib"
)

// WithDummyKv calls `fn` with a fresh disk database in a temp dir.
func WithDummyKv(t *testing.T, fn func(kv db.Database)) {
	kv, err := db.NewDiskDatabase(t.TempDir())
	if err != nil {
		t.Fatalf("Could not create dummy kv for tests: %v", err)
	}

	fn(kv)

	if err := kv.Close(); err != nil {
		t.Fatalf("Closing the dummy kv failed: %v", err)
	}
}

// WithDummyLinker calls `fn` with an initialized linker using sha1,
// a MemorySource and the key value snapshot store.
func WithDummyLinker(t *testing.T, fn func(lkr *Linker, src *MemorySource)) {
	WithDummyKv(t, func(kv db.Database) {
		lkr, src := NewDummyLinker(t, kv, nil)
		fn(lkr, src)
	})
}

// WithReloadingLinker calls `fn1` and `fn2` with two linkers
// sharing the same database and source.
func WithReloadingLinker(t *testing.T, fn1, fn2 func(lkr *Linker, src *MemorySource)) {
	WithDummyKv(t, func(kv db.Database) {
		lkr1, src := NewDummyLinker(t, kv, nil)
		fn1(lkr1, src)

		lkr2 := NewLinker(kv, lkr1.Hasher(), src, nil)
		fn2(lkr2, src)
	})
}

// NewDummyLinker creates and initializes a linker on top of `kv`.
// If `src` is nil, a new MemorySource is created.
func NewDummyLinker(t *testing.T, kv db.Database, src *MemorySource) (*Linker, *MemorySource) {
	hasher, err := h.NewHasher("sha1")
	if err != nil {
		t.Fatalf("Failed to create hasher: %v", err)
	}

	if src == nil {
		src = NewMemorySource()
	}

	lkr := NewLinker(kv, hasher, src, nil)
	if err := lkr.Init(); err != nil {
		t.Fatalf("Failed to init linker: %v", err)
	}

	return lkr, src
}

// MustStage stages `path` with `content` or fails the test.
func MustStage(t *testing.T, lkr *Linker, src *MemorySource, path, content string) {
	src.Set(path, []byte(content))
	if err := lkr.Stage(path); err != nil {
		t.Fatalf("Failed to stage %s: %v", path, err)
	}
}

// MustSnapshot creates a snapshot or fails the test.
func MustSnapshot(t *testing.T, lkr *Linker, message string) *Snapshot {
	snap, err := lkr.MakeSnapshot(message)
	if err != nil {
		t.Fatalf("Failed to make snapshot `%s`: %v", message, err)
	}

	return snap
}
