package catfs

import (
	"testing"

	"github.com/sahib/snap/catfs/core"
	"github.com/sahib/snap/catfs/db"
)

func withDummyFSConfig(t *testing.T, cfg *Config, fn func(fs *FS, src *core.MemorySource)) {
	kv, err := db.NewDiskDatabase(t.TempDir())
	if err != nil {
		t.Fatalf("Could not create dummy kv for tests: %v", err)
	}

	src := core.NewMemorySource()
	fs, err := NewFilesystem(kv, src, cfg)
	if err != nil {
		t.Fatalf("Failed to create filesystem: %v", err)
	}

	if err := fs.Init(); err != nil {
		t.Fatalf("Failed to init filesystem: %v", err)
	}

	fn(fs, src)

	if err := fs.Close(); err != nil {
		t.Fatalf("Failed to close filesystem: %v", err)
	}
}

func withDummyFS(t *testing.T, fn func(fs *FS, src *core.MemorySource)) {
	withDummyFSConfig(t, nil, fn)
}
