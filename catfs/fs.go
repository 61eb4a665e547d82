package catfs

import (
	"fmt"
	"io"
	"sync"

	"github.com/sahib/snap/catfs/core"
	"github.com/sahib/snap/catfs/db"
	ie "github.com/sahib/snap/catfs/errors"
	log "github.com/sirupsen/logrus"
)

// FS (short for Filesystem) is the central API entry for everything
// related to snapshots. Every method runs exclusively; no two
// operations on the same FS are interleaved.
type FS struct {
	mu sync.Mutex

	kv  db.Database
	lkr *core.Linker
	cfg *config
}

// BranchInfo describes one branch.
type BranchInfo struct {
	Name      string
	IsCurrent bool
	Snapshots int

	// Head is the latest snapshot or nil.
	Head *core.Snapshot
}

// Status summarizes the current state of the repository.
type Status struct {
	Branch string
	Head   *core.Snapshot
	Staged []string
}

// NewFilesystem returns a new FS on top of `kv`, reading files from `src`.
// If `cfg` is nil, DefaultConfig is used.
func NewFilesystem(kv db.Database, src core.FileSource, cfg *Config) (*FS, error) {
	vfg, err := cfg.parseConfig()
	if err != nil {
		return nil, err
	}

	store, err := vfg.newStore(kv, src)
	if err != nil {
		return nil, err
	}

	lkr := core.NewLinker(kv, vfg.hasher, src, store)

	isInit, err := lkr.IsInitialized()
	if err != nil {
		return nil, err
	}

	if isInit {
		if err := lkr.CheckMetadata(); err != nil {
			return nil, err
		}
	}

	return &FS{
		kv:  kv,
		lkr: lkr,
		cfg: vfg,
	}, nil
}

// Close closes the underlying database.
func (fs *FS) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.kv.Close()
}

// Export writes a dump of all metadata to `w`.
// File copies of the dircopy strategy are not part of it.
func (fs *FS) Export(w io.Writer) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.kv.Export(w)
}

// Import reads a dump written by Export.
func (fs *FS) Import(r io.Reader) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.kv.Import(r)
}

// ShortID returns the abbreviated id of `snap` as configured.
func (fs *FS) ShortID(snap *core.Snapshot) string {
	return snap.ShortID(fs.cfg.shortLen)
}

// HashAlgorithm returns the name of the configured hash algorithm.
func (fs *FS) HashAlgorithm() string {
	return fs.cfg.hasher.Name()
}

// checkInit returns ie.ErrNotInitialized for a fresh database.
func (fs *FS) checkInit() error {
	isInit, err := fs.lkr.IsInitialized()
	if err != nil {
		return err
	}

	if !isInit {
		return ie.ErrNotInitialized
	}

	return nil
}

////////////////////
// INITIALIZATION //
////////////////////

// Init creates the `main` branch and makes it current.
// Calling it on an initialized FS yields ie.ErrAlreadyInitialized.
func (fs *FS) Init() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := fs.lkr.Init(); err != nil {
		return err
	}

	log.Debugf("initialized repository (hash: %s)", fs.cfg.hasher.Name())
	return nil
}

// IsInitialized checks if Init() was called before.
func (fs *FS) IsInitialized() (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.lkr.IsInitialized()
}

// SetMetadata stores caller defined data like the repository id.
func (fs *FS) SetMetadata(key string, val []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.lkr.SetMetadata(key, val)
}

// Metadata returns caller defined data set by SetMetadata.
func (fs *FS) Metadata(key string) ([]byte, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.lkr.Metadata(key)
}

////////////////////////
// STAGING OPERATIONS //
////////////////////////

// Stage adds `path` to the staging area.
func (fs *FS) Stage(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := fs.checkInit(); err != nil {
		return err
	}

	return fs.lkr.Stage(path)
}

// Unstage removes `path` from the staging area.
func (fs *FS) Unstage(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := fs.checkInit(); err != nil {
		return err
	}

	return fs.lkr.Unstage(path)
}

// Staged lists the staging area in staging order.
func (fs *FS) Staged() ([]string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.lkr.Staged()
}

/////////////////////////
// SNAPSHOT OPERATIONS //
/////////////////////////

// MakeSnapshot bundles all staged files into a snapshot described by `msg`.
func (fs *FS) MakeSnapshot(msg string) (*core.Snapshot, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := fs.checkInit(); err != nil {
		return nil, err
	}

	return fs.lkr.MakeSnapshot(msg)
}

// History returns all snapshots of `branch`, oldest first.
func (fs *FS) History(branch string) ([]*core.Snapshot, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.lkr.History(branch)
}

// Log returns the snapshots of the current branch, newest first.
func (fs *FS) Log() ([]*core.Snapshot, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	history, err := fs.lkr.CurrentHistory()
	if err != nil {
		return nil, err
	}

	reversed := make([]*core.Snapshot, 0, len(history))
	for idx := len(history) - 1; idx >= 0; idx-- {
		reversed = append(reversed, history[idx])
	}

	return reversed, nil
}

// Show resolves `rev` to a snapshot. See core.Linker.ResolveRev
// for the accepted forms.
func (fs *FS) Show(rev string) (*core.Snapshot, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.lkr.ResolveRev(rev)
}

///////////////////////
// BRANCH OPERATIONS //
///////////////////////

const (
	// BranchCreate is the action for creating a branch via Branch().
	BranchCreate = "create"
	// BranchSwitch is the action for switching branches via Branch().
	BranchSwitch = "switch"
)

// Branch runs `action` (BranchCreate or BranchSwitch) with `name`.
func (fs *FS) Branch(action, name string) error {
	switch action {
	case BranchCreate:
		return fs.CreateBranch(name)
	case BranchSwitch:
		return fs.SwitchBranch(name)
	default:
		return fmt.Errorf("unknown branch action: `%s`", action)
	}
}

// CreateBranch creates a new branch with empty history.
func (fs *FS) CreateBranch(name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := fs.checkInit(); err != nil {
		return err
	}

	return fs.lkr.CreateBranch(name)
}

// SwitchBranch makes `name` the current branch.
func (fs *FS) SwitchBranch(name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := fs.checkInit(); err != nil {
		return err
	}

	return fs.lkr.SwitchBranch(name)
}

// CurrentBranch returns the name of the current branch.
func (fs *FS) CurrentBranch() (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.lkr.CurrentBranch()
}

// Branches lists all branches, sorted by name.
func (fs *FS) Branches() ([]BranchInfo, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	state, err := fs.lkr.State()
	if err != nil {
		return nil, err
	}

	infos := []BranchInfo{}
	for _, name := range state.Branches {
		history, err := fs.lkr.History(name)
		if err != nil {
			return nil, err
		}

		info := BranchInfo{
			Name:      name,
			IsCurrent: name == state.Current,
			Snapshots: len(history),
		}

		if len(history) > 0 {
			info.Head = history[len(history)-1]
		}

		infos = append(infos, info)
	}

	return infos, nil
}

///////////////////
// INTROSPECTION //
///////////////////

// State returns branches, current branch and staging area at once.
func (fs *FS) State() (*core.State, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.lkr.State()
}

// Status returns the current branch, its head and the staged files.
func (fs *FS) Status() (*Status, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	state, err := fs.lkr.State()
	if err != nil {
		return nil, err
	}

	head, err := fs.lkr.Head()
	if err != nil {
		return nil, err
	}

	return &Status{
		Branch: state.Current,
		Head:   head,
		Staged: state.Staged,
	}, nil
}
