package repo

import (
	"bytes"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	e "github.com/pkg/errors"
	"github.com/sahib/config"
	"github.com/sahib/snap/catfs"
	"github.com/sahib/snap/catfs/core"
	"github.com/sahib/snap/catfs/db"
	ie "github.com/sahib/snap/catfs/errors"
	"github.com/sahib/snap/defaults"
	"github.com/sahib/snap/util"
	"github.com/sahib/snap/util/filelock"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrRepoLocked is returned by Open when another process holds the lock.
	ErrRepoLocked = errors.New("repository is locked by another process")
)

// Repository provides access to the file structure of a single repository.
//
// Layout of the metadata folder inside of the working tree:
//
// .snap/
//    config.yml   (see defaults.DefaultsV0)
//    lock         (held while a command runs)
//    meta/        (database, if repo.database is »disk«)
//    badger/      (database, if repo.database is »badger«)
//    meta.gob     (database dump, if repo.database is »memory«)
//    snapshots/   (file copies, if snapshot.strategy is »dircopy«)
type Repository struct {
	mu sync.Mutex

	// BaseFolder is the absolute path of the working tree.
	BaseFolder string

	// Config gives access to config.yml
	Config *config.Config

	fs       *catfs.FS
	kv       db.Database
	lockPath string
	locked   bool
}

// InitOptions selects the settings that cannot be changed after Init.
// Empty fields keep the default.
type InitOptions struct {
	HashAlgo string
	Database string
	Strategy string
}

func metaPath(baseFolder string, parts ...string) string {
	return filepath.Join(append([]string{baseFolder, MetaFolderName}, parts...)...)
}

func applyInitOptions(cfg *config.Config, opts InitOptions) error {
	settings := []struct {
		key, val string
	}{
		{"repo.hash_algorithm", opts.HashAlgo},
		{"repo.database", opts.Database},
		{"snapshot.strategy", opts.Strategy},
	}

	for _, setting := range settings {
		if setting.val == "" {
			continue
		}

		if err := cfg.SetString(setting.key, setting.val); err != nil {
			return e.Wrapf(err, "invalid value for %s", setting.key)
		}
	}

	return nil
}

// Init creates a new repository in `baseFolder`, which has to exist.
// If there is a repository already, ie.ErrAlreadyInitialized is returned
// and nothing is modified.
func Init(baseFolder string, opts InitOptions) (err error) {
	absFolder, err := filepath.Abs(baseFolder)
	if err != nil {
		return err
	}

	info, err := os.Stat(absFolder)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return e.Errorf("`%s` is not a directory", absFolder)
	}

	if IsRepo(absFolder) {
		return ie.ErrAlreadyInitialized
	}

	cfg, err := defaults.NewDefaultConfig()
	if err != nil {
		return err
	}

	if err := applyInitOptions(cfg, opts); err != nil {
		return err
	}

	repoID := uuid.New().String()
	if err := cfg.SetString("repo.id", repoID); err != nil {
		return err
	}

	if err := os.Mkdir(metaPath(absFolder), 0700); err != nil {
		if os.IsExist(err) {
			return ie.ErrAlreadyInitialized
		}

		return e.Wrap(err, "failed to create metadata folder")
	}

	// Do not leave a half-initialized repository behind.
	defer func() {
		if err != nil {
			os.RemoveAll(metaPath(absFolder))
		}
	}()

	if err := defaults.SaveConfig(metaPath(absFolder, "config.yml"), cfg); err != nil {
		return err
	}

	rp, err := Open(absFolder)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := rp.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := rp.fs.Init(); err != nil {
		return err
	}

	if err := rp.fs.SetMetadata("id", []byte(repoID)); err != nil {
		return err
	}

	log.Infof("initialized repository %s in %s", repoID, absFolder)
	return nil
}

func openDatabase(baseFolder, backend string) (db.Database, error) {
	switch backend {
	case "disk":
		return db.NewDiskDatabase(metaPath(baseFolder, "meta"))
	case "badger":
		return db.NewBadgerDatabase(metaPath(baseFolder, "badger"))
	case "memory":
		mdb := db.NewMemoryDatabase()
		data, err := ioutil.ReadFile(metaPath(baseFolder, "meta.gob"))
		if os.IsNotExist(err) {
			return mdb, nil
		}

		if err != nil {
			return nil, err
		}

		if err := mdb.Import(bytes.NewReader(data)); err != nil {
			return nil, e.Wrap(err, "failed to load meta.gob")
		}

		return mdb, nil
	default:
		return nil, e.Errorf("unknown database backend: %s", backend)
	}
}

// Open loads the repository in `baseFolder` and takes the repository lock
// (if enabled). Only one process can have a repository open at a time.
// Call Close() to release it again.
func Open(baseFolder string) (rp *Repository, err error) {
	absFolder, err := filepath.Abs(baseFolder)
	if err != nil {
		return nil, err
	}

	if !IsRepo(absFolder) {
		return nil, ie.ErrNotInitialized
	}

	cfg, err := defaults.OpenMigratedConfig(metaPath(absFolder, "config.yml"))
	if err != nil {
		return nil, err
	}

	rp = &Repository{
		BaseFolder: absFolder,
		Config:     cfg,
		lockPath:   metaPath(absFolder, "lock"),
	}

	if cfg.Bool("lock.enabled") {
		if err := filelock.Acquire(rp.lockPath, cfg.Duration("lock.timeout")); err != nil {
			if err == filelock.ErrTimeout {
				return nil, ErrRepoLocked
			}

			return nil, e.Wrap(err, "failed to acquire lock")
		}

		rp.locked = true
	}

	// rp is nil on error returns.
	opened := rp
	defer func() {
		if err != nil {
			opened.release()
		}
	}()

	kv, err := openDatabase(absFolder, cfg.String("repo.database"))
	if err != nil {
		return nil, err
	}

	src := core.NewDirSource(absFolder, MetaFolderName)
	fs, err := catfs.NewFilesystem(kv, src, &catfs.Config{
		HashAlgo:      cfg.String("repo.hash_algorithm"),
		Strategy:      cfg.String("snapshot.strategy"),
		SnapshotDir:   metaPath(absFolder, "snapshots"),
		ShortIDLength: int(cfg.Int("snapshot.short_id_length")),
	})

	if err != nil {
		kv.Close()
		return nil, err
	}

	rp.kv = kv
	rp.fs = fs
	return rp, nil
}

func (rp *Repository) release() {
	if !rp.locked {
		return
	}

	if err := filelock.Release(rp.lockPath); err != nil {
		log.Warningf("failed to release lock %s: %v", rp.lockPath, err)
	}

	rp.locked = false
}

// FS returns the filesystem of this repository.
func (rp *Repository) FS() *catfs.FS {
	return rp.fs
}

// ID returns the unique id generated on init.
func (rp *Repository) ID() string {
	return rp.Config.String("repo.id")
}

// SaveConfig writes the current config back to config.yml.
func (rp *Repository) SaveConfig() error {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	return defaults.SaveConfig(metaPath(rp.BaseFolder, "config.yml"), rp.Config)
}

// WorktreePath converts `path` (absolute or relative to `cwd`)
// into the slash separated form relative to the working tree.
func (rp *Repository) WorktreePath(cwd, path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(cwd, path)
	}

	rel, err := filepath.Rel(rp.BaseFolder, path)
	if err != nil {
		return "", ie.BadPath(path)
	}

	return core.NormalizePath(rel)
}

func (rp *Repository) dumpMemoryDatabase() error {
	if rp.Config.String("repo.database") != "memory" {
		return nil
	}

	buf := &bytes.Buffer{}
	if err := rp.kv.Export(buf); err != nil {
		return err
	}

	return util.AtomicWriteFile(metaPath(rp.BaseFolder, "meta.gob"), buf.Bytes(), 0600)
}

// Close closes the database and releases the repository lock.
func (rp *Repository) Close() error {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	defer rp.release()

	if rp.fs == nil {
		return nil
	}

	if err := rp.dumpMemoryDatabase(); err != nil {
		return e.Wrap(err, "failed to write meta.gob")
	}

	err := rp.fs.Close()
	rp.fs = nil
	return err
}
