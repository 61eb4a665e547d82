package core

// Layout of the key/value store:
//
// stage/paths              => JSON list of staged paths (in staging order)
// branches/names           => JSON list of branch names
// refs/HEAD                => name of the current branch
// history/<BRANCH>         => JSON list of snapshots (manifest strategy only)
//
// Defined by caller:
// metadata/id      => REPO_ID
// metadata/hash    => B58 multihash of the empty input
// metadata/version => DB_FORMAT_VERSION_NUMBER
//
// In git terminology, this file implements the following commands:
// - git init:     Init()
// - git add:      Stage()
// - git reset:    Unstage()
// - git commit:   MakeSnapshot()
// - git branch:   CreateBranch()
// - git checkout: SwitchBranch() (without touching any file)
// - git status:   State()

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	e "github.com/pkg/errors"
	"github.com/sahib/snap/catfs/db"
	ie "github.com/sahib/snap/catfs/errors"
	h "github.com/sahib/snap/util/hashlib"
	log "github.com/sirupsen/logrus"
)

const (
	// FormatVersion is stored in metadata/version on init.
	FormatVersion = 1

	// MinAbbrevLength is the shortest id prefix ResolveRev accepts.
	MinAbbrevLength = 4
)

// State is a read-only view of the whole repository model.
type State struct {
	Branches []string
	Current  string
	Staged   []string
}

// Linker implements the version-control model on top of a key/value
// database: staging area, branch registry and per-branch history.
type Linker struct {
	kv       db.Database
	hasher   *h.Hasher
	src      FileSource
	store    SnapshotStore
	staging  *StagingArea
	branches *BranchRegistry

	// now is swapped in tests.
	now func() time.Time
}

// NewLinker returns a new lkr, ready to use. It assumes the key value store
// is working and does no check on this. If `store` is nil, histories are
// kept in the key value store.
func NewLinker(kv db.Database, hasher *h.Hasher, src FileSource, store SnapshotStore) *Linker {
	if store == nil {
		store = NewKvSnapshotStore(kv)
	}

	return &Linker{
		kv:       kv,
		hasher:   hasher,
		src:      src,
		store:    store,
		staging:  NewStagingArea(kv, src),
		branches: NewBranchRegistry(kv),
		now:      time.Now,
	}
}

// KV returns the key value store used by the linker.
func (lkr *Linker) KV() db.Database {
	return lkr.kv
}

// Hasher returns the hasher used for content and manifest digests.
func (lkr *Linker) Hasher() *h.Hasher {
	return lkr.hasher
}

// Store returns the snapshot store.
func (lkr *Linker) Store() SnapshotStore {
	return lkr.store
}

////////////////////
// INITIALIZATION //
////////////////////

// IsInitialized checks if Init() was called on this database before.
func (lkr *Linker) IsInitialized() (bool, error) {
	_, err := lkr.kv.Get("refs", "HEAD")
	if err == db.ErrNoSuchKey {
		return false, nil
	}

	return err == nil, err
}

// Init creates the default branch, checks it out and writes
// the format metadata. It returns ie.ErrAlreadyInitialized
// without changing anything if called twice.
func (lkr *Linker) Init() (err error) {
	isInit, err := lkr.IsInitialized()
	if err != nil {
		return err
	}

	if isInit {
		return ie.ErrAlreadyInitialized
	}

	batch := lkr.kv.Batch()
	defer func() {
		if err != nil {
			batch.Rollback()
		} else {
			err = batch.Flush()
		}
	}()

	if err := lkr.branches.init(batch); err != nil {
		return err
	}

	if err := lkr.staging.clear(batch); err != nil {
		return err
	}

	batch.Put([]byte(strconv.Itoa(FormatVersion)), "metadata", "version")
	batch.Put([]byte(lkr.hasher.Sum(nil).B58String()), "metadata", "hash")
	return nil
}

// CheckMetadata makes sure the database was created with a
// compatible format and the same hash algorithm as `lkr` uses.
func (lkr *Linker) CheckMetadata() error {
	version, err := lkr.kv.Get("metadata", "version")
	if err != nil && err != db.ErrNoSuchKey {
		return err
	}

	if err == nil && string(version) != strconv.Itoa(FormatVersion) {
		return fmt.Errorf("unsupported database format version: %s", version)
	}

	data, err := lkr.kv.Get("metadata", "hash")
	if err == db.ErrNoSuchKey {
		return nil
	}

	if err != nil {
		return err
	}

	// metadata/hash holds the multihash of the empty input,
	// so it names the algorithm and its digest length.
	stored, err := h.FromB58String(string(data))
	if err != nil {
		return e.Wrapf(err, "bad hash metadata `%s`", data)
	}

	algo, err := stored.Algorithm()
	if err != nil {
		return err
	}

	if !stored.Equal(lkr.hasher.Sum(nil)) {
		return fmt.Errorf(
			"repository was created with hash algorithm `%s`, but `%s` is configured",
			algo, lkr.hasher.Name(),
		)
	}

	return nil
}

// Metadata returns the value of a caller defined metadata key.
func (lkr *Linker) Metadata(key string) ([]byte, error) {
	return lkr.kv.Get("metadata", key)
}

// SetMetadata sets a caller defined metadata key.
func (lkr *Linker) SetMetadata(key string, val []byte) error {
	batch := lkr.kv.Batch()
	batch.Put(val, "metadata", key)
	return batch.Flush()
}

/////////////
// STAGING //
/////////////

// Stage adds `path` to the staging area.
func (lkr *Linker) Stage(path string) error {
	return lkr.staging.Stage(path)
}

// Unstage removes `path` from the staging area.
func (lkr *Linker) Unstage(path string) error {
	return lkr.staging.Unstage(path)
}

// Staged returns all staged paths in staging order.
func (lkr *Linker) Staged() ([]string, error) {
	return lkr.staging.List()
}

///////////////
// SNAPSHOTS //
///////////////

func (lkr *Linker) hashFile(path string) (string, error) {
	fd, err := lkr.src.Open(path)
	if err != nil {
		return "", ie.FileUnreadable(path, err)
	}

	defer fd.Close()

	sum, err := lkr.hasher.SumReader(fd)
	if err != nil {
		return "", ie.FileUnreadable(path, err)
	}

	return sum.Hex(), nil
}

// MakeSnapshot turns the staging area into a new snapshot on the
// current branch and clears the staging area afterwards.
// If any step fails, neither history nor staging area change.
func (lkr *Linker) MakeSnapshot(message string) (snap *Snapshot, err error) {
	// Only valid UTF-8 has a lossless canonical form.
	if !utf8.ValidString(message) {
		return nil, ie.ErrBadMessage
	}

	paths, err := lkr.staging.List()
	if err != nil {
		return nil, err
	}

	if len(paths) == 0 {
		return nil, ie.ErrNothingToSnapshot
	}

	branch, err := lkr.branches.Current()
	if err != nil {
		return nil, err
	}

	manifest := NewManifest(message)
	for _, path := range paths {
		digest, err := lkr.hashFile(path)
		if err != nil {
			return nil, err
		}

		manifest.Files[path] = digest
	}

	id, err := manifest.ID(lkr.hasher)
	if err != nil {
		return nil, err
	}

	history, err := lkr.store.History(branch)
	if err != nil {
		return nil, err
	}

	snap = &Snapshot{
		ID:       id,
		Manifest: manifest,
		Branch:   branch,
		Seq:      len(history),
		Created:  lkr.now().UTC().Truncate(time.Second),
	}

	batch := lkr.kv.Batch()
	defer func() {
		if err != nil {
			batch.Rollback()
		} else {
			err = batch.Flush()
		}

		if err != nil {
			snap = nil
		}
	}()

	if err := lkr.store.Append(batch, snap); err != nil {
		return nil, e.Wrapf(err, "append snapshot to `%s`", branch)
	}

	if err := lkr.staging.clear(batch); err != nil {
		return nil, err
	}

	log.Debugf("created snapshot %s on `%s` with %d file(s)", snap.ShortID(10), branch, len(paths))
	return snap, nil
}

// History returns the history of `branch`, oldest first.
func (lkr *Linker) History(branch string) ([]*Snapshot, error) {
	exists, err := lkr.branches.Exists(branch)
	if err != nil {
		return nil, err
	}

	if !exists {
		return nil, ie.ErrNoSuchBranch(branch)
	}

	return lkr.store.History(branch)
}

// CurrentHistory returns the history of the current branch.
func (lkr *Linker) CurrentHistory() ([]*Snapshot, error) {
	branch, err := lkr.branches.Current()
	if err != nil {
		return nil, err
	}

	return lkr.store.History(branch)
}

// Head returns the latest snapshot of the current branch or nil,
// if the branch has no snapshots yet.
func (lkr *Linker) Head() (*Snapshot, error) {
	history, err := lkr.CurrentHistory()
	if err != nil {
		return nil, err
	}

	if len(history) == 0 {
		return nil, nil
	}

	return history[len(history)-1], nil
}

var headRevPattern = regexp.MustCompile(`^(?i:HEAD)((\^+)|~(\d+))?$`)

var hexPattern = regexp.MustCompile(`^[0-9a-fA-F]+$`)

// ResolveRev finds the snapshot described by `rev`. Possible forms are:
//
//   HEAD, HEAD^, HEAD^^, HEAD~3  - relative to the latest snapshot
//   <branch>                     - latest snapshot of a branch
//   <id>                         - full id or unique prefix (at least 4 chars)
func (lkr *Linker) ResolveRev(rev string) (*Snapshot, error) {
	if match := headRevPattern.FindStringSubmatch(rev); match != nil {
		back := len(match[2])
		if match[3] != "" {
			n, err := strconv.Atoi(match[3])
			if err != nil {
				return nil, ie.ErrNoSuchSnapshot(rev)
			}

			back = n
		}

		history, err := lkr.CurrentHistory()
		if err != nil {
			return nil, err
		}

		idx := len(history) - 1 - back
		if idx < 0 {
			return nil, ie.ErrNoSuchSnapshot(rev)
		}

		return history[idx], nil
	}

	exists, err := lkr.branches.Exists(rev)
	if err != nil {
		return nil, err
	}

	if exists {
		history, err := lkr.store.History(rev)
		if err != nil {
			return nil, err
		}

		if len(history) == 0 {
			return nil, ie.ErrNoSuchSnapshot(rev)
		}

		return history[len(history)-1], nil
	}

	return lkr.ExpandAbbrev(rev)
}

// ExpandAbbrev finds the snapshot whose id starts with `abbrev`,
// searching the current branch first and then all others.
func (lkr *Linker) ExpandAbbrev(abbrev string) (*Snapshot, error) {
	if len(abbrev) < MinAbbrevLength || !hexPattern.MatchString(abbrev) {
		return nil, ie.ErrNoSuchSnapshot(abbrev)
	}

	abbrev = strings.ToLower(abbrev)

	current, err := lkr.branches.Current()
	if err != nil {
		return nil, err
	}

	names, err := lkr.branches.Names()
	if err != nil {
		return nil, err
	}

	// Search the current branch first.
	ordered := []string{current}
	for _, name := range names {
		if name != current {
			ordered = append(ordered, name)
		}
	}

	var found *Snapshot
	for _, name := range ordered {
		history, err := lkr.store.History(name)
		if err != nil {
			return nil, err
		}

		for _, snap := range history {
			if !strings.HasPrefix(snap.ID, abbrev) {
				continue
			}

			if found == nil {
				found = snap
				continue
			}

			// The same manifest might be part of several histories.
			if found.ID != snap.ID {
				return nil, ie.ErrAmbiguousRev
			}
		}
	}

	if found == nil {
		return nil, ie.ErrNoSuchSnapshot(abbrev)
	}

	return found, nil
}

//////////////
// BRANCHES //
//////////////

// CreateBranch adds a new, empty branch without switching to it.
func (lkr *Linker) CreateBranch(name string) error {
	return lkr.branches.Create(name)
}

// SwitchBranch makes `name` the current branch.
func (lkr *Linker) SwitchBranch(name string) error {
	return lkr.branches.Switch(name)
}

// CurrentBranch returns the name of the current branch.
func (lkr *Linker) CurrentBranch() (string, error) {
	return lkr.branches.Current()
}

// Branches returns all branch names, sorted.
func (lkr *Linker) Branches() ([]string, error) {
	return lkr.branches.Names()
}

// State returns a consistent view of branches, current branch and staging.
func (lkr *Linker) State() (*State, error) {
	names, err := lkr.branches.Names()
	if err != nil {
		return nil, err
	}

	current, err := lkr.branches.Current()
	if err != nil {
		return nil, err
	}

	staged, err := lkr.staging.List()
	if err != nil {
		return nil, err
	}

	return &State{
		Branches: names,
		Current:  current,
		Staged:   staged,
	}, nil
}
