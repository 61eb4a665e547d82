package core

import (
	"encoding/json"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sahib/snap/catfs/db"
	ie "github.com/sahib/snap/catfs/errors"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultBranch is created on init and checked out afterwards.
	DefaultBranch = "main"
)

// ValidateBranchName checks if `name` can be used as branch name.
// Branch names end up as database keys and directory names.
func ValidateBranchName(name string) error {
	if name == "" || name == "." || name == ".." || strings.EqualFold(name, "HEAD") || !utf8.ValidString(name) {
		return ie.ErrBadBranchName(name)
	}

	for _, r := range name {
		if r == '/' || r == '\\' || unicode.IsSpace(r) || unicode.IsControl(r) {
			return ie.ErrBadBranchName(name)
		}
	}

	return nil
}

// BranchRegistry keeps the set of branch names and the current branch.
type BranchRegistry struct {
	kv db.Database
}

// NewBranchRegistry returns a registry persisted in `kv`.
func NewBranchRegistry(kv db.Database) *BranchRegistry {
	return &BranchRegistry{kv: kv}
}

// Names returns all branch names, sorted.
func (br *BranchRegistry) Names() ([]string, error) {
	data, err := br.kv.Get("branches", "names")
	if err == db.ErrNoSuchKey {
		return []string{}, nil
	}

	if err != nil {
		return nil, err
	}

	names := []string{}
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, err
	}

	sort.Strings(names)
	return names, nil
}

// Exists checks if a branch called `name` exists.
func (br *BranchRegistry) Exists(name string) (bool, error) {
	names, err := br.Names()
	if err != nil {
		return false, err
	}

	idx := sort.SearchStrings(names, name)
	return idx < len(names) && names[idx] == name, nil
}

// Current returns the name of the current branch.
func (br *BranchRegistry) Current() (string, error) {
	data, err := br.kv.Get("refs", "HEAD")
	if err == db.ErrNoSuchKey {
		return "", ie.ErrNotInitialized
	}

	if err != nil {
		return "", err
	}

	return string(data), nil
}

func (br *BranchRegistry) saveNames(batch db.Batch, names []string) error {
	sort.Strings(names)
	data, err := json.Marshal(names)
	if err != nil {
		return err
	}

	batch.Put(data, "branches", "names")
	return nil
}

// Create adds a new branch with empty history. It does not switch to it.
func (br *BranchRegistry) Create(name string) (err error) {
	if err := ValidateBranchName(name); err != nil {
		return err
	}

	names, err := br.Names()
	if err != nil {
		return err
	}

	for _, existing := range names {
		if existing == name {
			return ie.ErrBranchExists(name)
		}
	}

	batch := br.kv.Batch()
	defer func() {
		if err != nil {
			batch.Rollback()
		} else {
			err = batch.Flush()
		}
	}()

	log.Debugf("creating branch `%s`", name)
	return br.saveNames(batch, append(names, name))
}

// Switch makes `name` the current branch. The staging area is not touched.
func (br *BranchRegistry) Switch(name string) error {
	exists, err := br.Exists(name)
	if err != nil {
		return err
	}

	if !exists {
		return ie.ErrNoSuchBranch(name)
	}

	batch := br.kv.Batch()
	batch.Put([]byte(name), "refs", "HEAD")
	return batch.Flush()
}

// init creates the default branch and points HEAD to it.
func (br *BranchRegistry) init(batch db.Batch) error {
	if err := br.saveNames(batch, []string{DefaultBranch}); err != nil {
		return err
	}

	batch.Put([]byte(DefaultBranch), "refs", "HEAD")
	return nil
}
