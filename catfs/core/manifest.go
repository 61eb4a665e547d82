package core

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	h "github.com/sahib/snap/util/hashlib"
)

// Manifest maps every path of a snapshot to the hex digest of its content.
// Two manifests with the same files and message always have the same id,
// regardless of the order the files were staged in.
type Manifest struct {
	Files   map[string]string `json:"files"`
	Message string            `json:"message"`
}

// NewManifest returns an empty manifest with `message`.
func NewManifest(message string) *Manifest {
	return &Manifest{
		Files:   make(map[string]string),
		Message: message,
	}
}

// Paths returns all paths of the manifest in sorted order.
func (m *Manifest) Paths() []string {
	paths := make([]string, 0, len(m.Files))
	for path := range m.Files {
		paths = append(paths, path)
	}

	sort.Strings(paths)
	return paths
}

// CanonicalBytes serializes the manifest deterministically.
// encoding/json writes map keys in sorted order.
func (m *Manifest) CanonicalBytes() ([]byte, error) {
	files := m.Files
	if files == nil {
		files = map[string]string{}
	}

	return json.Marshal(struct {
		Files   map[string]string `json:"files"`
		Message string            `json:"message"`
	}{
		Files:   files,
		Message: m.Message,
	})
}

// ID computes the digest of the canonical form with `hasher`.
func (m *Manifest) ID(hasher *h.Hasher) (string, error) {
	data, err := m.CanonicalBytes()
	if err != nil {
		return "", err
	}

	return hasher.Digest(data), nil
}

// Snapshot is one immutable entry in the history of a branch.
type Snapshot struct {
	// ID is the digest of the manifest.
	ID       string    `json:"id"`
	Manifest *Manifest `json:"manifest"`
	Branch   string    `json:"branch"`
	Seq      int       `json:"seq"`

	// Created is informational only and not part of the ID.
	Created time.Time `json:"created"`
}

// ShortID returns the first `n` characters of the id.
func (snap *Snapshot) ShortID(n int) string {
	if n <= 0 || n >= len(snap.ID) {
		return snap.ID
	}

	return snap.ID[:n]
}

func (snap *Snapshot) String() string {
	return fmt.Sprintf("<snapshot %s #%d on %s>", snap.ShortID(10), snap.Seq, snap.Branch)
}
