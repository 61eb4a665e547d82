package core

import (
	"encoding/json"

	e "github.com/pkg/errors"
	"github.com/sahib/snap/catfs/db"
)

// SnapshotStore persists the append-only history of every branch.
type SnapshotStore interface {
	// Append adds `snap` to the end of the history of snap.Branch.
	// Writes to the database go into `batch`, so they succeed or fail
	// together with the other changes of a snapshot.
	Append(batch db.Batch, snap *Snapshot) error

	// History returns all snapshots of `branch`, oldest first.
	// A branch without snapshots has an empty history.
	History(branch string) ([]*Snapshot, error)
}

// KvSnapshotStore keeps each branch history as one database record.
type KvSnapshotStore struct {
	kv db.Database
}

// NewKvSnapshotStore returns a SnapshotStore persisted in `kv`.
func NewKvSnapshotStore(kv db.Database) *KvSnapshotStore {
	return &KvSnapshotStore{kv: kv}
}

// History is described in the SnapshotStore interface.
func (ks *KvSnapshotStore) History(branch string) ([]*Snapshot, error) {
	data, err := ks.kv.Get("history", branch)
	if err == db.ErrNoSuchKey {
		return []*Snapshot{}, nil
	}

	if err != nil {
		return nil, err
	}

	history := []*Snapshot{}
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, e.Wrapf(err, "corrupt history of `%s`", branch)
	}

	return history, nil
}

// Append is described in the SnapshotStore interface.
func (ks *KvSnapshotStore) Append(batch db.Batch, snap *Snapshot) error {
	history, err := ks.History(snap.Branch)
	if err != nil {
		return err
	}

	if snap.Seq != len(history) {
		return e.Errorf(
			"bad sequence number for `%s`: got %d, expected %d",
			snap.Branch, snap.Seq, len(history),
		)
	}

	data, err := json.Marshal(append(history, snap))
	if err != nil {
		return err
	}

	batch.Put(data, "history", snap.Branch)
	return nil
}
