package catfs

import (
	"fmt"
	"strings"

	"github.com/sahib/snap/catfs/core"
	"github.com/sahib/snap/catfs/db"
	"github.com/sahib/snap/util"
	h "github.com/sahib/snap/util/hashlib"
)

const (
	// StrategyManifest keeps every history in the database.
	StrategyManifest = "manifest"
	// StrategyDirCopy copies every snapshot's files into a directory.
	StrategyDirCopy = "dircopy"
)

// Config can be used to control specific behaviours of the filesystem.
// It's designed to be a human readable configuration, that will be parsed
// when instancing the filesystem.
type Config struct {
	// HashAlgo names the algorithm used for content and manifest digests.
	HashAlgo string

	// Strategy is either StrategyManifest or StrategyDirCopy.
	Strategy string

	// SnapshotDir is where StrategyDirCopy writes to.
	SnapshotDir string

	// ShortIDLength is the number of characters ShortID() returns.
	ShortIDLength int
}

// DefaultConfig is a Config with sane default values
var DefaultConfig = &Config{
	HashAlgo:      h.DefaultAlgorithm,
	Strategy:      StrategyManifest,
	ShortIDLength: 7,
}

type config struct {
	hasher      *h.Hasher
	strategy    string
	snapshotDir string
	shortLen    int
}

func (cfg *Config) parseConfig() (*config, error) {
	if cfg == nil {
		cfg = DefaultConfig
	}

	algo := cfg.HashAlgo
	if algo == "" {
		algo = h.DefaultAlgorithm
	}

	if !h.IsValidAlgorithm(algo) {
		return nil, fmt.Errorf(
			"bad hash algorithm: %s (valid: %s)",
			algo, strings.Join(h.Algorithms(), ", "),
		)
	}

	hasher, err := h.NewHasher(algo)
	if err != nil {
		return nil, err
	}

	vfg := &config{
		hasher:      hasher,
		strategy:    cfg.Strategy,
		snapshotDir: cfg.SnapshotDir,
		shortLen:    util.Clamp(cfg.ShortIDLength, core.MinAbbrevLength, hasher.HexLength()),
	}

	switch vfg.strategy {
	case "":
		vfg.strategy = StrategyManifest
	case StrategyManifest:
	case StrategyDirCopy:
		if vfg.snapshotDir == "" {
			return nil, fmt.Errorf("strategy `%s` needs a snapshot directory", StrategyDirCopy)
		}
	default:
		return nil, fmt.Errorf("bad snapshot strategy: %v", cfg.Strategy)
	}

	return vfg, nil
}

func (vfg *config) newStore(kv db.Database, src core.FileSource) (core.SnapshotStore, error) {
	if vfg.strategy == StrategyDirCopy {
		return core.NewDirCopyStore(vfg.snapshotDir, kv, src, vfg.hasher)
	}

	return core.NewKvSnapshotStore(kv), nil
}
