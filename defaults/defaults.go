package defaults

import (
	"bytes"
	"os"

	e "github.com/pkg/errors"
	"github.com/sahib/config"
	"github.com/sahib/snap/util"
)

// CurrentVersion is the current version of snap's config
const CurrentVersion = 0

// Defaults is the default validation for snap
var Defaults = DefaultsV0

// OpenMigratedConfig takes the config.yml at path and loads it.
// If required, it also migrates the config structure to the newest
// version - snap can always rely on the latest config keys to be present.
func OpenMigratedConfig(path string) (*config.Config, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, e.Wrap(err, "failed to open config")
	}

	defer fd.Close()

	// Add here any migrations with mgr.Add if needed.
	mgr := config.NewMigrater(CurrentVersion, config.StrictnessPanic)
	mgr.Add(0, nil, DefaultsV0)

	cfg, err := mgr.Migrate(config.NewYamlDecoder(fd))
	if err != nil {
		return nil, e.Wrap(err, "failed to migrate")
	}

	return cfg, nil
}

// NewDefaultConfig returns a config with only default values set.
func NewDefaultConfig() (*config.Config, error) {
	return config.Open(nil, Defaults, config.StrictnessPanic)
}

// SaveConfig writes `cfg` to `path` as YAML, replacing the file atomically.
func SaveConfig(path string, cfg *config.Config) error {
	buf := &bytes.Buffer{}
	if err := cfg.Save(config.NewYamlEncoder(buf)); err != nil {
		return e.Wrap(err, "failed to encode config")
	}

	return util.AtomicWriteFile(path, buf.Bytes(), 0600)
}
