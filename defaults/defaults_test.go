package defaults

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultsRoundtrip(t *testing.T) {
	cfg, err := NewDefaultConfig()
	require.Nil(t, err)

	require.Equal(t, "sha1", cfg.String("repo.hash_algorithm"))
	require.Equal(t, "disk", cfg.String("repo.database"))
	require.Equal(t, "manifest", cfg.String("snapshot.strategy"))
	require.Equal(t, int64(7), cfg.Int("snapshot.short_id_length"))
	require.Equal(t, 5*time.Second, cfg.Duration("lock.timeout"))
	require.True(t, cfg.Bool("lock.enabled"))

	require.Nil(t, cfg.SetString("repo.id", "some-id"))
	require.Nil(t, cfg.SetString("repo.database", "badger"))

	path := filepath.Join(t.TempDir(), "config.yml")
	require.Nil(t, SaveConfig(path, cfg))

	loaded, err := OpenMigratedConfig(path)
	require.Nil(t, err)
	require.Equal(t, "some-id", loaded.String("repo.id"))
	require.Equal(t, "badger", loaded.String("repo.database"))
	require.Equal(t, "sha1", loaded.String("repo.hash_algorithm"))
}

func TestSetValidatesValues(t *testing.T) {
	cfg, err := NewDefaultConfig()
	require.Nil(t, err)

	require.NotNil(t, cfg.SetString("repo.hash_algorithm", "md5"))
	require.NotNil(t, cfg.SetString("snapshot.strategy", "zip"))
	require.NotNil(t, cfg.SetInt("snapshot.short_id_length", 2))
	require.NotNil(t, cfg.SetString("lock.timeout", "soon"))

	require.Nil(t, cfg.SetString("repo.hash_algorithm", "sha256"))
	require.Nil(t, cfg.SetInt("snapshot.short_id_length", 12))
	require.Nil(t, cfg.SetString("lock.timeout", "1m"))
	require.Equal(t, time.Minute, cfg.Duration("lock.timeout"))
}

func TestOpenMissingConfig(t *testing.T) {
	_, err := OpenMigratedConfig(filepath.Join(t.TempDir(), "nope.yml"))
	require.NotNil(t, err)
}

func TestValidators(t *testing.T) {
	enum := EnumValidator("a", "b")
	require.Nil(t, enum("a"))
	require.NotNil(t, enum("c"))
	require.NotNil(t, enum(1))

	rng := IntRangeValidator(4, 10)
	require.Nil(t, rng(int64(4)))
	require.Nil(t, rng(10))
	require.NotNil(t, rng(int64(3)))
	require.NotNil(t, rng(int64(11)))
	require.NotNil(t, rng("5"))

	dur := DurationValidator()
	require.Nil(t, dur("10ms"))
	require.NotNil(t, dur("-1s"))
	require.NotNil(t, dur("x"))
	require.NotNil(t, dur(5))
}
