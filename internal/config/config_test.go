package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/teambot/core/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMemoryStorage(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
  admin_id: 42
storage:
  driver: Memory
review:
  group_id: -1001
  invite_link: " https://t.me/+team "
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, int64(42), cfg.Telegram.AdminID)
	assert.Equal(t, coreconfig.RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, coreconfig.RateLimitMemory, cfg.RateLimit.Backend)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.False(t, cfg.UsesDatabase())
	assert.Equal(t, "https://t.me/+team", cfg.Review.InviteLink)
	assert.Same(t, &cfg.Config, cfg.CoreConfig())
}

func TestLoadPostgresDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
database:
  host: db
  name: teambot
review:
  group_id: -1001
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.UsesDatabase())
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "migrations", cfg.Database.MigrationsDir)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "from-file"
storage:
  driver: memory
review:
  group_id: -1001
`)
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("REVIEW_GROUP_ID", "-2002")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, int64(-2002), cfg.Review.GroupID)
}

func TestNormalizeErrors(t *testing.T) {
	base := func() Config {
		var c Config
		c.Telegram.Token = "t"
		c.Storage.Driver = StorageMemory
		c.Review.GroupID = -1
		return c
	}

	c := base()
	c.Review.GroupID = 0
	assert.ErrorContains(t, c.Normalize(), "review.group_id")

	c = base()
	c.Storage.Driver = "sqlite"
	assert.ErrorContains(t, c.Normalize(), "storage.driver")

	c = base()
	c.Storage.Driver = StoragePostgres
	assert.ErrorContains(t, c.Normalize(), "database.host")

	c = base()
	c.RateLimit.Backend = coreconfig.RateLimitRedis
	assert.ErrorContains(t, c.Normalize(), "redis.addr")

	c = base()
	c.RateLimit.ExcludeUpdates = []string{"Command", "callback"}
	require.NoError(t, c.Normalize())
	assert.Equal(t, []string{"command", "callback"}, c.RateLimit.ExcludeUpdates)
}
