package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("AI_API_KEY", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "none", cfg.Database.Driver)
	assert.Equal(t, 2*time.Hour, cfg.Server.SessionTTL)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.TextModel)
	assert.Equal(t, cfg.AI.TextModel, cfg.AI.VisionModel)
	assert.False(t, cfg.MinioEnabled())
	assert.False(t, cfg.DiscordEnabled())
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	p := writeConfig(t, `
server:
  port: 9090
  apiKeys:
    soc-team: k1
  sessionTTL: 30m
ai:
  apiKey: from-file
  textModel: gemini-2.5-flash
database:
  driver: Postgres
  host: db
  user: sentinel
  password: s3cret
  name: sentinel
`)
	t.Setenv("AI_API_KEY", "from-env")

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "k1", cfg.Server.APIKeys["soc-team"])
	assert.Equal(t, 30*time.Minute, cfg.Server.SessionTTL)
	assert.Equal(t, "from-env", cfg.AI.APIKey)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres://sentinel:s3cret@db:5432/sentinel?sslmode=disable", cfg.PostgresDSN())
}

func TestMySQLDSN(t *testing.T) {
	var cfg Config
	cfg.Database.Driver = "mysql"
	cfg.Database.Host = "localhost"
	cfg.Database.User = "root"
	cfg.Database.Password = "pw"
	cfg.Database.Name = "sentinel"
	cfg.applyDefaults()

	assert.Equal(t, "root:pw@tcp(localhost:3306)/sentinel?parseTime=true&charset=utf8mb4&loc=UTC", cfg.MySQLDSN())
}

func TestSQLiteDefaultPath(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	cfg, err := Load(writeConfig(t, "server:\n  port: 8081\n"))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "data/sentinel.db", cfg.Database.Path)
}

func TestLoadRejectsBadConfig(t *testing.T) {
	_, err := Load(writeConfig(t, "database:\n  driver: oracle\n"))
	assert.ErrorContains(t, err, "database.driver")

	t.Setenv("DISCORD_TOKEN", "tok")
	t.Setenv("DISCORD_CHANNEL_ID", "")
	_, err = Load(writeConfig(t, "server:\n  port: 8080\n"))
	assert.ErrorContains(t, err, "discord")

	_, err = Load(writeConfig(t, "server: [\n"))
	assert.Error(t, err)
}
