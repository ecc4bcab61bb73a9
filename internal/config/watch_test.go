package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/sentinelai/internal/logger"
)

func TestWatchReloadsOnWrite(t *testing.T) {
	p := writeConfig(t, "server:\n  apiKeys:\n    soc: k1\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	require.NoError(t, Watch(ctx, p, logger.Discard(), func(c *Config) { got <- c }))

	// invalid content is ignored
	require.NoError(t, os.WriteFile(p, []byte("database:\n  driver: oracle\n"), 0o600))
	time.Sleep(400 * time.Millisecond)
	require.NoError(t, os.WriteFile(p, []byte("server:\n  apiKeys:\n    soc: k2\nlog:\n  level: debug\n"), 0o600))

	select {
	case cfg := <-got:
		assert.Equal(t, "k2", cfg.Server.APIKeys["soc"])
		assert.Equal(t, "debug", cfg.Log.Level)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}
}
