package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults with required admin", func(t *testing.T) {
		t.Setenv("ADMIN_IDENTITY", " 0xadmin ")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Server.Addr)
		assert.Equal(t, "0xadmin", cfg.Registry.Administrator)
		assert.False(t, cfg.Registry.RequireHolderMatch)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
		assert.Empty(t, cfg.Database.URL)
		assert.Nil(t, cfg.Kafka.Brokers)
	})

	t.Run("missing admin is rejected", func(t *testing.T) {
		t.Setenv("ADMIN_IDENTITY", "")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ADMIN_IDENTITY")
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("ADMIN_IDENTITY", "0xadmin")
		t.Setenv("REQUIRE_HOLDER_MATCH", "true")
		t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
		t.Setenv("APPLY_RATE_PER_MINUTE", "5")

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.Registry.RequireHolderMatch)
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, 5, cfg.Registry.ApplyRatePerMinute)
	})

	t.Run("yaml file with env precedence", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "travelcred.yaml")
		require.NoError(t, os.WriteFile(path, []byte("ADMIN_IDENTITY: 0xfromfile\nADDR: \":9090\"\n"), 0o600))

		t.Setenv("CONFIG_FILE", path)
		t.Setenv("ADDR", ":7070")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "0xfromfile", cfg.Registry.Administrator)
		assert.Equal(t, ":7070", cfg.Server.Addr)
	})
}
