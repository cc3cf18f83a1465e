package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("CHATTER_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	t.Setenv("MONGODB_DATABASE", "chatter_test")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("JWT_SECRET", "testsecret123456789012345678901234")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "mongodb://localhost:27017/testdb", cfg.MongoDB.URI)
	require.Equal(t, "chatter_test", cfg.MongoDB.Database)
	require.Equal(t, 10*time.Second, cfg.MongoDB.Timeout)
	require.Equal(t, "localhost", cfg.Redis.Host)
	require.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenTTL)
	require.Equal(t, "session:", cfg.Sessions.KeyPrefix)
}

func TestLoadConfig_MongoOptional(t *testing.T) {
	t.Setenv("CHATTER_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("MONGODB_URI", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Empty(t, cfg.MongoDB.URI)
	require.Equal(t, "0.0.0.0:3000", cfg.Server.Addr())
}

func TestLoadConfig_ReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SERVER_PORT=4100\nLOG_LEVEL=debug\n"), 0o600))
	t.Setenv("CHATTER_ENV_FILE", path)
	// godotenv does not override variables that are already set, so make
	// sure these are unset and restored afterwards.
	for _, k := range []string{"SERVER_PORT", "LOG_LEVEL"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "4100", cfg.Server.Port)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_RejectsBadTimeout(t *testing.T) {
	t.Setenv("CHATTER_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("MONGODB_TIMEOUT", "0")

	_, err := LoadConfig()
	require.Error(t, err)
}
