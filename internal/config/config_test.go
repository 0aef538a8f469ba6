package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name        string
		modify      func(c *Config)
		expectedErr error
	}{
		{
			name:   "valid default with database url",
			modify: func(c *Config) { c.DatabaseURL = "postgres://localhost/survey" },
		},
		{
			name:        "missing database url",
			modify:      func(c *Config) {},
			expectedErr: ErrDatabaseURLRequired,
		},
		{
			name: "unknown storage type",
			modify: func(c *Config) {
				c.DatabaseURL = "postgres://localhost/survey"
				c.Storage.Type = "vercel"
			},
			expectedErr: ErrUnknownStorageType,
		},
		{
			name: "minio storage",
			modify: func(c *Config) {
				c.DatabaseURL = "postgres://localhost/survey"
				c.Storage.Type = StorageTypeMinIO
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := defaultConfig()
			tc.modify(&c)

			err := c.Validate()
			if tc.expectedErr != nil {
				require.True(t, errors.Is(err, tc.expectedErr), "expected %v, got %v", tc.expectedErr, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/survey")
	t.Setenv("STORAGE_TYPE", "local")
	t.Setenv("DEFAULT_VOTING_PERIOD", "48h")
	t.Setenv("MAX_IMAGE_SIZE", "1024")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.example, http://b.example ,")
	t.Setenv("MINIO_USE_SSL", "true")

	c, err := FromEnv(defaultConfig(), NewConfigLogger())
	require.NoError(t, err)

	require.Equal(t, "postgres://env/survey", c.DatabaseURL)
	require.Equal(t, StorageTypeLocal, c.Storage.Type)
	require.Equal(t, 48*time.Hour, c.DefaultVotingPeriod)
	require.Equal(t, int64(1024), c.MaxImageSize)
	require.Equal(t, []string{"http://a.example", "http://b.example"}, c.AllowOrigins)
	require.True(t, c.Storage.MinIO.UseSSL)
}

func TestFromEnv_InvalidDuration(t *testing.T) {
	t.Setenv("DEFAULT_VOTING_PERIOD", "forever")

	c, err := FromEnv(defaultConfig(), NewConfigLogger())
	require.Error(t, err)
	require.Equal(t, 24*time.Hour, c.DefaultVotingPeriod)
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
port: "9090"
database_url: postgres://file/survey
default_voting_period: 2h
storage:
  type: minio
  minio:
    endpoint: minio:9000
    bucket: images
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	c, err := FromFile(path, defaultConfig(), NewConfigLogger())
	require.NoError(t, err)

	require.Equal(t, "9090", c.Port)
	require.Equal(t, "postgres://file/survey", c.DatabaseURL)
	require.Equal(t, 2*time.Hour, c.DefaultVotingPeriod)
	require.Equal(t, StorageTypeMinIO, c.Storage.Type)
	require.Equal(t, "minio:9000", c.Storage.MinIO.Endpoint)
	require.Equal(t, "images", c.Storage.MinIO.Bucket)
	require.Equal(t, "localhost", c.Host)
}

func TestFromFile_Missing(t *testing.T) {
	c, err := FromFile(filepath.Join(t.TempDir(), "nope.yaml"), defaultConfig(), NewConfigLogger())
	require.NoError(t, err)
	require.Equal(t, defaultConfig().Port, c.Port)
}

func TestFromFlags(t *testing.T) {
	c := FromFlags(defaultConfig(), []string{"--port", "7000", "--debug"}, NewConfigLogger())
	require.Equal(t, "7000", c.Port)
	require.True(t, c.Debug)
}

func TestLogBuffer_FlushToZap(t *testing.T) {
	buffer := NewConfigLogger()
	buffer.Info("first")
	buffer.Warn("second", zap.String("key", "value"))
	require.Len(t, buffer.entries, 2)

	buffer.FlushToZap(zap.NewNop())
	require.Empty(t, buffer.entries)
}
