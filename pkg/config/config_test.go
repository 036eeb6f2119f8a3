package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DOCSHELF_POSTGRES_URL", "postgres://localhost/docshelf_test")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.False(t, cfg.Cache.Enabled)
	assert.True(t, cfg.Observability.MetricsEnabled)
	assert.Equal(t, int64(25<<20), cfg.Upload.MaxFileSize)
	assert.Contains(t, cfg.Upload.AllowedExtensions, ".pdf")
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("DOCSHELF_POSTGRES_URL", "postgres://localhost/docshelf_test")
	t.Setenv("DOCSHELF_PORT", "8888")
	t.Setenv("DOCSHELF_LOG_LEVEL", "debug")
	t.Setenv("DOCSHELF_ALLOWED_EXTENSIONS", "pdf, .TXT")
	t.Setenv("DOCSHELF_MAX_FILE_SIZE", "1024")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8888", cfg.Server.Port)
	assert.Equal(t, []string{".pdf", ".txt"}, cfg.Upload.AllowedExtensions)
	assert.Equal(t, int64(1024), cfg.Upload.MaxFileSize)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docshelf.yaml")
	content := `
server:
  port: "7070"
database:
  url: postgres://localhost/docshelf_file
upload:
  allowed_extensions: [".pdf"]
  max_file_size: 2048
  base_path: /tmp/docshelf
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("DOCSHELF_CONFIG_FILE", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "postgres://localhost/docshelf_file", cfg.Database.URL)
	assert.Equal(t, int64(2048), cfg.Upload.MaxFileSize)
}

func TestLoadConfigEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docshelf.yaml")
	content := `
server:
  port: "7070"
database:
  url: postgres://localhost/docshelf_file
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("DOCSHELF_CONFIG_FILE", path)
	t.Setenv("DOCSHELF_PORT", "6060")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "6060", cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing postgres URL",
			mutate:  func(c *Config) { c.Database.URL = "" },
			wantErr: "postgres URL is required",
		},
		{
			name: "same port for server and health",
			mutate: func(c *Config) {
				c.Server.HealthPort = c.Server.Port
			},
			wantErr: "must be different",
		},
		{
			name: "cache enabled without URL",
			mutate: func(c *Config) {
				c.Cache.Enabled = true
				c.Cache.URL = ""
			},
			wantErr: "redis URL is required",
		},
		{
			name: "no allowed extensions",
			mutate: func(c *Config) {
				c.Upload.AllowedExtensions = nil
			},
			wantErr: "at least one allowed extension",
		},
		{
			name: "extension without dot",
			mutate: func(c *Config) {
				c.Upload.AllowedExtensions = []string{"pdf"}
			},
			wantErr: "must start with a dot",
		},
		{
			name: "zero max file size",
			mutate: func(c *Config) {
				c.Upload.MaxFileSize = 0
			},
			wantErr: "max file size must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Database.URL = "postgres://localhost/docshelf_test"
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestUploadPolicyAllows(t *testing.T) {
	policy := UploadPolicy{AllowedExtensions: []string{".pdf", ".docx"}}

	assert.True(t, policy.Allows(".pdf"))
	assert.True(t, policy.Allows(".PDF"))
	assert.True(t, policy.Allows(".docx"))
	assert.False(t, policy.Allows(".exe"))
	assert.False(t, policy.Allows(""))
}

func TestLoadUploadPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docshelf.yaml")
	content := `
upload:
  allowed_extensions: [".pdf"]
  max_file_size: 1024
  base_path: /tmp/docshelf
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	policy, err := LoadUploadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, []string{".pdf"}, policy.AllowedExtensions)
	assert.Equal(t, int64(1024), policy.MaxFileSize)

	t.Run("invalid policy rejected", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("upload:\n  max_file_size: -1\n"), 0o644))
		_, err := LoadUploadPolicy(path)
		require.Error(t, err)
	})
}
