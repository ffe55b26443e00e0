package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/matchlink/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "role: primary\ndatabase: /var/lib/matchlink/device.db\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, model.RolePrimary, cfg.DeviceRole())
	assert.Equal(t, "/var/lib/matchlink/device.db", cfg.Database)
	assert.Equal(t, "info", cfg.LogLevel, "default level")
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "role: primary\ndatabase: original.db\nlog_level: warn\n")

	t.Setenv("MATCHLINK_ROLE", "companion")
	t.Setenv("MATCHLINK_DB", "override.db")
	t.Setenv("MATCHLINK_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, model.RoleCompanion, cfg.DeviceRole())
	assert.Equal(t, "override.db", cfg.Database)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"bad role", "role: referee\ndatabase: d.db\n", "invalid role"},
		{"missing database", "role: primary\n", "database path is required"},
		{"bad log level", "role: primary\ndatabase: d.db\nlog_level: loud\n", "invalid log_level"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadBadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "role: [unterminated\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
