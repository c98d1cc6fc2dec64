package main

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
	path := filepath.Join(t.TempDir(), "stress.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[workload]
duration = "3s"
capacity = 64
erase_ratio = 0.5

[replica]
enabled = false

[logging]
format = "json"

[report]
format = "yaml"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Workload.Duration)
	assert.Equal(t, 64, cfg.Workload.Capacity)
	assert.Equal(t, 0.5, cfg.Workload.EraseRatio)
	assert.False(t, cfg.Replica.Enabled)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "yaml", cfg.Report.Format)

	// Untouched keys keep their defaults.
	assert.Equal(t, 256, cfg.Workload.OpsPerTick)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadRejectsBadValues(t *testing.T) {
	for name, body := range map[string]string{
		"capacity": "[workload]\ncapacity = 0\n",
		"ratio":    "[workload]\nerase_ratio = 1.5\n",
		"format":   "[report]\nformat = \"html\"\n",
		"syntax":   "[workload\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
