package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultHasSaneRunnerValues(t *testing.T) {
	cfg := Default()
	require.Equal(t, IsolationLite, cfg.Runner.Isolation)
	require.True(t, cfg.Runner.CleanupProcess)
	require.Equal(t, uint64(4096), cfg.Runner.MemoryLimitMB)
	require.Equal(t, 12, cfg.Runner.GPUCompileCap)
	require.Equal(t, 1, cfg.Runner.GPURunCap)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadOverlaysYAMLOntoDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.yaml")
	yaml := "runner:\n  isolation: none\n  set_uid: 1000\ncommon:\n  logging_color: false\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, IsolationNone, cfg.Runner.Isolation)
	require.Equal(t, 1000, cfg.Runner.SetUID)
	require.False(t, cfg.Common.LoggingColor)
	// Fields not present in the YAML keep their Default() values.
	require.Equal(t, uint64(4096), cfg.Runner.MemoryLimitMB)
}

func TestEnvPathDefaultsToLocal(t *testing.T) {
	t.Setenv("SANDBOX_CONFIG", "")
	require.Equal(t, "configs/local.yaml", EnvPath("configs"))
}

func TestEnvPathHonorsEnvVar(t *testing.T) {
	t.Setenv("SANDBOX_CONFIG", "prod")
	require.Equal(t, "configs/prod.yaml", EnvPath("configs"))
}
