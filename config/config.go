// Package config loads the immutable process-wide configuration from a YAML
// file named by SANDBOX_CONFIG. The value is threaded explicitly through the
// service constructors; there is no mutable configuration singleton.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Isolation selects the L0 isolation strategy.
type Isolation string

const (
	IsolationNone Isolation = "none"
	IsolationLite Isolation = "lite"
)

// Runner carries the isolation and command-execution knobs.
type Runner struct {
	Isolation       Isolation `yaml:"isolation"`
	SetUID          int       `yaml:"set_uid"`
	CleanupProcess  bool      `yaml:"cleanup_process"`
	RestoreBash     bool      `yaml:"restore_bash"`
	MaxConcurrency  int       `yaml:"max_concurrency"`
	TmpRoot         string    `yaml:"tmp_root"`
	ScratchRoot     string    `yaml:"scratch_root"`
	SubnetPoolSize  int       `yaml:"subnet_pool_size"`
	SubnetWorkerEnv string    `yaml:"subnet_worker_env"`
	MemoryLimitMB   uint64    `yaml:"memory_limit_mb"`
	CPULimit        float64   `yaml:"cpu_limit"`
	GPUCompileCap   int       `yaml:"gpu_compile_cap"`
	GPURunCap       int       `yaml:"gpu_run_cap"`
}

// Common carries process-wide ambient toggles.
type Common struct {
	LoggingColor bool `yaml:"logging_color"`
}

// OnlineJudge carries connection strings for an external problem store. No
// SQL/JSONL backing store is implemented; this exists so the YAML schema
// round-trips and the dataset HTTP surface has somewhere to read a DSN from
// if ever wired to a real store.
type OnlineJudge struct {
	DatabaseDSN string `yaml:"database_dsn"`
	CacheDSN    string `yaml:"cache_dsn"`
}

// Config is the full immutable configuration value.
type Config struct {
	Runner      Runner      `yaml:"runner"`
	Common      Common      `yaml:"common"`
	OnlineJudge OnlineJudge `yaml:"online_judge"`
}

// Default returns the defaults used when no YAML file is found for the
// requested environment.
func Default() Config {
	return Config{
		Runner: Runner{
			Isolation:       IsolationLite,
			CleanupProcess:  true,
			RestoreBash:     false,
			MaxConcurrency:  16,
			TmpRoot:         "/tmp/sandboxd",
			ScratchRoot:     "/tmp/sandboxd-overlay",
			SubnetPoolSize:  64,
			SubnetWorkerEnv: "PYTEST_XDIST_WORKER",
			MemoryLimitMB:   4096,
			CPULimit:        1.0,
			GPUCompileCap:   12,
			GPURunCap:       1,
		},
		Common: Common{LoggingColor: true},
	}
}

// Load reads the YAML file at path, overlaying it onto Default(). Missing
// file is not an error; the caller is expected to have resolved path from
// SANDBOX_CONFIG already (see EnvPath).
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %v: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %v: %w", path, err)
	}
	return cfg, nil
}

// EnvPath resolves SANDBOX_CONFIG (e.g. "local", "prod") to a config file
// path under dir, defaulting to the "local" environment.
func EnvPath(dir string) string {
	name := os.Getenv("SANDBOX_CONFIG")
	if name == "" {
		name = "local"
	}
	return dir + "/" + name + ".yaml"
}
