// Package config loads fluxdag's runtime configuration via
// github.com/spf13/viper from environment variables (including any loaded
// from an optional .env file) and a config file, with environment values
// taking precedence over the file. Command-line flags are applied by the
// caller on top of the loaded Config.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Queue selects how a run's stages are dispatched to workers.
type Queue string

const (
	// QueuePull is the default: workers poll the coordinator for runnable stages.
	QueuePull Queue = "pull"
	// QueueScriptOnly renders a batch-submission script instead of running anything.
	QueueScriptOnly Queue = "script-only"
)

// RegistryBackend selects how workers discover the coordinator's address.
type RegistryBackend string

const (
	// RegistryFile is the default: coordinator address is read from/written to a file.
	RegistryFile RegistryBackend = "file"
	// RegistryRedis uses Redis as an external name service.
	RegistryRedis RegistryBackend = "redis"
)

// Config holds every setting the coordinator, worker and CLI commands need.
// Zero values are filled in by Load via defaults and environment overrides.
type Config struct {
	// Debug enables debug-level logging and source-location attribution.
	Debug bool
	// LogFormat is "text" or "json". Defaults to "text".
	LogFormat string

	// CoordinatorHost and CoordinatorPort are the gRPC listen/dial address.
	CoordinatorHost string
	CoordinatorPort int

	// WorkerConcurrency bounds how many stages a worker runs at once. 0 means 1.
	WorkerConcurrency int
	// WorkerLabels are static labels merged with worker.HostLabels at registration.
	WorkerLabels map[string]string

	// CheckpointPath is the sqlite database file the coordinator persists state to.
	CheckpointPath string

	// Registry selects the coordinator-address discovery backend.
	Registry RegistryBackend
	// URIFile is the path registry.FileRegistry reads/writes.
	URIFile string
	// RedisAddr is the Redis server address used by registry.RedisRegistry.
	RedisAddr string

	// Queue selects dispatch mode for `fluxdag run`.
	Queue Queue
	// NumExec is the configured num_exec value. `fluxdag run` takes its local
	// worker count from its own --num-exec flag and does not read this field.
	NumExec int
	// PipelineName identifies the run for log correlation and checkpoint lookups.
	PipelineName string

	// PassThrough carries the entries of the `opt` map from the config file or
	// environment verbatim; the core never interprets them. No command-line
	// flag sets it.
	PassThrough map[string]string
}

const envPrefix = "FLUXDAG"

// Load builds a Config from defaults, an optional .env file, environment
// variables prefixed FLUXDAG_, and a config file if one is present at path
// (empty path skips the file). Load owns a private viper instance, so it
// has no notion of command-line flags; a caller that wants flags to take
// precedence applies them as overrides onto the returned Config (see
// internal/cli's changedString/applyOverride).
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file %s: %w", path, err)
			}
		}
	}

	cfg := &Config{
		Debug:             v.GetBool("debug"),
		LogFormat:         v.GetString("log_format"),
		CoordinatorHost:   v.GetString("coordinator.host"),
		CoordinatorPort:   v.GetInt("coordinator.port"),
		WorkerConcurrency: v.GetInt("worker.concurrency"),
		CheckpointPath:    v.GetString("checkpoint_path"),
		Registry:          RegistryBackend(v.GetString("registry")),
		URIFile:           v.GetString("urifile"),
		RedisAddr:         v.GetString("redis_addr"),
		Queue:             Queue(v.GetString("queue")),
		NumExec:           v.GetInt("num_exec"),
		PipelineName:      v.GetString("pipeline_name"),
		PassThrough:       map[string]string{},
	}

	for k, val := range v.GetStringMapString("opt") {
		cfg.PassThrough[k] = val
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_format", "text")
	v.SetDefault("coordinator.host", "localhost")
	v.SetDefault("coordinator.port", 8585)
	v.SetDefault("worker.concurrency", 1)
	v.SetDefault("checkpoint_path", filepath.Join(defaultStateDir(), "checkpoint.db"))
	v.SetDefault("registry", string(RegistryFile))
	v.SetDefault("urifile", filepath.Join(defaultStateDir(), "coordinator.uri"))
	v.SetDefault("queue", string(QueuePull))
	v.SetDefault("num_exec", 1)
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "fluxdag")
	}
	return filepath.Join(home, ".local", "share", "fluxdag")
}

func (c *Config) validate() error {
	switch c.Registry {
	case RegistryFile, RegistryRedis:
	default:
		return fmt.Errorf("invalid registry backend %q", c.Registry)
	}
	if c.Registry == RegistryRedis && c.RedisAddr == "" {
		return fmt.Errorf("redis_addr is required when registry=redis")
	}
	if c.WorkerConcurrency < 0 {
		return fmt.Errorf("worker concurrency cannot be negative")
	}
	return nil
}
