package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fluxdag/fluxdag/internal/config"
	"github.com/fluxdag/fluxdag/internal/logger"
	"github.com/fluxdag/fluxdag/internal/registry"
)

// loadConfig builds a Config from defaults, environment, and --config's
// file, then applies any of flags the caller actually set on cmd, so flags
// take precedence the way config.Load's own doc comment promises.
func loadConfig(cmd *cobra.Command, overridable []commandLineFlag) (*config.Config, error) {
	path, _ := cmd.Flags().GetString(configFlag.name)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	for _, f := range overridable {
		v, ok := changedString(cmd, f.name)
		if !ok {
			continue
		}
		if err := applyOverride(cfg, f.name, v); err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Lookup(useNsFlagName) != nil {
		applyRegistryFlag(cmd, cfg)
	}

	return cfg, nil
}

func applyOverride(cfg *config.Config, name, value string) error {
	switch name {
	case coordinatorHostFlag.name:
		cfg.CoordinatorHost = value
	case coordinatorPortFlag.name:
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid --%s: %w", name, err)
		}
		cfg.CoordinatorPort = port
	case urifileFlag.name:
		cfg.URIFile = value
	case redisAddrFlag.name:
		cfg.RedisAddr = value
	case pipelineNameFlag.name:
		cfg.PipelineName = value
	case checkpointPathFlag.name:
		cfg.CheckpointPath = value
	case queueFlag.name:
		cfg.Queue = config.Queue(value)
	}
	return nil
}

func buildLogger(cfg *config.Config) logger.Logger {
	var opts []logger.Option
	if cfg.Debug {
		opts = append(opts, logger.WithDebug())
	}
	if cfg.LogFormat != "" {
		opts = append(opts, logger.WithFormat(cfg.LogFormat))
	}
	return logger.NewLogger(opts...)
}

// buildRegistry returns the configured coordinator-address discovery
// backend and a cleanup func to release it (closing the Redis client, or a
// no-op for the file backend).
func buildRegistry(cfg *config.Config) (registry.Registry, func() error, error) {
	switch cfg.Registry {
	case config.RegistryRedis:
		r, err := registry.NewRedisRegistry(cfg.RedisAddr)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to redis registry: %w", err)
		}
		return r, r.Close, nil
	default:
		return registry.NewFileRegistry(cfg.URIFile), func() error { return nil }, nil
	}
}
