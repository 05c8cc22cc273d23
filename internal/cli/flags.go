// Package cli wires fluxdag's cobra command tree (coordinator, worker, run,
// status, export) to internal/config, internal/checkpoint,
// internal/registry and internal/pipelinespec.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/fluxdag/fluxdag/internal/config"
)

// commandLineFlag describes one string-valued cobra flag. Flags the caller
// actually sets take precedence over config.Load's own env/file/default
// resolution, applied afterward via changedString/applyOverride.
type commandLineFlag struct {
	name, shorthand, defaultValue, usage string
}

var (
	configFlag = commandLineFlag{
		name:      "config",
		shorthand: "c",
		usage:     "config file path",
	}
	coordinatorHostFlag = commandLineFlag{
		name:  "coordinator.host",
		usage: "coordinator gRPC host (overrides config)",
	}
	coordinatorPortFlag = commandLineFlag{
		name:  "coordinator.port",
		usage: "coordinator gRPC port (overrides config)",
	}
	urifileFlag = commandLineFlag{
		name:  "urifile",
		usage: "path to write/read the coordinator endpoint when --use-ns is not set",
	}
	redisAddrFlag = commandLineFlag{
		name:  "redis_addr",
		usage: "Redis address, required when --use-ns is set",
	}
	pipelineNameFlag = commandLineFlag{
		name:  "pipeline-name",
		usage: "pipeline name, used for checkpoint lookup and log correlation",
	}
	checkpointPathFlag = commandLineFlag{
		name:  "checkpoint_path",
		usage: "sqlite checkpoint database path",
	}
	queueFlag = commandLineFlag{
		name:  "queue",
		usage: "dispatch mode: pull or script-only",
	}
)

// useNsFlagName is the boolean flag selecting the Redis-backed "external
// name service" registry over the default urifile (spec.md §6's `use_ns`);
// registered directly rather than through commandLineFlag/initFlags, which
// only handle string flags.
const useNsFlagName = "use-ns"

// initFlags registers flags as string-valued cobra flags on cmd.
func initFlags(cmd *cobra.Command, flags []commandLineFlag) {
	for _, f := range flags {
		cmd.Flags().StringP(f.name, f.shorthand, f.defaultValue, f.usage)
	}
}

// initUseNsFlag registers the boolean --use-ns flag that selects the
// Redis-backed registry over --urifile; --urifile/--redis_addr themselves
// are registered like any other string flag via initFlags, so their
// .Changed state is picked up by the same overridable list loadConfig uses.
func initUseNsFlag(cmd *cobra.Command) {
	cmd.Flags().Bool(useNsFlagName, false, "use the Redis-backed name service instead of urifile to discover the coordinator")
}

// applyRegistryFlag overrides cfg.Registry to Redis when --use-ns was set.
func applyRegistryFlag(cmd *cobra.Command, cfg *config.Config) {
	if useNs, _ := cmd.Flags().GetBool(useNsFlagName); useNs {
		cfg.Registry = config.RegistryRedis
	}
}

// changedString reports the value of the named flag on cmd, but only if the
// user actually set it; config.Load already applies env/file/defaults, so a
// flag the caller never touched must not shadow those.
func changedString(cmd *cobra.Command, name string) (string, bool) {
	f := cmd.Flags().Lookup(name)
	if f == nil || !f.Changed {
		return "", false
	}
	return f.Value.String(), true
}
