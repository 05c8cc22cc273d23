// Copyright (C) 2024 The Dagu Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fluxdag/fluxdag/internal/build"
	"github.com/fluxdag/fluxdag/internal/cli"
	"github.com/fluxdag/fluxdag/internal/config"
	"github.com/fluxdag/fluxdag/internal/logger"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   build.Slug,
		Short: build.AppName + " is a distributed pipeline scheduler.",
		Long:  build.AppName + " builds a DAG from a pipeline definition, dispatches its stages to workers through a coordinator, and checkpoints progress so an interrupted run can resume where it left off.",
	}

	runCmd := cli.CmdRun()
	attachRunLogFile(runCmd)

	root.AddCommand(
		runCmd,
		cli.CmdCoordinator(),
		cli.CmdWorker(),
		cli.CmdStatus(),
		cli.CmdExport(),
	)
	return root
}

func main() {
	build.Version = version

	// A *digraph.ConfigError surfaces here for an invalid pipeline (a cycle,
	// a duplicate output, a missing field): nothing was ever scheduled, so
	// there is no checkpoint to write and none is attempted; it maps to the
	// same nonzero exit as any other command failure.
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// attachRunLogFile wraps runCmd's RunE so every `run` invocation writes its
// logs to a per-run file under ./logs (named after the pipeline and a
// request ID) in addition to stdout, by attaching a Logger to the command's
// context before RunE sees it; runPipeline only builds its own logger when
// none is already attached (see logger.HasLogger).
func attachRunLogFile(runCmd *cobra.Command) {
	inner := runCmd.RunE
	runCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return inner(cmd, args)
		}

		cfgPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		requestID := uuid.New().String()
		pipelineName := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))

		f, err := openLogFile(logFileSettings{
			Prefix:       "run_",
			LogDir:       "./logs",
			PipelineName: pipelineName,
			RequestID:    requestID,
		})
		if err != nil {
			return fmt.Errorf("open run log file: %w", err)
		}
		defer f.Close()

		log := buildLoggerWithFile(cfg, false, f)
		cmd.SetContext(logger.WithLogger(cmd.Context(), log))
		return inner(cmd, args)
	}
}
