// Package pipelinespec renders the driver-facing YAML pipeline definition
// into digraph.Stage values. It is the only place in fluxdag that knows
// about the on-disk pipeline format; everything downstream deals only in
// digraph.Stage.
package pipelinespec

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/fluxdag/fluxdag/internal/digraph"
)

type document struct {
	Stages []stageDoc `yaml:"stages"`
}

type stageDoc struct {
	Name     string   `yaml:"name"`
	Args     []argDoc `yaml:"args"`
	Inputs   []string `yaml:"inputs"`
	Outputs  []string `yaml:"outputs"`
	LogPath  string   `yaml:"log_path"`
	MemoryGB float64  `yaml:"memory_gb"`
	CPUSlots int      `yaml:"cpu_slots"`
}

// argDoc is a tagged argv fragment; exactly one field must be set.
type argDoc struct {
	Text   *string `yaml:"text"`
	Input  *string `yaml:"input"`
	Output *string `yaml:"output"`
	Flag   *string `yaml:"flag"`
	Log    *string `yaml:"log"`
}

func (a argDoc) resolve() (digraph.Arg, error) {
	switch {
	case a.Text != nil:
		return digraph.Arg{Kind: digraph.ArgPlain, Text: *a.Text}, nil
	case a.Input != nil:
		return digraph.Arg{Kind: digraph.ArgInput, Text: *a.Input}, nil
	case a.Output != nil:
		return digraph.Arg{Kind: digraph.ArgOutput, Text: *a.Output}, nil
	case a.Flag != nil:
		return digraph.Arg{Kind: digraph.ArgPlain, Text: *a.Flag}, nil
	case a.Log != nil:
		return digraph.Arg{Kind: digraph.ArgLog, Text: *a.Log}, nil
	default:
		return digraph.Arg{}, fmt.Errorf("arg requires one of text, input, output, flag, or log")
	}
}

// Load parses the pipeline definition at path and renders it into stages,
// in the order they were declared. A stage declaring Args becomes a command
// stage (digraph.NewCommandStage); one declaring only Inputs/Outputs becomes
// an abstract stage (digraph.NewAbstractStage) representing work this
// process does not itself spawn.
func Load(path string) ([]digraph.Stage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse renders an already-read pipeline document. Exposed separately from
// Load so callers with an in-memory document (e.g. tests, embedded specs)
// don't need a file on disk.
func Parse(data []byte) ([]digraph.Stage, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse pipeline document: %w", err)
	}

	stages := make([]digraph.Stage, 0, len(doc.Stages))
	for i, sd := range doc.Stages {
		stage, err := sd.build()
		if err != nil {
			return nil, fmt.Errorf("stage %d (%q): %w", i, sd.Name, err)
		}
		stages = append(stages, stage)
	}
	return stages, nil
}

func (sd stageDoc) build() (digraph.Stage, error) {
	if len(sd.Args) > 0 {
		args := make([]digraph.Arg, len(sd.Args))
		for i, a := range sd.Args {
			resolved, err := a.resolve()
			if err != nil {
				return digraph.Stage{}, fmt.Errorf("arg %d: %w", i, err)
			}
			args[i] = resolved
		}
		return digraph.NewCommandStage(sd.Name, args, sd.LogPath, sd.MemoryGB, sd.CPUSlots)
	}
	return digraph.NewAbstractStage(sd.Name, sd.Inputs, sd.Outputs, sd.LogPath, sd.MemoryGB, sd.CPUSlots)
}
