package digraph

import (
	"strings"
	"time"

	"github.com/fluxdag/fluxdag/internal/fileutil"
	"github.com/fluxdag/fluxdag/internal/stringutil"
)

// Kind distinguishes the two stage flavors.
type Kind int

const (
	// KindCommand is a stage backed by an external argument vector.
	KindCommand Kind = iota
	// KindAbstract is a stage declared purely by its inputs/outputs, with
	// no argv of its own (used to represent work done by an external
	// collaborator the core does not spawn).
	KindAbstract
)

// ArgKind tags one fragment of a command stage's argument vector.
type ArgKind int

const (
	// ArgPlain is rendered verbatim and contributes to identity hashing only.
	ArgPlain ArgKind = iota
	// ArgInput marks the fragment's text as an input file path.
	ArgInput
	// ArgOutput marks the fragment's text as an output file path.
	ArgOutput
	// ArgLog marks the fragment's text as the stage's log-file path.
	ArgLog
)

// Arg is one fragment of a command stage's argument vector.
type Arg struct {
	Kind ArgKind
	Text string
}

const (
	// DefaultMemoryGB is used when a stage does not declare a memory requirement.
	DefaultMemoryGB = 2.0
	// DefaultCPUSlots is used when a stage does not declare a CPU requirement.
	DefaultCPUSlots = 1
)

// Stage is an opaque unit of work: declared inputs, outputs, resource
// requirements, a log path, and an identity hash stable from registration
// onward. Stages are immutable once added to a Graph.
type Stage struct {
	Index    int
	Name     string
	Kind     Kind
	Args     []Arg
	Inputs   []string
	Outputs  []string
	LogPath  string
	MemoryGB float64
	CPUSlots int
	Status   Status
	Identity string
}

// Argv renders a command stage's argument vector in declaration order,
// independent of each fragment's tag.
func (s Stage) Argv() []string {
	argv := make([]string, len(s.Args))
	for i, a := range s.Args {
		argv[i] = a.Text
	}
	return argv
}

// DefaultLogPath builds the "<command>.<iso-timestamp>.log" path used when a
// stage does not specify one explicitly.
func DefaultLogPath(name string) string {
	return fileutil.SafeName(name) + "." + time.Now().UTC().Format("20060102T150405") + ".log"
}

// NewCommandStage builds a command stage from a tagged argument vector,
// deriving Inputs/Outputs by filtering on Arg.Kind and computing its
// identity hash from the whitespace-joined rendered argv.
func NewCommandStage(name string, args []Arg, logPath string, memoryGB float64, cpuSlots int) (Stage, error) {
	if name == "" {
		return Stage{}, &ConfigError{Kind: ErrKindMissingField, Reason: "stage name is required"}
	}
	if len(args) == 0 {
		return Stage{}, &ConfigError{Kind: ErrKindMissingField, Reason: "command stage requires at least one argument"}
	}
	if memoryGB <= 0 {
		memoryGB = DefaultMemoryGB
	}
	if cpuSlots <= 0 {
		cpuSlots = DefaultCPUSlots
	}
	rendered := make([]string, len(args))
	var inputs, outputs []string
	for i, a := range args {
		rendered[i] = a.Text
		switch a.Kind {
		case ArgInput:
			inputs = append(inputs, a.Text)
		case ArgOutput:
			outputs = append(outputs, a.Text)
		case ArgLog:
			if logPath == "" {
				logPath = a.Text
			}
		}
	}
	if logPath == "" {
		logPath = DefaultLogPath(name)
	}

	return Stage{
		Name:     name,
		Kind:     KindCommand,
		Args:     args,
		Inputs:   inputs,
		Outputs:  outputs,
		LogPath:  logPath,
		MemoryGB: memoryGB,
		CPUSlots: cpuSlots,
		Status:   StatusUnset,
		Identity: stringutil.Base58EncodeSHA256(strings.Join(rendered, " ")),
	}, nil
}

// NewAbstractStage builds a stage declared directly by its inputs and
// outputs, with no argument vector of its own. Its identity hash is the
// concatenation of its declared outputs followed by its inputs.
func NewAbstractStage(name string, inputs, outputs []string, logPath string, memoryGB float64, cpuSlots int) (Stage, error) {
	if name == "" {
		return Stage{}, &ConfigError{Kind: ErrKindMissingField, Reason: "stage name is required"}
	}
	if len(inputs) == 0 && len(outputs) == 0 {
		return Stage{}, &ConfigError{Kind: ErrKindMissingField, Reason: "abstract stage requires at least one input or output"}
	}
	if memoryGB <= 0 {
		memoryGB = DefaultMemoryGB
	}
	if cpuSlots <= 0 {
		cpuSlots = DefaultCPUSlots
	}
	if logPath == "" {
		logPath = DefaultLogPath(name)
	}

	identityParts := make([]string, 0, len(inputs)+len(outputs))
	identityParts = append(identityParts, outputs...)
	identityParts = append(identityParts, inputs...)

	return Stage{
		Name:     name,
		Kind:     KindAbstract,
		Inputs:   inputs,
		Outputs:  outputs,
		LogPath:  logPath,
		MemoryGB: memoryGB,
		CPUSlots: cpuSlots,
		Status:   StatusUnset,
		Identity: stringutil.Base58EncodeSHA256(strings.Join(identityParts, "")),
	}, nil
}
