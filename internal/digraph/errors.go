package digraph

import "fmt"

// ConfigErrorKind classifies a ConfigError.
type ConfigErrorKind int

const (
	// ErrKindMissingField reports a required Stage attribute left unset.
	ErrKindMissingField ConfigErrorKind = iota
	// ErrKindDuplicateOutput reports two stages declaring the same output path.
	ErrKindDuplicateOutput
	// ErrKindCycle reports a cycle in the derived edge set.
	ErrKindCycle
)

// ConfigError is returned for structural problems with the DAG: a cycle,
// a duplicate output path, or a missing required field. It fails
// construction; no checkpoint is written when one occurs.
type ConfigError struct {
	Kind   ConfigErrorKind
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("digraph: %s", e.Reason)
}
