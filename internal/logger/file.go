package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fluxdag/fluxdag/internal/fileutil"
)

// LogFileConfig describes where a stage's execution log should be written.
type LogFileConfig struct {
	// Prefix is prepended to the generated filename.
	Prefix string
	// LogDir is the base directory logs are written under when DAGLogDir is unset.
	LogDir string
	// DAGLogDir, if set, overrides LogDir as the base directory.
	DAGLogDir string
	// DAGName identifies the DAG the log belongs to; it is sanitized with fileutil.SafeName.
	DAGName string
	// RequestID identifies the run; only its first 8 characters are used in the filename.
	RequestID string
}

// OpenLogFile creates (or appends to) the log file described by config,
// creating its parent directory if necessary.
func OpenLogFile(config LogFileConfig) (*os.File, error) {
	dir, err := prepareLogDirectory(config)
	if err != nil {
		return nil, fmt.Errorf("prepare log directory: %w", err)
	}
	path := filepath.Join(dir, generateLogFilename(config))
	return openFile(path)
}

func prepareLogDirectory(config LogFileConfig) (string, error) {
	base := config.DAGLogDir
	if base == "" {
		base = config.LogDir
	}
	dir := filepath.Join(base, fileutil.SafeName(config.DAGName))
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", err
	}
	return dir, nil
}

func generateLogFilename(config LogFileConfig) string {
	reqID := config.RequestID
	if len(reqID) > 8 {
		reqID = reqID[:8]
	}
	timestamp := time.Now().Format("20060102.150405.000")
	return fmt.Sprintf("%s%s.%s.%s.log", config.Prefix, fileutil.SafeName(config.DAGName), timestamp, reqID)
}

func openFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}
