package worker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/fluxdag/fluxdag/internal/coordinator"
)

// CommandExecutor runs a stage's argv as a local OS process, appending its
// combined stdout/stderr to task.LogPath, each line prefixed with this
// host's name and the time it was written.
type CommandExecutor struct{}

// NewCommandExecutor returns the default TaskExecutor.
func NewCommandExecutor() *CommandExecutor {
	return &CommandExecutor{}
}

// Execute spawns task.Argv[0] with the remaining elements as arguments. An
// empty Argv is a no-op success, matching abstract stages that a worker
// never actually runs a process for.
func (e *CommandExecutor) Execute(ctx context.Context, task *coordinator.Task) error {
	if len(task.Argv) == 0 {
		return nil
	}

	cmd := exec.CommandContext(ctx, task.Argv[0], task.Argv[1:]...)

	if task.LogPath != "" {
		f, err := os.OpenFile(task.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("worker: opening log file %q: %w", task.LogPath, err)
		}
		defer f.Close()

		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		pw := newPrefixWriter(f, hostname)
		cmd.Stdout = pw
		cmd.Stderr = pw
		defer pw.Flush()
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("worker: stage %q: %w", task.Name, err)
	}
	return nil
}

// prefixWriter prepends "host timestamp " to every line written through it,
// buffering any trailing partial line until the next Write completes it.
type prefixWriter struct {
	w    io.Writer
	host string
	buf  []byte
}

func newPrefixWriter(w io.Writer, host string) *prefixWriter {
	return &prefixWriter{w: w, host: host}
}

func (p *prefixWriter) Write(data []byte) (int, error) {
	p.buf = append(p.buf, data...)
	for {
		i := bytes.IndexByte(p.buf, '\n')
		if i < 0 {
			break
		}
		if err := p.writeLine(p.buf[:i]); err != nil {
			return len(data), err
		}
		p.buf = p.buf[i+1:]
	}
	return len(data), nil
}

func (p *prefixWriter) writeLine(line []byte) error {
	_, err := fmt.Fprintf(p.w, "%s %s %s\n", p.host, time.Now().Format(time.RFC3339), line)
	return err
}

// Flush writes out any trailing partial line left unterminated by a final
// newline, so output isn't silently dropped when the process exits.
func (p *prefixWriter) Flush() error {
	if len(p.buf) == 0 {
		return nil
	}
	line := p.buf
	p.buf = nil
	return p.writeLine(line)
}
