package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileRegistry persists one coordinator address per pipeline name in a
// single file at Path, formatted as "<name>\t<addr>\n" per line. It is the
// default backend: no external service is required, only a filesystem
// shared between the coordinator and its workers (typically NFS or a local
// disk in single-host deployments).
type FileRegistry struct {
	Path string

	mu sync.Mutex
}

// NewFileRegistry returns a FileRegistry backed by path.
func NewFileRegistry(path string) *FileRegistry {
	return &FileRegistry{Path: path}
}

func (r *FileRegistry) Register(_ context.Context, name, addr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.readAll()
	if err != nil {
		return err
	}
	entries[name] = addr
	return r.writeAll(entries)
}

func (r *FileRegistry) Lookup(_ context.Context, name string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.readAll()
	if err != nil {
		return "", false, err
	}
	addr, ok := entries[name]
	return addr, ok, nil
}

func (r *FileRegistry) Unregister(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.readAll()
	if err != nil {
		return err
	}
	delete(entries, name)
	return r.writeAll(entries)
}

func (r *FileRegistry) readAll() (map[string]string, error) {
	entries := map[string]string{}

	data, err := os.ReadFile(r.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return entries, nil
		}
		return nil, fmt.Errorf("read registry file %s: %w", r.Path, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, addr, found := strings.Cut(line, "\t")
		if !found {
			continue
		}
		entries[name] = addr
	}
	return entries, nil
}

// writeAll rewrites the registry file atomically: write to a temp file in
// the same directory, then rename over the original, so a concurrent
// Lookup never observes a partially-written file.
func (r *FileRegistry) writeAll(entries map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(r.Path), 0750); err != nil {
		return fmt.Errorf("create registry directory: %w", err)
	}

	var b strings.Builder
	for name, addr := range entries {
		fmt.Fprintf(&b, "%s\t%s\n", name, addr)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.Path), ".registry-*")
	if err != nil {
		return fmt.Errorf("create temp registry file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp registry file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp registry file: %w", err)
	}

	if err := os.Rename(tmpPath, r.Path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp registry file into place: %w", err)
	}
	return nil
}
