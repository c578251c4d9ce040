package jsonstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// JSON-backed snapshots of a store's state. Single file, human-readable.
// No locking; one writer per file.

// Load reads a snapshot. A missing file yields an error wrapping os.ErrNotExist.
func Load[S any](path string) (S, error) {
	var s S
	b, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read file: %w", err)
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("json unmarshal: %w", err)
	}
	return s, nil
}

// Save writes s as indented JSON, creating parent directories.
func Save[S any](path string, s S) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}
