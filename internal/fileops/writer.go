// file: internal/fileops/writer.go
// version: 1.0.0
// guid: 835436c2-7564-451f-8814-80e15b92ed6d

package fileops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// WriterConfig configures AtomicWriter behavior
type WriterConfig struct {
	// VerifyChecksums re-reads the temp file and compares SHA256 before rename
	VerifyChecksums bool
	// FileMode is applied to the final file
	FileMode os.FileMode
}

// DefaultWriterConfig returns the default writer configuration
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		VerifyChecksums: true,
		FileMode:        0o644,
	}
}

// AtomicWriter replaces files by writing a sibling temp file and renaming it
// into place. Readers see either the old content or the new content.
type AtomicWriter struct {
	config WriterConfig
}

// NewAtomicWriter creates a writer with the given configuration
func NewAtomicWriter(config WriterConfig) *AtomicWriter {
	if config.FileMode == 0 {
		config.FileMode = 0o644
	}
	return &AtomicWriter{config: config}
}

// Write stores data at path. If ctx is canceled before the rename the target
// is left untouched and the temp file is removed.
func (w *AtomicWriter) Write(ctx context.Context, path string, data []byte) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	// Sync to ensure data is written to disk
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Chmod(tmpPath, w.config.FileMode); err != nil {
		return fmt.Errorf("failed to set file mode: %w", err)
	}

	if w.config.VerifyChecksums {
		var got string
		got, err = ComputeFileHash(tmpPath)
		if err != nil {
			return fmt.Errorf("failed to verify temp file: %w", err)
		}
		if got != HashBytes(data) {
			err = fmt.Errorf("checksum mismatch: write failed integrity check")
			return err
		}
	}

	if err = ctx.Err(); err != nil {
		return err
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
