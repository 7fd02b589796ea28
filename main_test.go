// file: main_test.go
// version: 2.0.0
// guid: b2d1dd38-eefa-40c1-81e2-9b69a475da5b

package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMainHelp(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	dbPath := filepath.Join(tempDir, "db", "test.pebble")

	origArgs := os.Args
	defer func() {
		os.Args = origArgs
	}()

	os.Args = []string{
		"album-enricher",
		"--db",
		dbPath,
		"--help",
	}

	main()
}
