//go:build windows

package authkey

import (
	"os"
	"path/filepath"
)

// DefaultDir is the default key directory for the server process.
func DefaultDir() string {
	programData := os.Getenv("PROGRAMDATA")
	if programData == "" {
		programData = `C:\ProgramData`
	}
	return filepath.Join(programData, "indieback", "keys")
}
