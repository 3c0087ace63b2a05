//go:build !windows

package authkey

import "path/filepath"

// DefaultDir is the default key directory for the server process.
func DefaultDir() string {
	return filepath.Join("/var/lib", "indieback", "keys")
}
