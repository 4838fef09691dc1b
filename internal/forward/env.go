// SPDX-License-Identifier: MPL-2.0

package forward

import (
	"os"
	"path/filepath"
)

// LookupEnvFunc reads a host environment variable.
// os.LookupEnv is used in production; tests inject fixed environments.
type LookupEnvFunc func(key string) (string, bool)

// splitSocketPath returns the directory and file name of a socket path. ok is
// false when the path has no usable parent directory (relative names, the
// filesystem root, empty paths) or no file name.
func splitSocketPath(path string) (dir, name string, ok bool) {
	if path == "" {
		return "", "", false
	}
	clean := filepath.Clean(path)
	dir, name = filepath.Split(clean)
	if dir == "" || name == "" || name == "." || name == ".." {
		return "", "", false
	}
	if dir != string(os.PathSeparator) {
		dir = filepath.Clean(dir)
	}
	return dir, name, true
}
