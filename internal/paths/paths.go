// Package paths resolves the filesystem locations implreg reads from.
package paths

import (
	"os"
	"path/filepath"
)

// ExecutableDir returns the directory of the running binary, following symlinks.
// It is the default plugin directory.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// RelativeTo resolves path against base when it is relative. Mapping paths in a
// config file are relative to that file, not to the working directory.
//
//   - ("", base)            -> ""
//   - ("/abs/m.yaml", base) -> "/abs/m.yaml"
//   - ("m.yaml", "/etc/x")  -> "/etc/x/m.yaml"
func RelativeTo(path, base string) string {
	if path == "" || filepath.IsAbs(path) || base == "" {
		return path
	}
	return filepath.Clean(filepath.Join(base, path))
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
