package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// expandPath resolves $VARS and a leading "~" in a configured path.
func expandPath(path string) (string, error) {
	p := os.ExpandEnv(strings.TrimSpace(path))
	if p == "" {
		return "", nil
	}
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return filepath.Clean(p), nil
	}

	home, err := os.UserHomeDir()
	if err != nil || home == "" || strings.HasPrefix(home, "~") {
		return "", fmt.Errorf("cannot expand %q: home directory is not resolvable", path)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
