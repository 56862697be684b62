package pathing

import (
	"os"
	"path/filepath"
)

func GetConfigDir() string {
	return "/etc/teleinfod"
}

func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "teleinfod.toml")
}

// EnsureDir creates dir and its parents when missing.
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
