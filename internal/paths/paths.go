package paths

import (
	"os"
	"path/filepath"
)

const (
	// DataDirName is the per-installation directory under the root
	DataDirName = ".greetd"
	// ConfigFileName is the config file inside DataDirName
	ConfigFileName = "config.json"
	// RootEnvVar overrides the root directory when --root is not given
	RootEnvVar = "GREETD_ROOT"
)

// GetRoot returns the root directory: explicit flag value, then
// $GREETD_ROOT, then the working directory.
func GetRoot(flagValue string) (string, error) {
	if flagValue != "" {
		return filepath.Abs(flagValue)
	}
	if env := os.Getenv(RootEnvVar); env != "" {
		return filepath.Abs(env)
	}
	return os.Getwd()
}

// GetDataDir returns <root>/.greetd
func GetDataDir(root string) string {
	return filepath.Join(root, DataDirName)
}

// EnsureDataDir creates <root>/.greetd if needed and returns it.
func EnsureDataDir(root string) (string, error) {
	dir := GetDataDir(root)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// GetConfigPath returns <root>/.greetd/config.json
func GetConfigPath(root string) string {
	return filepath.Join(GetDataDir(root), ConfigFileName)
}

// Resolve makes p absolute relative to root. Absolute paths, empty
// paths and ":memory:" pass through unchanged.
func Resolve(root, p string) string {
	if p == "" || p == ":memory:" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
