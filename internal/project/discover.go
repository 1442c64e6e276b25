package project

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const configDirName = "drsprep"

// ConfigDirEnv overrides the config directory when set.
const ConfigDirEnv = "DRSPREP_CONFIG"

// DiscoverConfigDir resolves the project rules directory, in precedence
// order: explicit flag, DRSPREP_CONFIG environment variable, the
// platform-standard user config directory, then the system directory.
// The returned directory is guaranteed to exist.
func DiscoverConfigDir(explicit string) (string, error) {
	if explicit != "" {
		info, err := os.Stat(explicit)
		if err != nil {
			return "", fmt.Errorf("config directory %s: %w", explicit, err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("config directory %s: not a directory", explicit)
		}
		return explicit, nil
	}

	var candidates []string
	if env := os.Getenv(ConfigDirEnv); env != "" {
		candidates = append(candidates, env)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, configDirName))
	}
	candidates = append(candidates, defaultSystemConfigDir())

	for _, dir := range candidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, nil
		}
	}

	return "", fmt.Errorf("no config directory found — pass --config-dir or set %s", ConfigDirEnv)
}

func defaultSystemConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		pd := os.Getenv("ProgramData")
		if pd == "" {
			pd = `C:\ProgramData`
		}
		return filepath.Join(pd, configDirName)
	default:
		return filepath.Join("/etc", configDirName)
	}
}
