package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the config file name looked up by Resolve.
const FileName = "parlo.yaml"

// Candidates returns the config search path:
// $XDG_CONFIG_HOME/parlo/parlo.yaml (or ~/.config/parlo/parlo.yaml), then ./parlo.yaml.
func Candidates() []string {
	var candidates []string
	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, "parlo", FileName))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "parlo", FileName))
	}
	return append(candidates, FileName)
}

// Resolve returns the first existing file among Candidates.
func Resolve() (string, error) {
	candidates := Candidates()
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("config: no configuration file found (searched: %v)", candidates)
}
