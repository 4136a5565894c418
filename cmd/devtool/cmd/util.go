package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

func userHomeDir() string {
	if h, err := os.UserHomeDir(); err == nil && strings.TrimSpace(h) != "" {
		return h
	}
	return "."
}

func findFirstInPath(candidates []string) (string, error) {
	for _, c := range candidates {
		if p, err := exec.LookPath(c); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("could not find Chrome/Chromium in PATH (tried: %s)", strings.Join(candidates, ", "))
}

// envOr returns the trimmed value of key, or def when it is unset or blank.
func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
