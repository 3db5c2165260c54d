package bridge

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// HelperName is the base name of the helper executable
const HelperName = "seedbot-bridge"

// FindHelper attempts to locate the helper executable
func FindHelper(preferredPath string) (string, error) {
	exe := HelperName
	if runtime.GOOS == "windows" {
		exe += ".exe"
	}

	if preferredPath != "" {
		candidate := preferredPath
		if info, err := os.Stat(preferredPath); err == nil && info.IsDir() {
			candidate = filepath.Join(preferredPath, exe)
		}
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	// Next to our own binary
	var commonPaths []string
	if self, err := os.Executable(); err == nil {
		commonPaths = append(commonPaths, filepath.Join(filepath.Dir(self), exe))
	}
	commonPaths = append(commonPaths, filepath.Join("tools", exe), exe)

	for _, path := range commonPaths {
		expanded := os.ExpandEnv(path)
		if _, err := os.Stat(expanded); err == nil {
			return expanded, nil
		}

		if !strings.Contains(path, string(filepath.Separator)) {
			if found, err := exec.LookPath(path); err == nil {
				return found, nil
			}
		}
	}

	return "", fmt.Errorf("%s not found, please set helper_path in config", HelperName)
}

// StartHelper finds the helper and launches it
func StartHelper(preferredPath string, args ...string) (*Controller, error) {
	path, err := FindHelper(preferredPath)
	if err != nil {
		return nil, fmt.Errorf("failed to find helper: %w", err)
	}

	ctrl := NewController(path, args...)
	if err := ctrl.Start(); err != nil {
		return nil, err
	}
	return ctrl, nil
}
