package config

import (
	"os"
	"path/filepath"
	"strings"
)

// BaseDir is the directory relative runtime paths resolve against: the
// working directory, or the executable's directory when that is unknown.
func BaseDir() string {
	if wd, err := os.Getwd(); err == nil && strings.TrimSpace(wd) != "" {
		return wd
	}
	exe, err := os.Executable()
	if err == nil && strings.TrimSpace(exe) != "" {
		if resolved, resolveErr := filepath.EvalSymlinks(exe); resolveErr == nil && strings.TrimSpace(resolved) != "" {
			exe = resolved
		}
		return filepath.Dir(exe)
	}
	return "."
}

// ResolveRuntimePath resolves runtime directories against BaseDir.
func ResolveRuntimePath(raw string, fallbackSubdir string) string {
	target := strings.TrimSpace(raw)
	if target == "" {
		target = strings.TrimSpace(fallbackSubdir)
		if target == "" {
			return BaseDir()
		}
	}
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	return filepath.Clean(filepath.Join(BaseDir(), target))
}
