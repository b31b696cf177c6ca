package editor

import (
	"runtime"
	"strings"
)

// SaveShortcut is the platform's save key combination.
func SaveShortcut(goos string) string {
	if goos == "darwin" {
		return "cmd+s"
	}
	return "ctrl+s"
}

// IsSaveShortcut reports whether key (e.g. "Ctrl+S", "meta+s") is the save
// combination on goos. An empty goos means the running platform.
func IsSaveShortcut(key, goos string) bool {
	if goos == "" {
		goos = runtime.GOOS
	}
	parts := strings.Split(strings.ToLower(strings.ReplaceAll(key, " ", "")), "+")
	if len(parts) != 2 || parts[1] != "s" {
		return false
	}
	mod := parts[0]
	switch mod {
	case "control":
		mod = "ctrl"
	case "meta", "command", "⌘":
		mod = "cmd"
	}
	return mod+"+s" == SaveShortcut(goos)
}
