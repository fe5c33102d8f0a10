package logging

import (
	"log/slog"
	"strings"
)

// LevelFromString parses a configured level name. Unknown or missing
// names fall back to INFO; "WARNING" is accepted next to slog's "WARN".
func LevelFromString(str *string) slog.Level {
	if str == nil {
		return slog.LevelInfo
	}
	name := strings.ToUpper(strings.TrimSpace(*str))
	if name == "WARNING" {
		return slog.LevelWarn
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
