package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.ActivationTag == "" {
		return fmt.Errorf("activation_tag is required")
	}
	if len(c.ScriptLanguages) == 0 {
		return fmt.Errorf("script_languages must name at least one language")
	}
	switch c.Interactive {
	case InteractiveAuto, InteractiveAlways, InteractiveNever:
	default:
		return fmt.Errorf("interactive must be one of %s, %s or %s, got %q",
			InteractiveAuto, InteractiveAlways, InteractiveNever, c.Interactive)
	}
	if c.Notices.Timeout < 0 || c.Notices.ErrorTimeout < 0 {
		return fmt.Errorf("notice timeouts must not be negative")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	m := c.Markers
	if m.StartPrefix == "" || m.StartSuffix == "" || m.EndPrefix == "" || m.EndSuffix == "" {
		return fmt.Errorf("marker delimiters must not be empty")
	}
	return nil
}

// LogLevel parses log.level; "warning" is accepted for "warn".
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	name := strings.TrimSpace(c.Log.Level)
	if strings.EqualFold(name, "warning") {
		name = "warn"
	}
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("invalid log.level %q: %w", c.Log.Level, err)
	}
	if c.Verbose && level > slog.LevelDebug {
		level = slog.LevelDebug
	}
	return level, nil
}
