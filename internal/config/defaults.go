package config

import (
	"time"

	"github.com/leapstack-labs/meldbuild/internal/markers"
)

// Default configuration values.
const (
	DefaultActivationTag   = "meld-build"
	DefaultToolbarLanguage = "meld-build-toolbar"
	DefaultNoticeTimeout   = 5 * time.Second
	DefaultErrorTimeout    = 20 * time.Second
	DefaultLogLevel        = "info"
	DefaultInteractive     = InteractiveAuto
	DefaultHistoryPath     = ".meldbuild/history.db"
)

// Values accepted by the interactive setting.
const (
	InteractiveAuto   = "auto"
	InteractiveAlways = "always"
	InteractiveNever  = "never"
)

// DefaultScriptLanguages are the fence languages treated as script source.
var DefaultScriptLanguages = []string{"starlark", "star", "python", "py"}

// defaults returns the lowest configuration layer as a flat koanf map.
func defaults() map[string]any {
	d := markers.DefaultDelimiters()
	return map[string]any{
		"activation_tag":        DefaultActivationTag,
		"toolbar_language":      DefaultToolbarLanguage,
		"script_languages":      DefaultScriptLanguages,
		"markers.start_prefix":  d.StartPrefix,
		"markers.start_suffix":  d.StartSuffix,
		"markers.end_prefix":    d.EndPrefix,
		"markers.end_suffix":    d.EndSuffix,
		"notices.timeout":       DefaultNoticeTimeout,
		"notices.error_timeout": DefaultErrorTimeout,
		"log.level":             DefaultLogLevel,
		"log.file":              "",
		"run.max_steps":         0,
		"index.enabled":         true,
		"history.enabled":       false,
		"history.path":          DefaultHistoryPath,
		"interactive":           DefaultInteractive,
		"verbose":               false,
	}
}
