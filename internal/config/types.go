// Package config loads meldbuild settings from defaults, a meldbuild.yaml
// file, MELDBUILD_ environment variables and command-line flags.
package config

import (
	"time"

	"github.com/leapstack-labs/meldbuild/internal/markers"
)

// Config holds every setting a run needs.
type Config struct {
	ActivationTag   string             `koanf:"activation_tag"`
	ToolbarLanguage string             `koanf:"toolbar_language"`
	ScriptLanguages []string           `koanf:"script_languages"`
	Markers         markers.Delimiters `koanf:"markers"`
	Notices         NoticesConfig      `koanf:"notices"`
	Log             LogConfig          `koanf:"log"`
	Run             RunConfig          `koanf:"run"`
	Index           IndexConfig        `koanf:"index"`
	History         HistoryConfig      `koanf:"history"`
	Interactive     string             `koanf:"interactive"`
	Verbose         bool               `koanf:"verbose"`

	// Root is the directory the file store is confined to. It is the folder
	// of the config file when one was found, else the document's folder.
	Root string `koanf:"root"`

	// File is the config file that was loaded, if any.
	File string `koanf:"-"`
}

// NoticesConfig holds how long transient notices stay visible.
type NoticesConfig struct {
	Timeout      time.Duration `koanf:"timeout"`
	ErrorTimeout time.Duration `koanf:"error_timeout"`
}

// LogConfig configures the console and run log.
type LogConfig struct {
	Level string `koanf:"level"`
	// File receives every run's log, relative to the document's folder.
	File string `koanf:"file"`
}

// RunConfig bounds script execution.
type RunConfig struct {
	// MaxSteps aborts a script after this many execution steps; 0 is unlimited.
	MaxSteps uint64 `koanf:"max_steps"`
}

// IndexConfig toggles the document index behind ctx.dv.
type IndexConfig struct {
	Enabled bool `koanf:"enabled"`
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	Enabled bool `koanf:"enabled"`
	// Path is the database file, relative to Root.
	Path string `koanf:"path"`
}
