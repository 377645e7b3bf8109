package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable read as configuration.
// Nested keys use a double underscore: MELDBUILD_NOTICES__ERROR_TIMEOUT.
const EnvPrefix = "MELDBUILD_"

// FileNames are the config file names searched for, in order.
var FileNames = []string{"meldbuild.yaml", "meldbuild.yml"}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// flagKeys maps flag names to config keys. Flags not listed here belong to
// individual commands and are not configuration.
var flagKeys = map[string]string{
	"activation-tag":   "activation_tag",
	"toolbar-language": "toolbar_language",
	"script-languages": "script_languages",
	"log-level":        "log.level",
	"log-file":         "log.file",
	"max-steps":        "run.max_steps",
	"index":            "index.enabled",
	"history":          "history.enabled",
	"interactive":      "interactive",
	"verbose":          "verbose",
	"root":             "root",
}

// loggerKey is used to store the logger in a context.
type loggerKey struct{}

// FindFile searches startDir and up to maxUpwardSearchLevels of its parents
// for a config file. It returns "" when there is none.
func FindFile(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// Load builds the configuration for a document in docDir.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
// cfgFile names the config file explicitly; otherwise one is searched for
// upward from docDir. flags may be nil.
func Load(cfgFile, docDir string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	absDoc, err := filepath.Abs(docDir)
	if err != nil {
		return nil, fmt.Errorf("resolve document folder: %w", err)
	}

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if cfgFile == "" {
		cfgFile = FindFile(absDoc)
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// 3. Environment: MELDBUILD_LOG__LEVEL -> log.level
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags that were explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				mapstructure.DecodeHookFuncType(trimSliceHook),
			),
			WeaklyTypedInput: true,
			Result:           &cfg,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			cfgFile = abs
		}
		cfg.File = cfgFile
	}
	cfg.Root = resolveRoot(cfg.Root, cfg.File, absDoc)
	if cfg.History.Path != "" && !filepath.IsAbs(cfg.History.Path) {
		cfg.History.Path = filepath.Join(cfg.Root, cfg.History.Path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey turns an environment variable name into a config key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// trimSliceHook trims the elements of string lists split from a single value.
func trimSliceHook(_, to reflect.Type, data any) (any, error) {
	list, ok := data.([]string)
	if !ok || to != reflect.TypeOf([]string(nil)) {
		return data, nil
	}
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// resolveRoot picks the store root. An explicit root is relative to the
// config file's folder, or the document's folder without a config file.
func resolveRoot(root, cfgFile, docDir string) string {
	base := docDir
	if cfgFile != "" {
		base = filepath.Dir(cfgFile)
	}
	switch {
	case root == "":
		return base
	case filepath.IsAbs(root):
		return filepath.Clean(root)
	default:
		return filepath.Join(base, root)
	}
}

// WithLogger returns a context carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// configKey is used to store the loaded config in a context.
type configKey struct{}

// NewContext returns a context carrying cfg.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext returns the config stored by NewContext.
func FromContext(ctx context.Context) (*Config, bool) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	return cfg, ok
}
