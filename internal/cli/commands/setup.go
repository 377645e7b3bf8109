package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/meldbuild/internal/compiler"
	"github.com/leapstack-labs/meldbuild/internal/config"
	"github.com/leapstack-labs/meldbuild/internal/history"
	"github.com/leapstack-labs/meldbuild/internal/index"
	"github.com/leapstack-labs/meldbuild/internal/prompt"
	"github.com/leapstack-labs/meldbuild/internal/store"
)

// CommandContext holds common dependencies for commands working on one
// document.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Store    *store.OSStore
	UI       prompt.Service
	Compiler *compiler.Compiler
	// History records runs when run history is enabled, else nil.
	History *history.SQLiteStore
	// Doc is the document path inside Store.
	Doc string
	// DocPath is the document path on disk.
	DocPath string
	Out     io.Writer
}

// NewCommandContext opens the store around the document named by docArg and
// builds a compiler for it. The returned cleanup function must be called
// (typically via defer).
func NewCommandContext(cmd *cobra.Command, docArg string) (*CommandContext, func(), error) {
	docPath, err := filepath.Abs(docArg)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve document path: %w", err)
	}
	if info, err := os.Stat(docPath); err != nil {
		return nil, nil, fmt.Errorf("document %s: %w", docArg, err)
	} else if info.IsDir() {
		return nil, nil, fmt.Errorf("document %s is a directory", docArg)
	}

	cfg, err := getConfig(cmd.Context(), filepath.Dir(docPath))
	if err != nil {
		return nil, nil, err
	}
	logger := config.GetLogger(cmd.Context())

	st, err := store.Open(cfg.Root)
	if err != nil {
		return nil, nil, err
	}
	doc, err := st.Rel(docPath)
	if err != nil {
		_ = st.Close()
		return nil, nil, fmt.Errorf("document is outside the store root: %w", err)
	}

	var runs *history.SQLiteStore
	if cfg.History.Enabled {
		runs = history.NewSQLiteStore(logger)
		if err := runs.Open(cfg.History.Path); err != nil {
			_ = st.Close()
			return nil, nil, fmt.Errorf("open run history: %w", err)
		}
	}

	ui, closeUI := newPrompt(cmd, cfg, logger)
	cleanup := func() {
		closeUI()
		if runs != nil {
			_ = runs.Close()
		}
		_ = st.Close()
	}

	opts := []compiler.Option{
		compiler.WithOptions(CompilerOptions(cfg)),
		compiler.WithConsole(logger.Handler()),
		compiler.WithOpener(reportOpener(cmd.OutOrStdout())),
	}
	if cfg.Index.Enabled {
		opts = append(opts, compiler.WithIndex(index.New(st.FS(), logger)))
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Store:    st,
		UI:       ui,
		Compiler: compiler.New(st, ui, opts...),
		History:  runs,
		Doc:      doc,
		DocPath:  docPath,
		Out:      cmd.OutOrStdout(),
	}, cleanup, nil
}

// CompilerOptions converts the loaded configuration into compiler options.
func CompilerOptions(cfg *config.Config) compiler.Options {
	return compiler.Options{
		ActivationTag:   cfg.ActivationTag,
		ToolbarLanguage: cfg.ToolbarLanguage,
		ScriptLanguages: cfg.ScriptLanguages,
		Delimiters:      cfg.Markers,
		NoticeTimeout:   cfg.Notices.Timeout,
		ErrorTimeout:    cfg.Notices.ErrorTimeout,
		MaxSteps:        cfg.Run.MaxSteps,
		LogFile:         cfg.Log.File,
	}
}

// getConfig returns the config loaded by the root command, or loads one for
// docDir when the command runs on its own.
func getConfig(ctx context.Context, docDir string) (*config.Config, error) {
	if cfg, ok := config.FromContext(ctx); ok {
		return cfg, nil
	}
	return config.Load("", docDir, nil)
}

// newPrompt picks the terminal prompt for interactive sessions and the
// headless one otherwise.
func newPrompt(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (prompt.Service, func()) {
	interactive := cfg.Interactive == config.InteractiveAlways ||
		(cfg.Interactive == config.InteractiveAuto && prompt.IsInteractive(os.Stdin))
	if !interactive {
		return prompt.NewHeadless(logger), func() {}
	}
	t := prompt.NewTerminal(os.Stdin, cmd.OutOrStdout())
	return t, func() { _ = t.Close() }
}

// reportOpener prints the paths scripts ask to open.
func reportOpener(w io.Writer) compiler.Opener {
	return compiler.OpenerFunc(func(_ context.Context, path string) error {
		_, err := fmt.Fprintf(w, "open: %s\n", path)
		return err
	})
}
