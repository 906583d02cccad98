// Package main provides the CLI entrypoint for evalapp.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Marloto/evaluation-app/internal/config"
	"github.com/Marloto/evaluation-app/internal/logging"
	"github.com/Marloto/evaluation-app/internal/report"
	"github.com/Marloto/evaluation-app/internal/store"
	"github.com/Marloto/evaluation-app/internal/templates"
	"github.com/Marloto/evaluation-app/internal/tui"
	"github.com/Marloto/evaluation-app/internal/workspace"
)

const (
	defaultBackend     = store.BackendSQLite
	defaultRedisAddr   = "localhost:6379"
	defaultRedisPrefix = "evalapp:"
	defaultColor       = config.ColorAuto
)

var (
	storageBackend string
	storagePath    string
	redisAddr      string
	redisPrefix    string
	templateID     string
	colorMode      string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "evalapp",
		Short:         "Thesis evaluation with weighted rubrics",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE:          runEvaluateCmd,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&storageBackend, "backend", defaultBackend, "storage backend: sqlite, redis or memory")
	flags.StringVar(&storagePath, "db", config.DefaultDBPath(), "SQLite database path")
	flags.StringVar(&redisAddr, "redis-addr", defaultRedisAddr, "Redis address")
	flags.StringVar(&redisPrefix, "redis-prefix", defaultRedisPrefix, "Redis key prefix")
	flags.StringVar(&templateID, "template", templates.DefaultID, "template used when no rubric is stored yet")
	flags.StringVar(&colorMode, "color", defaultColor, "color output: auto, always or never")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newScoreCmd())
	rootCmd.AddCommand(newTextCmd())
	rootCmd.AddCommand(newSetCmd())
	rootCmd.AddCommand(newCustomCmd())
	rootCmd.AddCommand(newPreambleCmd())
	rootCmd.AddCommand(newNotesCmd())
	rootCmd.AddCommand(newFocusCmd())
	rootCmd.AddCommand(newResetCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newTemplateCmd())
	rootCmd.AddCommand(newGradesCmd())
	rootCmd.AddCommand(newRubricCmd())

	return rootCmd
}

// session bundles the opened store, the workspace and the console printer of one command run.
type session struct {
	ctx context.Context
	kv  store.KV
	ws  *workspace.Workspace
	out *report.Printer
}

func openSession(cmd *cobra.Command) (*session, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "backend", &storageBackend, fileCfg.Storage.Backend)
	applyStringConfig(cmd, "db", &storagePath, fileCfg.Storage.Path)
	applyStringConfig(cmd, "redis-addr", &redisAddr, fileCfg.Storage.RedisAddr)
	applyStringConfig(cmd, "redis-prefix", &redisPrefix, fileCfg.Storage.RedisPrefix)
	applyStringConfig(cmd, "template", &templateID, fileCfg.Evaluation.Template)
	applyStringConfig(cmd, "color", &colorMode, fileCfg.Output.Color)

	if err := validateFlags(); err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	kv, err := store.Open(ctx, store.Options{
		Backend:     storageBackend,
		Path:        config.ExpandHome(storagePath),
		RedisAddr:   redisAddr,
		RedisPrefix: redisPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	ws, err := workspace.Open(ctx, kv, workspace.WithDefaultTemplate(templateID))
	if err != nil {
		if cerr := kv.Close(); cerr != nil {
			logging.Errf("failed to close store: %v\n", cerr)
		}
		return nil, err
	}
	w := cmd.OutOrStdout()
	out := report.NewPrinter(w, report.ShouldUseColor(w, colorMode), report.TerminalWidth(w))
	return &session{ctx: ctx, kv: kv, ws: ws, out: out}, nil
}

func (s *session) Close() {
	if cerr := s.kv.Close(); cerr != nil {
		logging.Errf("failed to close store: %v\n", cerr)
	}
}

// withSession opens a session for the duration of fn.
func withSession(fn func(cmd *cobra.Command, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(cmd, s, args)
	}
}

func validateFlags() error {
	switch colorMode {
	case config.ColorAuto, config.ColorAlways, config.ColorNever:
	default:
		return fmt.Errorf("--color must be auto, always or never")
	}
	if storageBackend == store.BackendSQLite && strings.TrimSpace(storagePath) == "" {
		return fmt.Errorf("--db must not be empty")
	}
	return nil
}

func runEvaluateCmd(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	program := tea.NewProgram(tui.NewModel(s.ctx, s.ws), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}
	return openEditor(path)
}

func openEditor(path string) error {
	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if f := cmd.Flag(name); f != nil && f.Changed {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# evalapp configuration
# Uncomment a value to enable it. CLI flags override config values.

[storage]
# backend = %q          # sqlite, redis or memory
# path = %q
# redis-addr = %q
# redis-prefix = %q

[evaluation]
# template = %q         # Template used when no rubric is stored yet

[output]
# color = %q              # auto, always or never
`,
		defaultBackend,
		config.DefaultDBPath(),
		defaultRedisAddr,
		defaultRedisPrefix,
		templates.DefaultID,
		defaultColor,
	)
}
