package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/nullg/internal/config"
	"github.com/roach88/nullg/internal/resolver"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "text" | "json" | "yaml"
	ConfigPath string
	SchemasDir string // overrides schemas.dir from the config

	// Config and Logger are filled on first use; tests may preset them.
	Config *config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command for the nullg CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "nullg",
		Short: "nullg - NullG record schemas, resolution and query checks",
		Long: `Work with NullG tabletop wargame records offline.

Resolves raw JSON records into typed records, lists queryable field paths
and checks filter and pipeline requests before they are sent anywhere.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to config file (default: environment only)")
	cmd.PersistentFlags().StringVar(&opts.SchemasDir, "schemas", "", "directory of extra CUE declarations")

	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewCatalogCommand(opts))
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewStoreCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// prepare loads configuration and builds the logger once per invocation.
func (o *RootOptions) prepare(cmd *cobra.Command) error {
	if o.Format == "" {
		o.Format = "text"
	}
	if !isValidFormat(o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}
	if o.Config == nil {
		cfg, err := config.LoadWithFallback(o.ConfigPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "load config", err)
		}
		o.Config = cfg
	}
	if o.SchemasDir != "" {
		o.Config.Schemas.Dir = o.SchemasDir
	}
	if o.Logger == nil {
		o.Logger = newLogger(cmd.ErrOrStderr(), o.Config.Log, o.Verbose)
	}
	return nil
}

func newLogger(w io.Writer, cfg config.LogConfig, verbose bool) *slog.Logger {
	level := cfg.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting structured output
		Verbose:   o.Verbose,
	}
}

// loadGraph loads the configured schema graph, reporting load errors
// through f.
func (o *RootOptions) loadGraph(f *OutputFormatter) (*LoadResult, error) {
	res, err := LoadSchemas(o.Config.Schemas.Dir)
	if err != nil {
		return nil, reportLoadError(f, err)
	}
	if res.Dir != "" {
		f.VerboseLog("Loaded %d CUE file(s) from %s", res.FileCount, res.Dir)
	}
	return res, nil
}

func (o *RootOptions) newResolver(res *LoadResult) *resolver.Resolver {
	return resolver.New(res.Graph, resolver.WithMaxDepth(o.Config.Resolver.MaxDepth))
}

// reportLoadError prints a load failure and maps it to an exit code:
// broken declarations are rejections, unreachable paths are command errors.
func reportLoadError(f *OutputFormatter, err error) error {
	le, ok := err.(*LoadError)
	if !ok {
		_ = f.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "load schemas", err)
	}
	_ = f.Error(le.Code, le.Message, posDetails(le))
	code := ExitCommandError
	if le.Code == ErrCodeDeclaration || le.Code == ErrCodeInvalidGraph || le.Code == ErrCodeBuildFailed {
		code = ExitFailure
	}
	return NewExitError(code, le.Error())
}

func posDetails(le *LoadError) any {
	if !le.Pos.IsValid() {
		return nil
	}
	return map[string]any{"file": le.Pos.Filename(), "line": le.Pos.Line(), "column": le.Pos.Column()}
}
