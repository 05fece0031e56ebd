package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nullg/internal/envelope"
	"github.com/roach88/nullg/internal/queryir"
)

// CheckResult is the output of an accepted check.
type CheckResult struct {
	Valid bool   `json:"valid" yaml:"valid"`
	Kind  string `json:"kind" yaml:"kind"` // "filter" or "pipeline"
}

// NewCheckCommand creates the check command group.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check filters and pipelines against the operator policy",
	}
	cmd.AddCommand(newCheckFilterCommand(rootOpts))
	cmd.AddCommand(newCheckPipelineCommand(rootOpts))
	return cmd
}

func newCheckFilterCommand(rootOpts *RootOptions) *cobra.Command {
	var request bool

	cmd := &cobra.Command{
		Use:   "filter <file|->",
		Short: "Check a filter against the operator allow-list",
		Long: `Check a filter document against the operator allow-list.

With --request the input is a whole search request body and its paging and
projection are checked too.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckFilter(rootOpts, args[0], request, cmd)
		},
	}

	cmd.Flags().BoolVar(&request, "request", false, "treat the input as a search request body")
	return cmd
}

func runCheckFilter(opts *RootOptions, path string, request bool, cmd *cobra.Command) error {
	if err := opts.prepare(cmd); err != nil {
		return err
	}
	formatter := opts.formatter(cmd)
	policy := queryir.FilterPolicy.WithMaxDepth(opts.Config.Query.MaxDepth)

	if request {
		data, err := readInput(cmd, path)
		if err != nil {
			_ = formatter.Error(ErrCodeReadInput, err.Error(), nil)
			return WrapExitError(ExitCommandError, "read input", err)
		}
		sf, err := envelope.DecodeSearchFilter(data)
		if err != nil {
			_ = formatter.Error(ErrCodeReadInput, err.Error(), nil)
			return WrapExitError(ExitCommandError, "decode input", err)
		}
		if err := sf.ValidateWith(policy); err != nil {
			return reportCheckError(opts, formatter, "filter", err)
		}
		return reportCheckOK(formatter, "filter")
	}

	raw, err := readRawInput(cmd, formatter, path)
	if err != nil {
		return err
	}
	if _, ok := raw.(map[string]any); !ok {
		err := fmt.Errorf("filter must be a mapping")
		return reportCheckError(opts, formatter, "filter", err)
	}
	if err := policy.Check(raw); err != nil {
		return reportCheckError(opts, formatter, "filter", err)
	}
	return reportCheckOK(formatter, "filter")
}

func newCheckPipelineCommand(rootOpts *RootOptions) *cobra.Command {
	var request bool

	cmd := &cobra.Command{
		Use:   "pipeline <file|->",
		Short: "Check an aggregation pipeline against the stage deny-list",
		Long: `Check an aggregation pipeline, a list of stage mappings, against the
stage deny-list.

With --request the input is a whole pipeline request body.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckPipeline(rootOpts, args[0], request, cmd)
		},
	}

	cmd.Flags().BoolVar(&request, "request", false, "treat the input as a pipeline request body")
	return cmd
}

func runCheckPipeline(opts *RootOptions, path string, request bool, cmd *cobra.Command) error {
	if err := opts.prepare(cmd); err != nil {
		return err
	}
	formatter := opts.formatter(cmd)
	policy := queryir.PipelinePolicy.WithMaxDepth(opts.Config.Query.MaxDepth)

	var pf *envelope.PipelineFilter
	if request {
		data, err := readInput(cmd, path)
		if err != nil {
			_ = formatter.Error(ErrCodeReadInput, err.Error(), nil)
			return WrapExitError(ExitCommandError, "read input", err)
		}
		pf, err = envelope.DecodePipelineFilter(data)
		if err != nil {
			_ = formatter.Error(ErrCodeReadInput, err.Error(), nil)
			return WrapExitError(ExitCommandError, "decode input", err)
		}
	} else {
		raw, err := readRawInput(cmd, formatter, path)
		if err != nil {
			return err
		}
		stages, ok := raw.([]any)
		if !ok {
			return reportCheckError(opts, formatter, "pipeline", fmt.Errorf("pipeline must be a list of stages"))
		}
		pf = envelope.NewPipelineFilter(stages...)
	}

	if err := pf.ValidateWith(policy); err != nil {
		return reportCheckError(opts, formatter, "pipeline", err)
	}
	return reportCheckOK(formatter, "pipeline")
}

func reportCheckOK(f *OutputFormatter, kind string) error {
	if f.Structured() {
		return f.Success(CheckResult{Valid: true, Kind: kind})
	}
	fmt.Fprintf(f.Writer, "✓ %s allowed\n", kind)
	return nil
}

// reportCheckError prints a rejection. Policy violations carry the
// offending key and its path.
func reportCheckError(opts *RootOptions, f *OutputFormatter, kind string, err error) error {
	se, ok := queryir.AsSecurityError(err)
	if !ok {
		_ = f.Error(string(queryir.ErrCodeMalformed), err.Error(), nil)
		return WrapExitError(ExitFailure, kind+" rejected", err)
	}
	opts.Logger.Warn(kind+" rejected", "code", string(se.Code), "key", se.Key, "path", se.Path)

	details := map[string]any{"path": se.Path}
	if se.Key != "" {
		details["key"] = se.Key
	}
	_ = f.Error(string(se.Code), se.Error(), details)
	return WrapExitError(ExitFailure, kind+" rejected", err)
}
