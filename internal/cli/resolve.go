package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nullg/internal/envelope"
	"github.com/roach88/nullg/internal/ir"
	"github.com/roach88/nullg/internal/resolver"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Envelope bool
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <record-type> <file|->",
		Short: "Resolve raw JSON records into typed records",
		Long: `Resolve raw JSON records against a record type.

The input holds one record or an array of records. With --envelope the input
is a server response page and the record type comes from its itemClass.
Resolution stops at the first bad record.

Example:
  nullg resolve UnitData unit.json
  nullg resolve --envelope page.json
  cat unit.json | nullg resolve UnitData -`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.Envelope {
				return cobra.ExactArgs(1)(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Envelope {
				return runResolveEnvelope(opts, args[0], cmd)
			}
			return runResolve(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Envelope, "envelope", false, "treat the input as a server response page")
	return cmd
}

func runResolve(opts *ResolveOptions, recordType, path string, cmd *cobra.Command) error {
	if err := opts.prepare(cmd); err != nil {
		return err
	}
	formatter := opts.formatter(cmd)

	res, err := opts.loadGraph(formatter)
	if err != nil {
		return err
	}
	if _, ok := res.Graph.Schema(recordType); !ok {
		if _, ok := res.Graph.Family(recordType); !ok {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("unknown record type %q", recordType), nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("unknown record type %q", recordType))
		}
	}

	raw, err := readRawInput(cmd, formatter, path)
	if err != nil {
		return err
	}

	r := opts.newResolver(res)
	items, isList := raw.([]any)
	if !isList {
		items = []any{raw}
	}
	out := make([]ir.Object, 0, len(items))
	for i, item := range items {
		obj, err := r.Resolve(recordType, item)
		if err != nil {
			if isList {
				err = fmt.Errorf("item %d: %w", i, err)
			}
			return reportResolveError(opts.RootOptions, formatter, err)
		}
		out = append(out, obj)
	}
	opts.Logger.Debug("records resolved", "type", recordType, "count", len(out))

	if !isList {
		return printRecords(formatter, out[0])
	}
	return printRecords(formatter, out)
}

func runResolveEnvelope(opts *ResolveOptions, path string, cmd *cobra.Command) error {
	if err := opts.prepare(cmd); err != nil {
		return err
	}
	formatter := opts.formatter(cmd)

	res, err := opts.loadGraph(formatter)
	if err != nil {
		return err
	}

	data, err := readInput(cmd, path)
	if err != nil {
		_ = formatter.Error(ErrCodeReadInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "read input", err)
	}
	page, err := envelope.DecodeResponse(data)
	if err != nil {
		_ = formatter.Error(ErrCodeReadInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "decode input", err)
	}
	formatter.VerboseLog("Page %d/%d of %s: %d item(s), status %q", page.CurrentPage, page.TotalPages, page.ItemClass, len(page.Items), page.Status)

	items, err := page.DecodeItems(opts.newResolver(res))
	if err != nil {
		switch {
		case errors.Is(err, envelope.ErrNoResults):
			_ = formatter.Error("NO_RESULTS", err.Error(), nil)
			return WrapExitError(ExitFailure, "resolve page", err)
		case errors.Is(err, envelope.ErrUnknownItemClass):
			_ = formatter.Error("UNKNOWN_ITEM_CLASS", err.Error(), nil)
			return WrapExitError(ExitFailure, "resolve page", err)
		}
		return reportResolveError(opts.RootOptions, formatter, err)
	}
	opts.Logger.Debug("page resolved", "item_class", page.ItemClass, "count", len(items))
	return printRecords(formatter, items)
}

// reportResolveError prints a decode failure with its code and location.
func reportResolveError(opts *RootOptions, f *OutputFormatter, err error) error {
	de, ok := resolver.AsDecodeError(err)
	if !ok {
		_ = f.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "resolve", err)
	}
	opts.Logger.Info("record rejected", "code", string(de.Code), "path", de.Path)

	details := map[string]any{"path": de.Path}
	if de.Expected != "" {
		details["expected"] = de.Expected
		details["actual"] = de.Actual
	}
	if de.Family != "" {
		details["family"] = de.Family
		details["discriminator"] = de.Discriminator
	}
	if de.Value != nil {
		details["value"] = ir.ToNative(de.Value)
	}
	_ = f.Error(string(de.Code), err.Error(), details)
	return WrapExitError(ExitFailure, "resolve", err)
}

// printRecords writes records as canonical JSON lines in text mode.
func printRecords(f *OutputFormatter, v any) error {
	if f.Structured() {
		return f.Success(v)
	}
	var recs []ir.Object
	switch val := v.(type) {
	case ir.Object:
		recs = []ir.Object{val}
	case []ir.Object:
		recs = val
	}
	for _, rec := range recs {
		data, err := ir.MarshalCanonical(rec)
		if err != nil {
			return WrapExitError(ExitCommandError, "encode record", err)
		}
		fmt.Fprintln(f.Writer, string(data))
	}
	return nil
}
