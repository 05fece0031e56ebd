package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nullg/internal/envelope"
	"github.com/roach88/nullg/internal/ir"
	"github.com/roach88/nullg/internal/queryir"
	"github.com/roach88/nullg/internal/resolver"
	"github.com/roach88/nullg/internal/store"
)

// StoreOptions holds flags shared by the store commands.
type StoreOptions struct {
	*RootOptions
	Database string
}

// ImportResult summarizes `store import`.
type ImportResult struct {
	ItemClass string `json:"itemClass" yaml:"itemClass"`
	Inserted  int    `json:"inserted" yaml:"inserted"`
	Updated   int    `json:"updated" yaml:"updated"`
	Unchanged int    `json:"unchanged" yaml:"unchanged"`
}

// NewStoreCommand creates the store command group.
func NewStoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Import and query records in a local SQLite store",
	}
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (default: store.path from config)")

	cmd.AddCommand(newStoreImportCommand(opts))
	cmd.AddCommand(newStoreFindCommand(opts))
	return cmd
}

func newStoreImportCommand(opts *StoreOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <record-type> <file|->",
		Short: "Resolve records and store them",
		Long: `Resolve one record or an array of records and upsert them by id.

Nothing is written unless every record resolves.

Example:
  nullg store import --db units.db UnitData units.json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStoreImport(opts, args[0], args[1], cmd)
		},
	}
}

func runStoreImport(opts *StoreOptions, recordType, path string, cmd *cobra.Command) error {
	if err := opts.prepare(cmd); err != nil {
		return err
	}
	formatter := opts.formatter(cmd)

	res, err := opts.loadGraph(formatter)
	if err != nil {
		return err
	}
	if _, ok := res.Graph.Schema(recordType); !ok {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("unknown record type %q", recordType), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown record type %q", recordType))
	}

	raw, err := readRawInput(cmd, formatter, path)
	if err != nil {
		return err
	}
	items, isList := raw.([]any)
	if !isList {
		items = []any{raw}
	}

	r := opts.newResolver(res)
	records := make([]ir.Object, 0, len(items))
	for i, item := range items {
		obj, err := r.Resolve(recordType, item)
		if err != nil {
			return reportResolveError(opts.RootOptions, formatter, fmt.Errorf("item %d: %w", i, err))
		}
		records = append(records, obj)
	}

	st, err := opts.openStore(formatter, r)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result := ImportResult{ItemClass: recordType}
	for _, rec := range records {
		_, put, err := st.PutRecord(ctx, recordType, rec)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "store record", err)
		}
		switch put {
		case store.Inserted:
			result.Inserted++
		case store.Updated:
			result.Updated++
		default:
			result.Unchanged++
		}
	}
	opts.Logger.Info("records imported", "item_class", recordType,
		"inserted", result.Inserted, "updated", result.Updated, "unchanged", result.Unchanged)

	if formatter.Structured() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ %s: %d inserted, %d updated, %d unchanged\n",
		recordType, result.Inserted, result.Updated, result.Unchanged)
	return nil
}

func newStoreFindCommand(opts *StoreOptions) *cobra.Command {
	var (
		filter string
		limit  int
		count  bool
	)

	cmd := &cobra.Command{
		Use:   "find <record-type>",
		Short: "Find stored records matching a filter",
		Long: `Find stored records of a record type matching a filter document.
The filter is checked against the operator allow-list before it runs.

Example:
  nullg store find UnitData --filter '{"name": {"$regex": "^Atlas"}}'
  nullg store find UnitData --filter '{"totalWar.walkMp": {"$gte": 5}}' --count`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStoreFind(opts, args[0], filter, limit, count, cmd)
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "{}", "filter document (JSON)")
	cmd.Flags().IntVar(&limit, "limit", envelope.DefaultItemsPerPage, "maximum number of records (0 for no limit)")
	cmd.Flags().BoolVar(&count, "count", false, "print only the number of matching records")
	return cmd
}

func runStoreFind(opts *StoreOptions, recordType, filter string, limit int, count bool, cmd *cobra.Command) error {
	if err := opts.prepare(cmd); err != nil {
		return err
	}
	formatter := opts.formatter(cmd)

	raw, err := ir.DecodeRaw([]byte(filter))
	if err != nil {
		_ = formatter.Error(ErrCodeReadInput, fmt.Sprintf("--filter is not valid JSON: %v", err), nil)
		return WrapExitError(ExitCommandError, "decode filter", err)
	}
	doc, ok := raw.(map[string]any)
	if !ok {
		return reportCheckError(opts.RootOptions, formatter, "filter", fmt.Errorf("filter must be a mapping"))
	}
	if err := queryir.FilterPolicy.WithMaxDepth(opts.Config.Query.MaxDepth).Check(doc); err != nil {
		return reportCheckError(opts.RootOptions, formatter, "filter", err)
	}
	pred, err := queryir.ParseFilter(doc)
	if err != nil {
		return reportCheckError(opts.RootOptions, formatter, "filter", err)
	}

	res, err := opts.loadGraph(formatter)
	if err != nil {
		return err
	}
	st, err := opts.openStore(formatter, opts.newResolver(res))
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if count {
		n, err := st.CountRecords(ctx, recordType, pred)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "count records", err)
		}
		if formatter.Structured() {
			return formatter.Success(map[string]any{"itemClass": recordType, "count": n})
		}
		fmt.Fprintln(formatter.Writer, n)
		return nil
	}

	recs, err := st.FindRecords(ctx, recordType, pred, limit)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "find records", err)
	}
	opts.Logger.Debug("records found", "item_class", recordType, "count", len(recs))

	bodies := make([]ir.Object, len(recs))
	for i, rec := range recs {
		bodies[i] = rec.Body
	}
	return printRecords(formatter, bodies)
}

// openStore opens the configured database. Stored bodies of known record
// types are re-typed through r so float fields read back as floats.
func (o *StoreOptions) openStore(f *OutputFormatter, r *resolver.Resolver) (*store.Store, error) {
	path := o.Database
	if path == "" {
		path = o.Config.Store.Path
	}
	decode := func(itemClass string, raw any) (ir.Object, error) {
		if _, ok := r.Graph().Schema(itemClass); ok {
			return r.Resolve(itemClass, raw)
		}
		v, err := ir.FromRaw(raw)
		if err != nil {
			return nil, err
		}
		obj, ok := v.(ir.Object)
		if !ok {
			return nil, fmt.Errorf("stored body is %s, not an object", ir.KindOf(v))
		}
		return obj, nil
	}

	st, err := store.Open(path, store.WithLogger(o.Logger), store.WithDecoder(decode))
	if err != nil {
		_ = f.Error(ErrCodeStore, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "open store", err)
	}
	o.Logger.Debug("store opened", "path", path)
	return st, nil
}
