package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/nullg/internal/fieldcatalog"
)

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "catalog <record-type>",
		Short: "List the queryable field paths of a record type",
		Long: `List every dotted field path a filter on the record type can name,
with its type, the operators offered for it and an example value.

Example:
  nullg catalog UnitData
  nullg catalog UnitData --category alphaStrike --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(rootOpts, args[0], category, cmd)
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "only list fields in this category")
	return cmd
}

func runCatalog(opts *RootOptions, root, category string, cmd *cobra.Command) error {
	if err := opts.prepare(cmd); err != nil {
		return err
	}
	formatter := opts.formatter(cmd)

	res, err := opts.loadGraph(formatter)
	if err != nil {
		return err
	}

	cat, err := fieldcatalog.BuildNamed(res.Graph, root)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "build catalog", err)
	}
	if category != "" {
		kept := make([]fieldcatalog.Entry, 0, len(cat.Entries))
		for _, e := range cat.Entries {
			if e.Category == category {
				kept = append(kept, e)
			}
		}
		cat = &fieldcatalog.Catalog{Root: cat.Root, Entries: kept}
	}
	formatter.VerboseLog("Catalog of %s: %d field(s)", root, len(cat.Entries))

	if formatter.Structured() {
		return formatter.Success(cat)
	}

	w := formatter.Writer
	for _, e := range cat.Entries {
		ops := "-"
		if len(e.Operators) > 0 {
			ops = strings.Join(e.Operators, ",")
		}
		fmt.Fprintf(w, "%-50s %-24s %-24s %s\n", e.Path, e.Type, ops, e.Category)
	}
	return nil
}
