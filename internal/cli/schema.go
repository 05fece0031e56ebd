package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/nullg/internal/compiler"
	"github.com/roach88/nullg/internal/ir"
	"github.com/roach88/nullg/internal/models"
)

// ValidationResult holds lint results.
type ValidationResult struct {
	Valid    bool                       `json:"valid" yaml:"valid"`
	Schemas  int                        `json:"schemas" yaml:"schemas"`
	Families int                        `json:"families" yaml:"families"`
	Version  string                     `json:"version" yaml:"version"`
	Errors   []compiler.ValidationError `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// SchemaSummary is one record type in `schema list`.
type SchemaSummary struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      int    `json:"fields" yaml:"fields"`
}

// FamilySummary is one variant family in `schema list`.
type FamilySummary struct {
	Name          string          `json:"name" yaml:"name"`
	Discriminator string          `json:"discriminator" yaml:"discriminator"`
	Branches      []BranchSummary `json:"branches" yaml:"branches"`
}

// BranchSummary is one branch of a family.
type BranchSummary struct {
	Code   int64  `json:"code" yaml:"code"`
	Label  string `json:"label" yaml:"label"`
	Schema string `json:"schema" yaml:"schema"`
}

// SchemaListing is the output of `schema list`.
type SchemaListing struct {
	Version  string          `json:"version" yaml:"version"`
	Schemas  []SchemaSummary `json:"schemas" yaml:"schemas"`
	Families []FamilySummary `json:"families" yaml:"families"`
}

// NewSchemaCommand creates the schema command group.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect and lint record declarations",
	}
	cmd.AddCommand(newSchemaValidateCommand(rootOpts))
	cmd.AddCommand(newSchemaListCommand(rootOpts))
	return cmd
}

func newSchemaValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var roots []string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Compile and lint the schema graph",
		Long: `Compile the embedded record declarations, plus any --schemas directory,
and lint the resulting graph.

Reachability is checked from --root record types. Without --schemas the
roots default to the served item classes.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaValidate(rootOpts, roots, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&roots, "root", nil, "record types every schema must be reachable from")
	return cmd
}

func runSchemaValidate(opts *RootOptions, roots []string, cmd *cobra.Command) error {
	if err := opts.prepare(cmd); err != nil {
		return err
	}
	formatter := opts.formatter(cmd)

	res, err := opts.loadGraph(formatter)
	if err != nil {
		return err
	}
	if len(roots) == 0 && res.Dir == "" {
		roots = models.ItemClasses()
	}

	version, err := ir.SchemaHash(res.Graph.Describe())
	if err != nil {
		return WrapExitError(ExitCommandError, "hash schema graph", err)
	}
	result := ValidationResult{
		Schemas:  len(res.Graph.SchemaNames()),
		Families: len(res.Graph.FamilyNames()),
		Version:  version,
		Errors:   compiler.Validate(res.Graph, roots...),
	}
	result.Valid = len(result.Errors) == 0
	opts.Logger.Debug("schema graph linted", "schemas", result.Schemas, "families", result.Families, "findings", len(result.Errors))

	if formatter.Structured() {
		if result.Valid {
			return formatter.Success(result)
		}
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: result.Errors[0].Code, Message: result.Errors[0].Message},
		}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}

	if result.Valid {
		fmt.Fprintf(formatter.Writer, "✓ %d schemas, %d families valid (%s)\n", result.Schemas, result.Families, version)
		return nil
	}
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, e := range result.Errors {
		fmt.Fprintf(formatter.Writer, "  %s %s: %s\n", e.Code, e.Field, e.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
}

func newSchemaListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List record types and variant families",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaList(rootOpts, cmd)
		},
	}
}

func runSchemaList(opts *RootOptions, cmd *cobra.Command) error {
	if err := opts.prepare(cmd); err != nil {
		return err
	}
	formatter := opts.formatter(cmd)

	res, err := opts.loadGraph(formatter)
	if err != nil {
		return err
	}
	g := res.Graph

	version, err := ir.SchemaHash(g.Describe())
	if err != nil {
		return WrapExitError(ExitCommandError, "hash schema graph", err)
	}
	listing := SchemaListing{Version: version, Schemas: []SchemaSummary{}, Families: []FamilySummary{}}
	for _, name := range g.SchemaNames() {
		s, _ := g.Schema(name)
		listing.Schemas = append(listing.Schemas, SchemaSummary{Name: name, Description: s.Description, Fields: len(s.Fields())})
	}
	for _, name := range g.FamilyNames() {
		fam, _ := g.Family(name)
		fs := FamilySummary{Name: name, Discriminator: fam.Discriminator, Branches: []BranchSummary{}}
		for _, br := range fam.Branches() {
			fs.Branches = append(fs.Branches, BranchSummary{Code: br.Code, Label: br.Label, Schema: br.Schema})
		}
		listing.Families = append(listing.Families, fs)
	}

	if formatter.Structured() {
		return formatter.Success(listing)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Schemas (%d):\n", len(listing.Schemas))
	for _, s := range listing.Schemas {
		fmt.Fprintf(w, "  %-40s %3d fields\n", s.Name, s.Fields)
	}
	fmt.Fprintf(w, "\nFamilies (%d):\n", len(listing.Families))
	for _, fam := range listing.Families {
		labels := make([]string, len(fam.Branches))
		for i, br := range fam.Branches {
			labels[i] = fmt.Sprintf("%d=%s", br.Code, br.Label)
		}
		fmt.Fprintf(w, "  %s by %s: %s\n", fam.Name, fam.Discriminator, strings.Join(labels, " "))
	}
	return nil
}
