package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/nullg/internal/schema"
)

// Lint codes (E200-E299). Build errors make a graph unusable; these flag
// declarations that build but misbehave or are dead.
const (
	ErrUnknownRoot       = "E200" // lint root names no schema or family
	ErrVariantBeforeDisc = "E201" // variant field declared before its discriminator
	ErrFamilyNoBranches  = "E202" // family with no branches
	ErrUnreachableSchema = "E203" // schema not reachable from any root
)

// ValidationError represents a lint finding.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate lints a built graph and returns every finding (does not
// fail-fast). Reachability (E203) is only checked when roots are given.
// Findings are ordered by schema registration order, then families sorted.
func Validate(g *schema.Graph, roots ...string) []ValidationError {
	var errs []ValidationError

	for _, name := range g.SchemaNames() {
		s, _ := g.Schema(name)
		for _, f := range s.Fields() {
			if f.Type.Kind != schema.KindVariant {
				continue
			}
			fam, ok := g.Family(f.Type.Ref)
			if !ok {
				continue
			}
			field := fmt.Sprintf("%s.%s", s.Name, f.Name)

			// E201: the resolver reads the discriminator from siblings
			// already resolved.
			if s.Position(fam.Discriminator) > s.Position(f.Name) {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("variant field is declared before its discriminator %s", fam.Discriminator),
					Code:    ErrVariantBeforeDisc,
				})
			}
		}
	}

	for _, name := range g.FamilyNames() {
		fam, _ := g.Family(name)
		if len(fam.Branches()) == 0 {
			errs = append(errs, ValidationError{
				Field:   name,
				Message: "family has no branches",
				Code:    ErrFamilyNoBranches,
			})
		}
	}

	if len(roots) == 0 {
		return errs
	}
	reached := make(map[string]bool)
	for _, root := range roots {
		if _, ok := g.Schema(root); !ok {
			if _, isFamily := g.Family(root); !isFamily {
				errs = append(errs, ValidationError{
					Field:   root,
					Message: "root names no schema or family",
					Code:    ErrUnknownRoot,
				})
				continue
			}
		}
		markReachable(g, root, reached)
	}
	for _, name := range g.SchemaNames() {
		if !reached[name] {
			errs = append(errs, ValidationError{
				Field:   name,
				Message: "schema is not reachable from " + strings.Join(roots, ", "),
				Code:    ErrUnreachableSchema,
			})
		}
	}
	return errs
}

// markReachable marks every schema reachable from name, which may be a
// schema or a family.
func markReachable(g *schema.Graph, name string, reached map[string]bool) {
	if fam, ok := g.Family(name); ok {
		for _, br := range fam.Branches() {
			markReachable(g, br.Schema, reached)
		}
		return
	}
	s, ok := g.Schema(name)
	if !ok || reached[name] {
		return
	}
	reached[name] = true
	for _, f := range s.Fields() {
		for t := &f.Type; t != nil; t = t.Elem {
			if t.Kind == schema.KindRecord || t.Kind == schema.KindVariant {
				markReachable(g, t.Ref, reached)
			}
		}
	}
}
