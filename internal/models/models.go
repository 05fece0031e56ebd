// Package models holds the CUE declarations of the NullG record types and
// builds them into the process-wide schema graph.
package models

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/nullg/internal/compiler"
	"github.com/roach88/nullg/internal/schema"
)

//go:embed declarations/*.cue
var declarations embed.FS

// Record types served as top-level items. The NullG API names them in the
// itemClass of every response.
const (
	UnitData      = "UnitData"
	EquipmentItem = "EquipmentItem"
	PilotData     = "PilotData"
	EraItem       = "EraItem"
	BoxsetItem    = "BoxsetItem"
	MULUnitItem   = "MULUnitItem"
	BasicItem     = "BasicItem"
)

// Families with a sibling discriminator.
const (
	TotalWar       = "TotalWar"       // UnitData.totalWar, keyed by unitTypeId
	EquipmentTypes = "EquipmentTypes" // EquipmentItem.item, keyed by equipmentTypeId
)

// ItemClasses lists the top-level record types, sorted.
func ItemClasses() []string {
	classes := []string{UnitData, EquipmentItem, PilotData, EraItem, BoxsetItem, MULUnitItem, BasicItem}
	slices.Sort(classes)
	return classes
}

// Files lists the embedded declaration files in lexical order.
func Files() []string {
	entries, err := fs.ReadDir(declarations, "declarations")
	if err != nil {
		panic(err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// Graph returns the graph of the embedded declarations. It is built once;
// a malformed embedded declaration is a programming error and panics.
var Graph = sync.OnceValue(func() *schema.Graph {
	g, err := Load()
	if err != nil {
		panic(fmt.Sprintf("models: %v", err))
	}
	return g
})

// Load builds a fresh graph from the embedded declarations plus any extra
// declaration values, such as a user's schema directory.
func Load(extra ...cue.Value) (*schema.Graph, error) {
	b, err := Builder()
	if err != nil {
		return nil, err
	}
	for _, v := range extra {
		if err := compiler.AddDeclarations(b, v); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

// Builder returns a schema builder holding the embedded declarations.
func Builder() (*schema.Builder, error) {
	ctx := cuecontext.New()
	b := schema.NewBuilder()
	for _, name := range Files() {
		data, err := declarations.ReadFile(path.Join("declarations", name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		v := ctx.CompileBytes(data, cue.Filename(name))
		if err := compiler.AddDeclarations(b, v); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return b, nil
}
