// Package compiler turns CUE record declarations into a schema.Graph and
// lints the result.
//
// A declaration file has two top-level sections:
//
//	schema: Pilot: {
//		description: "A MechWarrior"
//		fields: {
//			name:     { type: "string", required: true }
//			gunnery:  { type: "integer", default: 4 }
//		}
//	}
//	family: TotalWar: {
//		discriminator: "unitTypeId"
//		branches: {
//			mech: { code: 2, schema: "TotalWarMech" }
//		}
//	}
//
// Field and branch order follow CUE declaration order. Declarations may be
// split across files; references are checked when the graph is built.
package compiler
