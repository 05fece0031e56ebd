// Package fieldcatalog flattens a record schema into the list of field paths
// a query may address, with the operators each path supports.
//
// Paths are dot-joined field names. Variant branches overlay the same path
// space, so the same path may be reached from several branches; only the
// first visit produces an entry.
package fieldcatalog
