// Package schema holds the SchemaGraph: the static, immutable registry of
// record schemas and tagged variant families that every other NullG
// component walks.
//
// A record schema is an ordered list of fields. A field's type is a
// primitive, a homogeneous sequence, a mapping, a nested schema, or a
// variant family. A variant family names a discriminator field and maps
// integer codes to concrete schemas; the discriminator must be a sibling
// of the variant field in every schema that uses the family.
//
// Graphs are assembled with a Builder and never change after Build.
package schema
