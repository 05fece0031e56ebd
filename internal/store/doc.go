// Package store keeps resolved NullG records in SQLite.
//
// Each record is stored as canonical JSON in a single table keyed by item
// class and record id, with a content hash so re-importing an unchanged
// record is a no-op. Filters are compiled by querysql into JSON1 expressions
// over the stored bodies.
//
// # Ordering
//
// Every read orders by seq ASC, id ASC COLLATE BINARY. seq is assigned on
// first insert and kept across updates, so a record keeps its position when
// it is re-imported with new content.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - a single open connection, so ":memory:" databases behave
//   - a regexp(pattern, value) SQL function backing the REGEXP operator
package store
