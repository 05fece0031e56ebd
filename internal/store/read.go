package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/nullg/internal/ir"
	"github.com/roach88/nullg/internal/queryir"
)

// GetRecord reads one record. Missing records return ErrNotFound.
func (s *Store) GetRecord(ctx context.Context, itemClass, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, id, item_class, content_hash, body
		FROM records
		WHERE item_class = ? AND id = ?
	`, itemClass, id)

	var (
		rec  Record
		body string
	)
	err := row.Scan(&rec.Seq, &rec.ID, &rec.ItemClass, &rec.ContentHash, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("read record %s/%s: %w", itemClass, id, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("read record %s/%s: %w", itemClass, id, err)
	}
	if rec.Body, err = s.decodeBody(itemClass, body); err != nil {
		return Record{}, fmt.Errorf("read record %s/%s: %w", itemClass, id, err)
	}
	return rec, nil
}

// FindRecords returns the records of itemClass matching a filter predicate,
// in insertion order. limit <= 0 means no limit. No match yields an empty,
// non-nil slice.
func (s *Store) FindRecords(ctx context.Context, itemClass string, p queryir.Predicate, limit int) ([]Record, error) {
	query, args, err := s.compiler.Select(itemClass, p, limit)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", itemClass, err)
	}
	s.logger.Debug("find records", "item_class", itemClass, "sql", query, "params", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", itemClass, err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var (
			rec  Record
			body string
		)
		if err := rows.Scan(&rec.Seq, &rec.ID, &rec.ItemClass, &rec.ContentHash, &body); err != nil {
			return nil, fmt.Errorf("find %s: scan: %w", itemClass, err)
		}
		if rec.Body, err = s.decodeBody(itemClass, body); err != nil {
			return nil, fmt.Errorf("find %s: record %s: %w", itemClass, rec.ID, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find %s: %w", itemClass, err)
	}
	return out, nil
}

// CountRecords counts the records of itemClass matching a filter predicate.
func (s *Store) CountRecords(ctx context.Context, itemClass string, p queryir.Predicate) (int, error) {
	query, args, err := s.compiler.Count(itemClass, p)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", itemClass, err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", itemClass, err)
	}
	return n, nil
}

// ItemClasses lists the distinct item classes in the store, sorted.
func (s *Store) ItemClasses(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT item_class FROM records ORDER BY item_class COLLATE BINARY`)
	if err != nil {
		return nil, fmt.Errorf("item classes: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("item classes: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) decodeBody(itemClass, data string) (ir.Object, error) {
	raw, err := unmarshalBody(data)
	if err != nil {
		return nil, err
	}
	return s.decode(itemClass, raw)
}
