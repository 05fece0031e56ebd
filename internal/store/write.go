package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/nullg/internal/ir"
)

// Record is one stored, typed record.
type Record struct {
	ID          string
	ItemClass   string
	ContentHash string
	Seq         int64
	Body        ir.Object
}

// PutResult reports what PutRecord did.
type PutResult int

const (
	// Inserted means the record was new.
	Inserted PutResult = iota
	// Updated means the record existed with different content.
	Updated
	// Unchanged means the record existed with the same content hash.
	Unchanged
)

func (r PutResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	default:
		return "unchanged"
	}
}

// PutRecord stores a typed record under itemClass.
//
// The record id is body["id"] when present (string or integer). Otherwise a
// new id is generated and written into the stored body. Re-putting a record
// whose content hash is unchanged is a no-op.
func (s *Store) PutRecord(ctx context.Context, itemClass string, body ir.Object) (Record, PutResult, error) {
	if itemClass == "" {
		return Record{}, Unchanged, fmt.Errorf("write record: empty item class")
	}
	id, ok := recordID(body)
	if !ok {
		id = s.ids.NewID()
		body = body.With("id", ir.String(id))
	}

	hash, err := ir.RecordHash(itemClass, body)
	if err != nil {
		return Record{}, Unchanged, fmt.Errorf("write record %s/%s: %w", itemClass, id, err)
	}
	data, err := marshalBody(body)
	if err != nil {
		return Record{}, Unchanged, fmt.Errorf("write record %s/%s: %w", itemClass, id, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, Unchanged, fmt.Errorf("write record %s/%s: begin: %w", itemClass, id, err)
	}
	defer tx.Rollback()

	var (
		seq      int64
		existing string
		result   PutResult
	)
	err = tx.QueryRowContext(ctx,
		`SELECT seq, content_hash FROM records WHERE item_class = ? AND id = ?`,
		itemClass, id).Scan(&seq, &existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx, `
			INSERT INTO records (id, item_class, content_hash, body)
			VALUES (?, ?, ?, ?)
		`, id, itemClass, hash, data)
		if err != nil {
			return Record{}, Unchanged, fmt.Errorf("write record %s/%s: %w", itemClass, id, err)
		}
		if seq, err = res.LastInsertId(); err != nil {
			return Record{}, Unchanged, fmt.Errorf("write record %s/%s: %w", itemClass, id, err)
		}
		result = Inserted
	case err != nil:
		return Record{}, Unchanged, fmt.Errorf("write record %s/%s: %w", itemClass, id, err)
	case existing == hash:
		result = Unchanged
	default:
		_, err := tx.ExecContext(ctx, `
			UPDATE records SET content_hash = ?, body = ?
			WHERE item_class = ? AND id = ?
		`, hash, data, itemClass, id)
		if err != nil {
			return Record{}, Unchanged, fmt.Errorf("write record %s/%s: %w", itemClass, id, err)
		}
		result = Updated
	}

	if err := tx.Commit(); err != nil {
		return Record{}, Unchanged, fmt.Errorf("write record %s/%s: commit: %w", itemClass, id, err)
	}
	s.logger.Debug("record stored",
		"item_class", itemClass,
		"id", id,
		"seq", seq,
		"result", result.String())

	return Record{ID: id, ItemClass: itemClass, ContentHash: hash, Seq: seq, Body: body}, result, nil
}

// DeleteRecord removes a record. Deleting a missing record returns
// ErrNotFound.
func (s *Store) DeleteRecord(ctx context.Context, itemClass, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE item_class = ? AND id = ?`, itemClass, id)
	if err != nil {
		return fmt.Errorf("delete record %s/%s: %w", itemClass, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record %s/%s: %w", itemClass, id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete record %s/%s: %w", itemClass, id, ErrNotFound)
	}
	return nil
}
