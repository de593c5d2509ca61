package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/recache/internal/cache"
	"github.com/roach88/recache/internal/ir"
)

// ErrEntryNotFound is returned by Entry for an unknown id.
var ErrEntryNotFound = errors.New("journal: entry not found")

// Entry is one committed transform.
type Entry struct {
	ID         string
	Seq        int64
	Operations []ir.Operation
	Inverse    []ir.Operation
	Hash       string
}

// Append stores a committed transform and returns its entry.
func (j *Journal) Append(ctx context.Context, tr cache.Transform) (Entry, error) {
	opsJSON, err := ir.MarshalOperations(tr.Operations)
	if err != nil {
		return Entry{}, fmt.Errorf("append: %w", err)
	}
	invJSON, err := ir.MarshalOperations(tr.Inverse)
	if err != nil {
		return Entry{}, fmt.Errorf("append: %w", err)
	}
	hash, err := transformHash(tr.Operations, tr.Inverse)
	if err != nil {
		return Entry{}, fmt.Errorf("append: %w", err)
	}

	e := Entry{
		ID:         j.ids.Generate(),
		Seq:        j.clock.Next(),
		Operations: tr.Operations,
		Inverse:    tr.Inverse,
		Hash:       hash,
	}
	_, err = j.db.ExecContext(ctx, `
		INSERT INTO transforms (id, seq, operations, inverse, hash)
		VALUES (?, ?, ?, ?, ?)
	`, e.ID, e.Seq, string(opsJSON), string(invJSON), e.Hash)
	if err != nil {
		return Entry{}, fmt.Errorf("append: %w", err)
	}
	return e, nil
}

func transformHash(ops, inverse []ir.Operation) (string, error) {
	return ir.ContentHash(ir.DomainTransform, ir.IRObject{
		"operations": ir.EncodeOperations(ops),
		"inverse":    ir.EncodeOperations(inverse),
	})
}

// Entries returns the entries with seq greater than afterSeq, in seq order.
// It returns an empty slice, not nil, when there are none.
func (j *Journal) Entries(ctx context.Context, afterSeq int64) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, seq, operations, inverse, hash
		FROM transforms
		WHERE seq > ?
		ORDER BY seq ASC
	`, afterSeq)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// Entry returns one entry by id.
func (j *Journal) Entry(ctx context.Context, id string) (Entry, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT id, seq, operations, inverse, hash
		FROM transforms
		WHERE id = ?
	`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	return e, err
}

// LastSeq returns the highest stored seq, or 0 for an empty journal.
func (j *Journal) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := j.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM transforms`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

// Truncate deletes the entries with seq up to and including throughSeq and
// returns how many were deleted.
func (j *Journal) Truncate(ctx context.Context, throughSeq int64) (int64, error) {
	res, err := j.db.ExecContext(ctx, `DELETE FROM transforms WHERE seq <= ?`, throughSeq)
	if err != nil {
		return 0, fmt.Errorf("truncate: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("truncate: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e       Entry
		opsJSON string
		invJSON string
	)
	if err := s.Scan(&e.ID, &e.Seq, &opsJSON, &invJSON, &e.Hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan entry: %w", err)
	}
	var err error
	if e.Operations, err = ir.UnmarshalOperations([]byte(opsJSON)); err != nil {
		return Entry{}, fmt.Errorf("entry %s operations: %w", e.ID, err)
	}
	if e.Inverse, err = ir.UnmarshalOperations([]byte(invJSON)); err != nil {
		return Entry{}, fmt.Errorf("entry %s inverse: %w", e.ID, err)
	}
	return e, nil
}
