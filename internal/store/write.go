package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/wikichain/internal/ir"
)

// Append stores a new element and returns its address.
//
// author_seq, the address and seq are assigned in a single transaction, so a
// failure at any step leaves nothing behind. Appending an element that
// already exists (same address) is a no-op that returns the address.
//
// Append does not validate updates; callers run the validator first.
func (s *Store) Append(ctx context.Context, rec ir.NewRecord) (ir.Address, error) {
	if rec.Page.Permission == nil {
		return "", fmt.Errorf("append: permission is not set")
	}

	entryHash, err := ir.EntryHash(rec.Page)
	if err != nil {
		return "", fmt.Errorf("append: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("append: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var authorSeq int64
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(author_seq), 0) + 1 FROM elements WHERE author = ?
	`, string(rec.Author)).Scan(&authorSeq)
	if err != nil {
		return "", fmt.Errorf("append: next author seq: %w", err)
	}

	addr, err := ir.ElementAddress(rec.Page, rec.Author, authorSeq, rec.Target)
	if err != nil {
		return "", fmt.Errorf("append: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO elements
		(address, entry_hash, content, permission, author, author_seq, target)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(address) DO NOTHING
	`,
		string(addr),
		entryHash,
		rec.Page.Content,
		rec.Page.Permission.String(),
		string(rec.Author),
		authorSeq,
		nullableTarget(rec.Target),
	)
	if err != nil {
		return "", fmt.Errorf("append: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("append: commit: %w", err)
	}

	return addr, nil
}

// Import stores an element received from elsewhere (a peer or a backup)
// with its metadata intact. The address is recomputed and must match.
// Importing an element already present is a no-op. Elements may arrive in
// any order, but a chain position held by a different element is refused
// with ir.ErrPositionTaken.
func (s *Store) Import(ctx context.Context, e ir.Element) error {
	if err := ir.VerifyElement(e); err != nil {
		return fmt.Errorf("import: %w", err)
	}

	entryHash, err := ir.EntryHash(e.Page)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO elements
		(address, entry_hash, content, permission, author, author_seq, target)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(address) DO NOTHING
	`,
		string(e.Address),
		entryHash,
		e.Page.Content,
		e.Page.Permission.String(),
		string(e.Author),
		e.AuthorSeq,
		nullableTarget(e.Target),
	)
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("import: author %s at %d: %w", e.Author, e.AuthorSeq, ir.ErrPositionTaken)
	}
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	return nil
}

func nullableTarget(target ir.Address) sql.NullString {
	return sql.NullString{String: string(target), Valid: target != ""}
}
