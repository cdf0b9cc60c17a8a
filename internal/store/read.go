package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/wikichain/internal/ir"
)

const elementColumns = `seq, address, content, permission, author, author_seq, target`

// Resolve returns the element at addr.
// found is false (with a nil error) when the address is unknown.
func (s *Store) Resolve(ctx context.Context, addr ir.Address) (ir.Element, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+elementColumns+`
		FROM elements
		WHERE address = ?
	`, string(addr))

	e, err := scanElement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Element{}, false, nil
	}
	if err != nil {
		return ir.Element{}, false, fmt.Errorf("resolve %s: %w", addr, err)
	}
	return e, true, nil
}

// History returns the chain ending at addr, newest first: the element at
// addr, its predecessor, and so on back to the page that started the chain.
// The walk stops early at a predecessor this store does not hold.
//
// Returns an empty slice if addr itself is unknown.
func (s *Store) History(ctx context.Context, addr ir.Address) ([]ir.Element, error) {
	chain := []ir.Element{}
	seen := make(map[ir.Address]bool)

	for next := addr; next != ""; {
		if seen[next] {
			return nil, fmt.Errorf("history %s: cycle at %s", addr, next)
		}
		seen[next] = true

		e, found, err := s.Resolve(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("history: %w", err)
		}
		if !found {
			break
		}
		chain = append(chain, e)
		next = e.Target
	}

	return chain, nil
}

// Successors returns the elements whose target is addr, ordered by seq.
// More than one successor means divergent updates of the same predecessor.
func (s *Store) Successors(ctx context.Context, addr ir.Address) ([]ir.Element, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+elementColumns+`
		FROM elements
		WHERE target = ?
		ORDER BY seq ASC
	`, string(addr))
	if err != nil {
		return nil, fmt.Errorf("query successors: %w", err)
	}
	return collectElements(rows)
}

// Log returns every element in append order.
// Used for replay validation.
func (s *Store) Log(ctx context.Context) ([]ir.Element, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+elementColumns+`
		FROM elements
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query log: %w", err)
	}
	return collectElements(rows)
}

// collectElements drains rows into a non-nil slice and closes them.
func collectElements(rows *sql.Rows) ([]ir.Element, error) {
	defer rows.Close()

	elements := []ir.Element{}
	for rows.Next() {
		e, err := scanElement(rows)
		if err != nil {
			return nil, err
		}
		elements = append(elements, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate elements: %w", err)
	}

	return elements, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanElement scans one row selected with elementColumns.
func scanElement(row rowScanner) (ir.Element, error) {
	var e ir.Element
	var addr, author, permission string
	var target sql.NullString

	if err := row.Scan(&e.Seq, &addr, &e.Page.Content, &permission, &author, &e.AuthorSeq, &target); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.Element{}, err
		}
		return ir.Element{}, fmt.Errorf("scan element: %w", err)
	}

	perm, err := ir.ParsePermission(permission)
	if err != nil {
		return ir.Element{}, fmt.Errorf("scan element %s: %w", addr, err)
	}

	e.Address = ir.Address(addr)
	e.Author = ir.AgentID(author)
	e.Page.Permission = perm
	if target.Valid {
		e.Target = ir.Address(target.String)
	}
	return e, nil
}
