package kvstore

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/roach88/wikichain/internal/ir"
)

// History returns the chain ending at addr, newest first. The walk stops at
// the first predecessor this store does not hold.
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
func (s *Store) Successors(ctx context.Context, addr ir.Address) ([]ir.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := []ir.Element{}
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := targetPrefix(addr)
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			succ := ir.Address(bytes.TrimPrefix(it.Item().KeyCopy(nil), prefix))
			e, err := getElement(txn, succ)
			if err != nil {
				return fmt.Errorf("successor %s: %w", succ, err)
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("successors %s: %w", addr, err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// Log returns every element in append order.
func (s *Store) Log(ctx context.Context) ([]ir.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := []ir.Element{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefixLog, PrefetchValues: true})
		defer it.Close()

		// Zero-padded seq keys iterate in numeric order.
		for it.Seek(prefixLog); it.ValidForPrefix(prefixLog); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			e, err := getElement(txn, ir.Address(val))
			if err != nil {
				return fmt.Errorf("log entry %s: %w", val, err)
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	return out, nil
}
