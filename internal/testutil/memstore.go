package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/wikichain/internal/ir"
)

// MemStore is an in-memory element store implementing the same contract as
// store.Store and kvstore.Store. It lets validator and service tests run
// without a database and can inject storage failures.
//
// Thread-safety: all methods are safe for concurrent use.
type MemStore struct {
	mu         sync.RWMutex
	elements   map[ir.Address]ir.Element
	order      []ir.Address
	authorSeqs map[ir.AgentID]int64
	positions  map[ir.AgentID]map[int64]ir.Address

	resolveErr error
	appendErr  error
	resolves   int
	appends    int
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		elements:   make(map[ir.Address]ir.Element),
		authorSeqs: make(map[ir.AgentID]int64),
		positions:  make(map[ir.AgentID]map[int64]ir.Address),
	}
}

// FailResolve makes every subsequent Resolve return err. Pass nil to clear.
func (m *MemStore) FailResolve(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolveErr = err
}

// FailAppend makes every subsequent Append return err. Pass nil to clear.
func (m *MemStore) FailAppend(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendErr = err
}

// Resolves returns how many times Resolve was called.
func (m *MemStore) Resolves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.resolves
}

// Appends returns how many Append calls reached the store, failed or not.
func (m *MemStore) Appends() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.appends
}

// Resolve returns the element at addr, or found=false if unknown.
func (m *MemStore) Resolve(_ context.Context, addr ir.Address) (ir.Element, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resolves++
	if m.resolveErr != nil {
		return ir.Element{}, false, m.resolveErr
	}
	e, ok := m.elements[addr]
	return e, ok, nil
}

// Append stores rec and returns its address.
func (m *MemStore) Append(_ context.Context, rec ir.NewRecord) (ir.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.appends++
	if m.appendErr != nil {
		return "", m.appendErr
	}
	if rec.Page.Permission == nil {
		return "", fmt.Errorf("append: permission is not set")
	}

	authorSeq := m.authorSeqs[rec.Author] + 1
	addr, err := ir.ElementAddress(rec.Page, rec.Author, authorSeq, rec.Target)
	if err != nil {
		return "", fmt.Errorf("append: %w", err)
	}
	if _, exists := m.elements[addr]; exists {
		return addr, nil
	}

	m.authorSeqs[rec.Author] = authorSeq
	m.put(ir.Element{
		Address:   addr,
		Page:      rec.Page,
		Author:    rec.Author,
		Target:    rec.Target,
		AuthorSeq: authorSeq,
	})
	return addr, nil
}

// Import stores an element with its metadata intact after checking its
// address. Importing an element already present is a no-op; a chain
// position held by a different element is refused with ir.ErrPositionTaken.
func (m *MemStore) Import(_ context.Context, e ir.Element) error {
	if err := ir.VerifyElement(e); err != nil {
		return fmt.Errorf("import: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.elements[e.Address]; exists {
		return nil
	}
	if _, taken := m.positions[e.Author][e.AuthorSeq]; taken {
		return fmt.Errorf("import: author %s at %d: %w", e.Author, e.AuthorSeq, ir.ErrPositionTaken)
	}
	if e.AuthorSeq > m.authorSeqs[e.Author] {
		m.authorSeqs[e.Author] = e.AuthorSeq
	}
	m.put(e)
	return nil
}

// put assigns the local seq and records e. Caller holds the write lock.
func (m *MemStore) put(e ir.Element) {
	if m.positions[e.Author] == nil {
		m.positions[e.Author] = make(map[int64]ir.Address)
	}
	m.positions[e.Author][e.AuthorSeq] = e.Address
	m.order = append(m.order, e.Address)
	e.Seq = int64(len(m.order))
	m.elements[e.Address] = e
}

// History walks target links from addr back to the root, newest first.
func (m *MemStore) History(ctx context.Context, addr ir.Address) ([]ir.Element, error) {
	chain := []ir.Element{}
	seen := make(map[ir.Address]bool)
	for next := addr; next != ""; {
		if seen[next] {
			return nil, fmt.Errorf("history %s: cycle at %s", addr, next)
		}
		seen[next] = true

		e, found, err := m.Resolve(ctx, next)
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

// Successors returns elements whose target is addr, in append order.
func (m *MemStore) Successors(_ context.Context, addr ir.Address) ([]ir.Element, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []ir.Element{}
	for _, a := range m.order {
		if e := m.elements[a]; e.Target == addr {
			out = append(out, e)
		}
	}
	return out, nil
}

// Log returns every element in append order.
func (m *MemStore) Log(_ context.Context) ([]ir.Element, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ir.Element, 0, len(m.order))
	for _, a := range m.order {
		out = append(out, m.elements[a])
	}
	return out, nil
}

// Close is a no-op; it exists so MemStore satisfies io.Closer like the
// durable stores.
func (m *MemStore) Close() error {
	return nil
}
