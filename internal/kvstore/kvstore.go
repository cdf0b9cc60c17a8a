// Package kvstore stores wikichain elements in badger.
//
// Key layout (all keys are ASCII):
//
//	e/<address>            element JSON
//	a/<author>             highest author_seq held for author (decimal)
//	p/<author>/<seq %020d> chain position, value is the address
//	t/<target>/<address>   successor index, empty value
//	l/<seq %020d>          log order, value is the address
//	m/seq                  last assigned seq (decimal)
//
// Every append runs in one read-write transaction, so a failed append
// leaves no keys behind.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/roach88/wikichain/internal/ir"
)

var (
	prefixElement   = []byte("e/")
	prefixAuthor    = []byte("a/")
	prefixPosition  = []byte("p/")
	prefixTarget    = []byte("t/")
	prefixLog       = []byte("l/")
	keyLastSequence = []byte("m/seq")
)

// Options configures Open.
type Options struct {
	// Dir is the badger data directory. Ignored when InMemory is set.
	Dir string

	// InMemory keeps everything in RAM. Used by tests.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool
}

// Store is the badger-backed element log.
//
// Thread-safety: safe for concurrent use. Appends are serialized so author
// and log sequence numbers never race.
type Store struct {
	db      *badger.DB
	writeMu sync.Mutex
}

// Open opens (or creates) a badger-backed store.
func Open(opts Options) (*Store, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Dir == "" {
			return nil, fmt.Errorf("kvstore: data directory is required")
		}
		bopts = badger.DefaultOptions(opts.Dir)
	}
	bopts = bopts.
		WithLoggingLevel(badger.ERROR).
		WithSyncWrites(opts.SyncWrites)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("kvstore: open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying badger database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Resolve returns the element at addr.
// found is false (with a nil error) when the address is unknown.
func (s *Store) Resolve(ctx context.Context, addr ir.Address) (ir.Element, bool, error) {
	if err := ctx.Err(); err != nil {
		return ir.Element{}, false, err
	}

	var e ir.Element
	found := true
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		e, err = getElement(txn, addr)
		if errors.Is(err, badger.ErrKeyNotFound) {
			found = false
			return nil
		}
		return err
	})
	if err != nil {
		return ir.Element{}, false, fmt.Errorf("resolve %s: %w", addr, err)
	}
	if !found {
		return ir.Element{}, false, nil
	}
	return e, true, nil
}

// Append stores a new element and returns its address.
// Appending an element that already exists is a no-op.
func (s *Store) Append(ctx context.Context, rec ir.NewRecord) (ir.Address, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("append: %w", err)
	}
	if rec.Page.Permission == nil {
		return "", fmt.Errorf("append: permission is not set")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var addr ir.Address
	err := s.db.Update(func(txn *badger.Txn) error {
		authorSeq, err := getCounter(txn, authorKey(rec.Author))
		if err != nil {
			return err
		}
		authorSeq++

		addr, err = ir.ElementAddress(rec.Page, rec.Author, authorSeq, rec.Target)
		if err != nil {
			return err
		}

		return putElement(txn, ir.Element{
			Address:   addr,
			Page:      rec.Page,
			Author:    rec.Author,
			Target:    rec.Target,
			AuthorSeq: authorSeq,
		})
	})
	if err != nil {
		return "", fmt.Errorf("append: %w", err)
	}
	return addr, nil
}

// Import stores an element with its metadata intact after checking its
// address. Importing an element already present is a no-op. Elements may
// arrive in any order; a chain position held by a different element is
// refused with ir.ErrPositionTaken.
func (s *Store) Import(ctx context.Context, e ir.Element) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	if err := ir.VerifyElement(e); err != nil {
		return fmt.Errorf("import: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		return putElement(txn, e)
	})
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	return nil
}

// putElement writes e and its index keys unless e.Address already exists.
// It assigns e.Seq and raises the author's counter to at least e.AuthorSeq.
func putElement(txn *badger.Txn, e ir.Element) error {
	_, err := txn.Get(elementKey(e.Address))
	if err == nil {
		return nil
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}

	_, err = txn.Get(positionKey(e.Author, e.AuthorSeq))
	if err == nil {
		return fmt.Errorf("author %s at %d: %w", e.Author, e.AuthorSeq, ir.ErrPositionTaken)
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}

	authorSeq, err := getCounter(txn, authorKey(e.Author))
	if err != nil {
		return err
	}
	authorSeq = max(authorSeq, e.AuthorSeq)

	seq, err := getCounter(txn, keyLastSequence)
	if err != nil {
		return err
	}
	seq++
	e.Seq = seq

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode element: %w", err)
	}

	writes := []struct{ key, val []byte }{
		{elementKey(e.Address), data},
		{authorKey(e.Author), []byte(strconv.FormatInt(authorSeq, 10))},
		{positionKey(e.Author, e.AuthorSeq), []byte(e.Address)},
		{logKey(seq), []byte(e.Address)},
		{keyLastSequence, []byte(strconv.FormatInt(seq, 10))},
	}
	if e.Target != "" {
		writes = append(writes, struct{ key, val []byte }{targetKey(e.Target, e.Address), nil})
	}
	for _, w := range writes {
		if err := txn.Set(w.key, w.val); err != nil {
			return err
		}
	}
	return nil
}

func getElement(txn *badger.Txn, addr ir.Address) (ir.Element, error) {
	item, err := txn.Get(elementKey(addr))
	if err != nil {
		return ir.Element{}, err
	}
	data, err := item.ValueCopy(nil)
	if err != nil {
		return ir.Element{}, err
	}
	var e ir.Element
	if err := json.Unmarshal(data, &e); err != nil {
		return ir.Element{}, fmt.Errorf("decode element %s: %w", addr, err)
	}
	return e, nil
}

// getCounter reads a decimal counter, treating a missing key as zero.
func getCounter(txn *badger.Txn, key []byte) (int64, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	data, err := item.ValueCopy(nil)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter %q: %w", key, err)
	}
	return n, nil
}

func elementKey(addr ir.Address) []byte {
	return append(append([]byte{}, prefixElement...), addr...)
}

func authorKey(author ir.AgentID) []byte {
	return append(append([]byte{}, prefixAuthor...), author...)
}

func positionKey(author ir.AgentID, authorSeq int64) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d", prefixPosition, author, authorSeq))
}

func targetKey(target, addr ir.Address) []byte {
	key := append(append([]byte{}, prefixTarget...), target...)
	key = append(key, '/')
	return append(key, addr...)
}

func targetPrefix(target ir.Address) []byte {
	key := append(append([]byte{}, prefixTarget...), target...)
	return append(key, '/')
}

func logKey(seq int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixLog, seq))
}
