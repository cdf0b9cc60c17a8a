package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wikichain/internal/ir"
	"github.com/roach88/wikichain/internal/testutil"
)

func TestStoreContract(t *testing.T) {
	testutil.RunStoreContract(t, func(t *testing.T) testutil.ContractStore {
		return createTestStore(t)
	})
}

func TestAppend_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	addr, err := s.Append(ctx, createTestRecord("Orca whales swim the ocean", ir.AuthorOnly{}, "agent-x", ""))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	e, found, err := s.Resolve(ctx, addr)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Orca whales swim the ocean", e.Page.Content)
	assert.Equal(t, ir.AuthorOnly{}, e.Page.Permission)

	next, err := s.Append(ctx, createTestRecord("second", ir.Others{}, "agent-x", ""))
	require.NoError(t, err)
	n, _, err := s.Resolve(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n.AuthorSeq, "author seq survives reopen")
}

func TestAppend_StoresEntryHash(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := createTestRecord("content", ir.Others{}, "agent-x", "")
	addr, err := s.Append(ctx, rec)
	require.NoError(t, err)

	var stored string
	err = s.DB().QueryRow("SELECT entry_hash FROM elements WHERE address = ?", string(addr)).Scan(&stored)
	require.NoError(t, err)

	want, err := ir.EntryHash(rec.Page)
	require.NoError(t, err)
	assert.Equal(t, want, stored)
}

func TestAppend_NullTargetForCreate(t *testing.T) {
	s := createTestStore(t)

	addr, err := s.Append(context.Background(), createTestRecord("x", ir.Others{}, "agent-x", ""))
	require.NoError(t, err)

	var isNull bool
	err = s.DB().QueryRow("SELECT target IS NULL FROM elements WHERE address = ?", string(addr)).Scan(&isNull)
	require.NoError(t, err)
	assert.True(t, isNull)
}

func TestAppend_RequiresPermission(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Append(context.Background(), ir.NewRecord{Page: ir.WikiPage{Content: "x"}, Author: "agent-x"})
	require.Error(t, err)

	assert.Zero(t, countElements(t, s), "failed append leaves nothing behind")
}

func TestAppend_ClosedStoreFails(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.Append(context.Background(), createTestRecord("x", ir.Others{}, "agent-x", ""))
	assert.Error(t, err)

	_, _, err = s.Resolve(context.Background(), "anything")
	assert.Error(t, err, "resolve on a closed store is a storage failure, not a miss")
}

func TestAppend_CancelledContext(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Append(ctx, createTestRecord("x", ir.Others{}, "agent-x", ""))
	require.Error(t, err)

	assert.Zero(t, countElements(t, s))
}

func TestImport_ConflictingChainPosition(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, createTestRecord("mine", ir.Others{}, "agent-x", ""))
	require.NoError(t, err)

	// A different element claiming the same (author, author_seq) slot.
	p := ir.NewWikiPage("forged", ir.Others{})
	forged := ir.Element{Page: p, Author: "agent-x", AuthorSeq: 1}
	forged.Address = ir.MustElementAddress(p, forged.Author, forged.AuthorSeq, "")

	assert.ErrorIs(t, s.Import(ctx, forged), ir.ErrPositionTaken)
	assert.Equal(t, 1, countElements(t, s))
}
