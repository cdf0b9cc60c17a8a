package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wikichain/internal/ir"
)

// ContractStore is the surface every element store exposes.
type ContractStore interface {
	Resolve(ctx context.Context, addr ir.Address) (ir.Element, bool, error)
	Append(ctx context.Context, rec ir.NewRecord) (ir.Address, error)
	Import(ctx context.Context, e ir.Element) error
	History(ctx context.Context, addr ir.Address) ([]ir.Element, error)
	Successors(ctx context.Context, addr ir.Address) ([]ir.Element, error)
	Log(ctx context.Context) ([]ir.Element, error)
}

// RunStoreContract runs the behaviour shared by all element stores.
// open must return a fresh, empty store for each call.
func RunStoreContract(t *testing.T, open func(t *testing.T) ContractStore) {
	t.Helper()

	page := func(content string, perm ir.Permission) ir.WikiPage {
		return ir.NewWikiPage(content, perm)
	}

	t.Run("resolve unknown address", func(t *testing.T) {
		s := open(t)
		_, found, err := s.Resolve(context.Background(), "no-such-address")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("append then resolve", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		p := page("Beluga whales are wonderful creatures of the sea", ir.AuthorOnly{})
		addr, err := s.Append(ctx, ir.NewRecord{Page: p, Author: "agent-x"})
		require.NoError(t, err)
		assert.Equal(t, ir.MustElementAddress(p, "agent-x", 1, ""), addr)

		e, found, err := s.Resolve(ctx, addr)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, addr, e.Address)
		assert.Equal(t, p, e.Page)
		assert.Equal(t, ir.AgentID("agent-x"), e.Author)
		assert.Empty(t, e.Target)
		assert.Equal(t, int64(1), e.AuthorSeq)
		assert.Equal(t, int64(1), e.Seq)
		assert.NoError(t, ir.VerifyElement(e))
	})

	t.Run("author seq per author", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		p := page("same content", ir.Others{})
		a1, err := s.Append(ctx, ir.NewRecord{Page: p, Author: "agent-x"})
		require.NoError(t, err)
		a2, err := s.Append(ctx, ir.NewRecord{Page: p, Author: "agent-x"})
		require.NoError(t, err)
		b1, err := s.Append(ctx, ir.NewRecord{Page: p, Author: "agent-y"})
		require.NoError(t, err)

		assert.NotEqual(t, a1, a2, "same author, same page, new chain position")
		assert.NotEqual(t, a1, b1, "different authors never share an address")

		e2, _, err := s.Resolve(ctx, a2)
		require.NoError(t, err)
		assert.Equal(t, int64(2), e2.AuthorSeq)

		eb, _, err := s.Resolve(ctx, b1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), eb.AuthorSeq)
	})

	t.Run("update links to target", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		a, err := s.Append(ctx, ir.NewRecord{Page: page("v1", ir.Others{}), Author: "agent-x"})
		require.NoError(t, err)
		b, err := s.Append(ctx, ir.NewRecord{Page: page("v2", ir.AuthorOnly{}), Author: "agent-y", Target: a})
		require.NoError(t, err)

		e, found, err := s.Resolve(ctx, b)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, a, e.Target)
		assert.True(t, e.IsUpdate())

		orig, _, err := s.Resolve(ctx, a)
		require.NoError(t, err)
		assert.Equal(t, "v1", orig.Page.Content, "predecessor is never mutated")
	})

	t.Run("history newest first", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		a, err := s.Append(ctx, ir.NewRecord{Page: page("A", ir.Others{}), Author: "agent-x"})
		require.NoError(t, err)
		b, err := s.Append(ctx, ir.NewRecord{Page: page("B", ir.Others{}), Author: "agent-y", Target: a})
		require.NoError(t, err)
		c, err := s.Append(ctx, ir.NewRecord{Page: page("C", ir.Others{}), Author: "agent-x", Target: b})
		require.NoError(t, err)

		chain, err := s.History(ctx, c)
		require.NoError(t, err)
		require.Len(t, chain, 3)
		assert.Equal(t, []ir.Address{c, b, a}, addresses(chain))

		chain, err = s.History(ctx, "unknown")
		require.NoError(t, err)
		assert.Empty(t, chain)
	})

	t.Run("history stops at missing predecessor", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		orphan, err := s.Append(ctx, ir.NewRecord{Page: page("orphan", ir.Others{}), Author: "agent-x", Target: "not-synced-yet"})
		require.NoError(t, err)

		chain, err := s.History(ctx, orphan)
		require.NoError(t, err)
		assert.Equal(t, []ir.Address{orphan}, addresses(chain))
	})

	t.Run("successors", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		a, err := s.Append(ctx, ir.NewRecord{Page: page("A", ir.Others{}), Author: "agent-x"})
		require.NoError(t, err)
		b1, err := s.Append(ctx, ir.NewRecord{Page: page("B1", ir.Others{}), Author: "agent-y", Target: a})
		require.NoError(t, err)
		b2, err := s.Append(ctx, ir.NewRecord{Page: page("B2", ir.Others{}), Author: "agent-z", Target: a})
		require.NoError(t, err)

		succ, err := s.Successors(ctx, a)
		require.NoError(t, err)
		assert.Equal(t, []ir.Address{b1, b2}, addresses(succ))

		succ, err = s.Successors(ctx, b1)
		require.NoError(t, err)
		assert.Empty(t, succ)
	})

	t.Run("log in append order", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		log, err := s.Log(ctx)
		require.NoError(t, err)
		assert.NotNil(t, log)
		assert.Empty(t, log)

		var want []ir.Address
		for _, content := range []string{"one", "two", "three"} {
			addr, err := s.Append(ctx, ir.NewRecord{Page: page(content, ir.Others{}), Author: "agent-x"})
			require.NoError(t, err)
			want = append(want, addr)
		}

		log, err = s.Log(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, addresses(log))
		for i, e := range log {
			assert.Equal(t, int64(i+1), e.Seq)
		}
	})

	t.Run("import keeps metadata", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		p := page("from a peer", ir.AuthorOnly{})
		e := ir.Element{
			Page:      p,
			Author:    "agent-peer",
			AuthorSeq: 7,
			Target:    "somewhere",
		}
		e.Address = ir.MustElementAddress(p, e.Author, e.AuthorSeq, e.Target)

		require.NoError(t, s.Import(ctx, e))
		require.NoError(t, s.Import(ctx, e), "import is idempotent")

		got, found, err := s.Resolve(ctx, e.Address)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, int64(7), got.AuthorSeq)
		assert.Equal(t, ir.Address("somewhere"), got.Target)

		next, err := s.Append(ctx, ir.NewRecord{Page: page("local", ir.Others{}), Author: "agent-peer"})
		require.NoError(t, err)
		n, _, err := s.Resolve(ctx, next)
		require.NoError(t, err)
		assert.Equal(t, int64(8), n.AuthorSeq, "appends continue after imported chain position")
	})

	t.Run("import rejects tampered element", func(t *testing.T) {
		s := open(t)
		p := page("original", ir.Others{})
		e := ir.Element{Page: p, Author: "agent-x", AuthorSeq: 1}
		e.Address = ir.MustElementAddress(p, e.Author, e.AuthorSeq, "")
		e.Page.Content = "tampered"

		assert.Error(t, s.Import(context.Background(), e))
	})

	t.Run("import out of order", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		for _, seq := range []int64{3, 2} {
			p := page("from a peer", ir.Others{})
			e := ir.Element{Page: p, Author: "agent-peer", AuthorSeq: seq}
			e.Address = ir.MustElementAddress(p, e.Author, seq, "")
			require.NoError(t, s.Import(ctx, e), "position %d", seq)
		}

		log, err := s.Log(ctx)
		require.NoError(t, err)
		assert.Len(t, log, 2)

		next, err := s.Append(ctx, ir.NewRecord{Page: page("local", ir.Others{}), Author: "agent-peer"})
		require.NoError(t, err)
		n, _, err := s.Resolve(ctx, next)
		require.NoError(t, err)
		assert.Equal(t, int64(4), n.AuthorSeq)
	})

	t.Run("import refuses a taken chain position", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		for i, content := range []string{"first", "second"} {
			p := page(content, ir.Others{})
			e := ir.Element{Page: p, Author: "agent-peer", AuthorSeq: 1}
			e.Address = ir.MustElementAddress(p, e.Author, 1, "")
			err := s.Import(ctx, e)
			if i == 0 {
				require.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ir.ErrPositionTaken)
			}
		}

		log, err := s.Log(ctx)
		require.NoError(t, err)
		require.Len(t, log, 1)
		assert.Equal(t, "first", log[0].Page.Content)
	})

	t.Run("append rejects text that does not hash losslessly", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		for _, content := range []string{"a\xffb", "cafe\u0301"} {
			_, err := s.Append(ctx, ir.NewRecord{Page: page(content, ir.Others{}), Author: "agent-x"})
			assert.Error(t, err, "%q", content)
		}
		_, err := s.Append(ctx, ir.NewRecord{Page: page("ok", ir.Others{}), Author: "agent-\xff"})
		assert.Error(t, err)

		log, err := s.Log(ctx)
		require.NoError(t, err)
		assert.Empty(t, log)
	})

	t.Run("import rejects invalid UTF-8 content", func(t *testing.T) {
		s := open(t)
		p := page("a\ufffdb", ir.Others{})
		e := ir.Element{Page: p, Author: "agent-x", AuthorSeq: 1}
		e.Address = ir.MustElementAddress(p, e.Author, e.AuthorSeq, "")
		e.Page.Content = "a\xffb"

		assert.Error(t, s.Import(context.Background(), e))
	})

	t.Run("resolve returns content byte for byte", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		p := page("caf\u00e9 <&> \u2028 \U0001F40B", ir.AuthorOnly{})
		addr, err := s.Append(ctx, ir.NewRecord{Page: p, Author: "agent-x"})
		require.NoError(t, err)

		e, found, err := s.Resolve(ctx, addr)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, p.Content, e.Page.Content)
		assert.NoError(t, ir.VerifyElement(e))
	})

	t.Run("concurrent appends", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		root, err := s.Append(ctx, ir.NewRecord{Page: page("root", ir.Others{}), Author: "agent-x"})
		require.NoError(t, err)

		const n = 8
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := s.Append(ctx, ir.NewRecord{
					Page:   page("edit", ir.Others{}),
					Author: ir.AgentID("agent-" + string(rune('a'+i))),
					Target: root,
				})
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		succ, err := s.Successors(ctx, root)
		require.NoError(t, err)
		assert.Len(t, succ, n, "divergent updates all land; ordering is not this layer's job")
	})
}

func addresses(elements []ir.Element) []ir.Address {
	out := make([]ir.Address, len(elements))
	for i, e := range elements {
		out[i] = e.Address
	}
	return out
}
