package validate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/roach88/wikichain/internal/ir"
	"github.com/roach88/wikichain/internal/testutil"
)

const (
	alice ir.AgentID = "agent-alice"
	bob   ir.AgentID = "agent-bob"
)

func create(t *testing.T, s *testutil.MemStore, content string, perm ir.Permission, author ir.AgentID) ir.Address {
	t.Helper()
	addr, err := s.Append(context.Background(), ir.NewRecord{
		Page:   ir.NewWikiPage(content, perm),
		Author: author,
	})
	require.NoError(t, err)
	return addr
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		predPerm  ir.Permission
		newPerm   ir.Permission
		submitter ir.AgentID
		want      ir.Verdict
	}{
		{"author only, same author", ir.AuthorOnly{}, ir.AuthorOnly{}, alice, ir.Accept()},
		{"author only, other agent", ir.AuthorOnly{}, ir.AuthorOnly{}, bob, ir.Reject(ir.ReasonAuthorOnly)},
		{"others, same author", ir.Others{}, ir.Others{}, alice, ir.Accept()},
		{"others, other agent", ir.Others{}, ir.Others{}, bob, ir.Accept()},
		// Incoming permission has no say in the verdict.
		{"author only, update claims others", ir.AuthorOnly{}, ir.Others{}, bob, ir.Reject(ir.ReasonAuthorOnly)},
		{"others, update claims author only", ir.Others{}, ir.AuthorOnly{}, bob, ir.Accept()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testutil.NewMemStore()
			target := create(t, s, "Beluga", tt.predPerm, alice)

			got, err := New(s).Validate(context.Background(), ir.UpdateOperation{
				Page:   ir.NewWikiPage("Orca", tt.newPerm),
				Target: target,
				Author: tt.submitter,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate_UnknownTarget(t *testing.T) {
	s := testutil.NewMemStore()
	create(t, s, "Beluga", ir.Others{}, alice)

	got, err := New(s).Validate(context.Background(), ir.UpdateOperation{
		Page:   ir.NewWikiPage("Orca", ir.Others{}),
		Target: ir.Address("0000000000000000000000000000000000000000000000000000000000000000"),
		Author: alice,
	})
	require.NoError(t, err)
	assert.Equal(t, ir.Reject(ir.ReasonPredecessorNotFound), got)
}

func TestValidate_StorageFailureIsNotRejection(t *testing.T) {
	s := testutil.NewMemStore()
	target := create(t, s, "Beluga", ir.Others{}, alice)
	boom := errors.New("disk on fire")
	s.FailResolve(boom)

	got, err := New(s).Validate(context.Background(), ir.UpdateOperation{
		Page:   ir.NewWikiPage("Orca", ir.Others{}),
		Target: target,
		Author: alice,
	})
	require.Error(t, err)
	assert.Equal(t, ir.Verdict{}, got)
	assert.True(t, ir.IsStorageError(err))
	assert.ErrorIs(t, err, boom)

	var se *ir.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "resolve", se.Op)
	assert.Equal(t, target, se.Address)
}

func TestValidate_Idempotent(t *testing.T) {
	s := testutil.NewMemStore()
	target := create(t, s, "Beluga", ir.AuthorOnly{}, alice)
	v := New(s)
	op := ir.UpdateOperation{Page: ir.NewWikiPage("Orca", ir.AuthorOnly{}), Target: target, Author: bob}

	first, err := v.Validate(context.Background(), op)
	require.NoError(t, err)
	second, err := v.Validate(context.Background(), op)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, s.Resolves())
	assert.Equal(t, 1, s.Appends(), "validation must not append")
}

// C superseding B is judged against B alone, even when the root A was
// locked to a different author.
func TestValidate_ChecksOneHopOnly(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewMemStore()
	a := create(t, s, "v1", ir.AuthorOnly{}, alice)

	b, err := s.Append(ctx, ir.NewRecord{Page: ir.NewWikiPage("v2", ir.Others{}), Author: alice, Target: a})
	require.NoError(t, err)

	v := New(s)
	got, err := v.Validate(ctx, ir.UpdateOperation{Page: ir.NewWikiPage("v3", ir.Others{}), Target: b, Author: bob})
	require.NoError(t, err)
	assert.True(t, got.Accepted())

	got, err = v.Validate(ctx, ir.UpdateOperation{Page: ir.NewWikiPage("v3", ir.Others{}), Target: a, Author: bob})
	require.NoError(t, err)
	assert.Equal(t, ir.Reject(ir.ReasonAuthorOnly), got)
}

func TestDecide_UnsetPermission(t *testing.T) {
	pred := ir.Element{Page: ir.WikiPage{Content: "x"}, Author: alice}
	assert.Equal(t, ir.Reject(ir.ReasonUnknownPermission), Decide(pred, alice))
}

func TestDecide_Properties(t *testing.T) {
	genAgent := rapid.Custom(func(t *rapid.T) ir.AgentID {
		return ir.AgentID(rapid.StringMatching(`agent-[a-z0-9]{1,8}`).Draw(t, "agent"))
	})
	genPermission := rapid.Custom(func(t *rapid.T) ir.Permission {
		if rapid.Bool().Draw(t, "authorOnly") {
			return ir.AuthorOnly{}
		}
		return ir.Others{}
	})

	rapid.Check(t, func(rt *rapid.T) {
		owner := genAgent.Draw(rt, "owner")
		submitter := genAgent.Draw(rt, "submitter")
		perm := genPermission.Draw(rt, "permission")
		pred := ir.Element{
			Page:   ir.NewWikiPage(rapid.String().Draw(rt, "content"), perm),
			Author: owner,
		}

		got := Decide(pred, submitter)

		switch perm.(type) {
		case ir.Others:
			if !got.Accepted() {
				rt.Fatalf("Others must accept any submitter, got %v", got)
			}
		case ir.AuthorOnly:
			if (submitter == owner) != got.Accepted() {
				rt.Fatalf("AuthorOnly owner=%s submitter=%s got %v", owner, submitter, got)
			}
			if !got.Accepted() && got.Reason != ir.ReasonAuthorOnly {
				rt.Fatalf("unexpected reason %q", got.Reason)
			}
		}

		if again := Decide(pred, submitter); again != got {
			rt.Fatalf("Decide not deterministic: %v then %v", got, again)
		}
	})
}

// The incoming page never influences the verdict.
func TestValidate_IgnoresIncomingPage(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := testutil.NewMemStore()
		predPerm := rapid.SampledFrom([]ir.Permission{ir.AuthorOnly{}, ir.Others{}}).Draw(rt, "predPerm")
		target, err := s.Append(context.Background(), ir.NewRecord{
			Page:   ir.NewWikiPage("root", predPerm),
			Author: alice,
		})
		if err != nil {
			rt.Fatalf("append: %v", err)
		}
		submitter := rapid.SampledFrom([]ir.AgentID{alice, bob}).Draw(rt, "submitter")
		v := New(s)

		var verdicts []ir.Verdict
		for i := 0; i < 2; i++ {
			page := ir.NewWikiPage(
				rapid.String().Draw(rt, "content"),
				rapid.SampledFrom([]ir.Permission{ir.AuthorOnly{}, ir.Others{}}).Draw(rt, "newPerm"),
			)
			got, err := v.Validate(context.Background(), ir.UpdateOperation{Page: page, Target: target, Author: submitter})
			if err != nil {
				rt.Fatalf("validate: %v", err)
			}
			verdicts = append(verdicts, got)
		}
		if verdicts[0] != verdicts[1] {
			rt.Fatalf("verdict depends on incoming page: %v vs %v", verdicts[0], verdicts[1])
		}
	})
}

// Scenarios from the wiki walkthrough. Scenario C (create) never reaches the
// validator and is covered by the wiki package.
func TestValidate_Scenarios(t *testing.T) {
	ctx := context.Background()
	const (
		original = "Beluga whales are wonderful creatures of the sea"
		edited   = "Beluga whales are silly creatures of the sea"
	)

	t.Run("A: author-only page, another agent edits", func(t *testing.T) {
		s := testutil.NewMemStore()
		x := create(t, s, original, ir.AuthorOnly{}, alice)
		got, err := New(s).Validate(ctx, ir.UpdateOperation{Page: ir.NewWikiPage(edited, ir.AuthorOnly{}), Target: x, Author: bob})
		require.NoError(t, err)
		assert.Equal(t, ir.Reject("only the author can edit this record"), got)
	})

	t.Run("B: open page, another agent edits", func(t *testing.T) {
		s := testutil.NewMemStore()
		y := create(t, s, original, ir.Others{}, alice)
		got, err := New(s).Validate(ctx, ir.UpdateOperation{Page: ir.NewWikiPage(edited, ir.Others{}), Target: y, Author: bob})
		require.NoError(t, err)
		assert.Equal(t, ir.Accept(), got)
	})

	t.Run("D: target never appended", func(t *testing.T) {
		s := testutil.NewMemStore()
		never := ir.MustElementAddress(ir.NewWikiPage(original, ir.AuthorOnly{}), alice, 1, "")
		got, err := New(s).Validate(ctx, ir.UpdateOperation{Page: ir.NewWikiPage(edited, ir.Others{}), Target: never, Author: bob})
		require.NoError(t, err)
		assert.Equal(t, ir.Reject("predecessor record not found"), got)
		assert.Equal(t, 0, s.Appends())
	})

	t.Run("author edits own locked page", func(t *testing.T) {
		s := testutil.NewMemStore()
		x := create(t, s, original, ir.AuthorOnly{}, alice)
		got, err := New(s).Validate(ctx, ir.UpdateOperation{Page: ir.NewWikiPage(edited, ir.AuthorOnly{}), Target: x, Author: alice})
		require.NoError(t, err)
		assert.Equal(t, ir.Accept(), got)
	})

	t.Run("relaxing the lock does not help", func(t *testing.T) {
		s := testutil.NewMemStore()
		x := create(t, s, original, ir.AuthorOnly{}, alice)
		got, err := New(s).Validate(ctx, ir.UpdateOperation{Page: ir.NewWikiPage(edited, ir.Others{}), Target: x, Author: bob})
		require.NoError(t, err)
		assert.Equal(t, ir.Reject(ir.ReasonAuthorOnly), got)
	})
}

func TestValidate_EmptyTarget(t *testing.T) {
	got, err := New(testutil.NewMemStore()).Validate(context.Background(), ir.UpdateOperation{
		Page:   ir.NewWikiPage("x", ir.Others{}),
		Author: alice,
	})
	require.NoError(t, err)
	assert.Equal(t, ir.Reject(ir.ReasonPredecessorNotFound), got)
}
