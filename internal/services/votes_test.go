package services

import (
	"context"
	"testing"

	"govportal/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCastThenStatusThenSecondCast(t *testing.T) {
	live := newLive(t)
	sched := &recordingScheduler{}
	ledger := NewVoteLedger(selectorWith(live, newFallback(t)), sched, false, zap.NewNop())
	ctx := context.Background()

	x := registerCandidate(t, live, "owner-x", 1001)
	y := registerCandidate(t, live, "owner-y", 1002)

	vote, err := ledger.Cast(ctx, voterA, x.ID)
	require.NoError(t, err)
	assert.Equal(t, x.Name, vote.CandidateName)
	assert.Equal(t, []string{x.ID}, sched.scheduled())

	st, err := ledger.Status(ctx, voterA)
	require.NoError(t, err)
	assert.True(t, st.HasVoted)
	assert.Equal(t, x.ID, st.Vote.CandidateID)
	assert.Equal(t, store.SourceLive, st.Source)

	again, err := ledger.Status(ctx, voterA)
	require.NoError(t, err)
	assert.Equal(t, st, again, "status reads are idempotent")

	_, err = ledger.Cast(ctx, voterA, y.ID)
	assert.ErrorIs(t, err, ErrAlreadyVoted)

	got, err := live.FindCandidate(ctx, x.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Votes)
}

func TestCastRequiresCandidateID(t *testing.T) {
	ledger := NewVoteLedger(selectorWith(newLive(t), newFallback(t)), nil, false, zap.NewNop())
	_, err := ledger.Cast(context.Background(), voterA, "  ")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestCastDoesNotResolveFallbackCandidatesWhileLive(t *testing.T) {
	ledger := NewVoteLedger(selectorWith(newLive(t), newFallback(t)), nil, false, zap.NewNop())
	_, err := ledger.Cast(context.Background(), voterA, "static-1")
	assert.ErrorIs(t, err, ErrCandidateNotFound)
}

func TestCastRejectsVoterKnownToFallbackDataset(t *testing.T) {
	live := newLive(t)
	x := registerCandidate(t, live, "owner-x", 1001)
	ledger := NewVoteLedger(selectorWith(live, newFallback(t)), nil, false, zap.NewNop())

	voter := *voterA
	voter.ID = "user-10" // seeded vote-1
	_, err := ledger.Cast(context.Background(), &voter, x.ID)
	assert.ErrorIs(t, err, ErrAlreadyVoted)
}

func TestCastWhileStoreDown(t *testing.T) {
	fb := newFallback(t)
	ledger := NewVoteLedger(selectorWith(downStore{}, fb), nil, false, zap.NewNop())
	_, err := ledger.Cast(context.Background(), voterA, "static-2")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestCastIntoFallbackWhenEnabled(t *testing.T) {
	fb := newFallback(t)
	sched := &recordingScheduler{}
	ledger := NewVoteLedger(selectorWith(nil, fb), sched, true, zap.NewNop())
	ctx := context.Background()

	_, err := ledger.Cast(ctx, voterA, "static-2")
	require.NoError(t, err)
	assert.Empty(t, sched.scheduled(), "fallback casts are not reconciled")

	c, err := fb.FindCandidate(ctx, "static-2")
	require.NoError(t, err)
	assert.Equal(t, int64(981), c.Votes)

	st, err := ledger.Status(ctx, voterA)
	require.NoError(t, err)
	assert.True(t, st.HasVoted)
	assert.Equal(t, store.SourceFallback, st.Source)

	_, err = ledger.Cast(ctx, voterA, "static-3")
	assert.ErrorIs(t, err, ErrAlreadyVoted)
}

func TestStatusNotVoted(t *testing.T) {
	ledger := NewVoteLedger(selectorWith(newLive(t), newFallback(t)), nil, false, zap.NewNop())
	st, err := ledger.Status(context.Background(), voterB)
	require.NoError(t, err)
	assert.False(t, st.HasVoted)
	assert.Nil(t, st.Vote)
}

func TestStatusSurvivesLiveLookupFailure(t *testing.T) {
	ledger := NewVoteLedger(selectorWith(brokenStore{Store: newLive(t)}, newFallback(t)), nil, false, zap.NewNop())
	voter := *voterA
	voter.ID = "user-11"
	st, err := ledger.Status(context.Background(), &voter)
	require.NoError(t, err)
	assert.True(t, st.HasVoted)
	assert.Equal(t, "static-2", st.Vote.CandidateID)
}

func TestTalliesUseOneSourceOnly(t *testing.T) {
	live := newLive(t)
	fb := newFallback(t)
	ctx := context.Background()
	x := registerCandidate(t, live, "owner-x", 1001)

	ledger := NewVoteLedger(selectorWith(live, fb), nil, false, zap.NewNop())
	_, err := ledger.Cast(ctx, voterA, x.ID)
	require.NoError(t, err)

	tallies, src, err := ledger.Tallies(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.SourceLive, src)
	require.Len(t, tallies, 1)
	assert.Equal(t, int64(1), tallies[0].Count)

	broken := NewVoteLedger(selectorWith(brokenStore{Store: live}, fb), nil, false, zap.NewNop())
	tallies, src, err = broken.Tallies(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.SourceFallback, src)
	require.Len(t, tallies, 2)
	assert.Equal(t, "static-1", tallies[0].CandidateID)
	assert.Equal(t, int64(2), tallies[0].Count)
}

func TestTalliesEmptyLiveIsNotReplaced(t *testing.T) {
	ledger := NewVoteLedger(selectorWith(newLive(t), newFallback(t)), nil, false, zap.NewNop())
	tallies, src, err := ledger.Tallies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.SourceLive, src)
	assert.Empty(t, tallies)
}
