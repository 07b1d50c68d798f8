package services

import (
	"context"
	"testing"

	"govportal/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDashboardLive(t *testing.T) {
	live := newLive(t)
	stores := selectorWith(live, newFallback(t))
	ctx := context.Background()

	x := registerCandidate(t, live, "owner-x", 1)
	ledger := NewVoteLedger(stores, nil, false, zap.NewNop())
	_, err := ledger.Cast(ctx, voterA, x.ID)
	require.NoError(t, err)
	complaints := NewComplaintRegister(stores, nil, zap.NewNop())
	_, err = complaints.File(ctx, voterA, potholes())
	require.NoError(t, err)

	out, err := NewStatsService(stores, zap.NewNop()).Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.SourceLive, out.Source)
	assert.Equal(t, int64(1), out.Stats.TotalCandidates)
	assert.Equal(t, int64(1), out.Stats.TotalVotes)
	assert.Equal(t, int64(1), out.Stats.TotalComplaints)
	assert.Equal(t, int64(1), out.Stats.PendingComplaints)
	assert.Equal(t, int64(0), out.Stats.ResolvedComplaints)
	assert.Len(t, out.RecentVotes, 1)
	assert.Len(t, out.Candidates, 1)
}

func TestDashboardFallsBackAsAWhole(t *testing.T) {
	stores := selectorWith(brokenStore{Store: newLive(t)}, newFallback(t))
	out, err := NewStatsService(stores, zap.NewNop()).Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.SourceFallback, out.Source)
	assert.Equal(t, int64(3), out.Stats.TotalUsers)
	assert.Equal(t, int64(4), out.Stats.TotalCandidates)
	assert.Equal(t, int64(3), out.Stats.TotalVotes)
	assert.Equal(t, int64(3), out.Stats.TotalComplaints)
	assert.Equal(t, int64(1), out.Stats.PendingComplaints)
	assert.Equal(t, int64(1), out.Stats.ResolvedComplaints)
	assert.Equal(t, int64(2), out.Stats.TotalDocuments)
	assert.Len(t, out.RecentComplaints, 3)
}
