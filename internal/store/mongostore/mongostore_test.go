package mongostore

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"govportal/internal/models"
	"govportal/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestStore connects to MONGODB_TEST_URI using a throwaway database.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}
	ctx := context.Background()
	s, err := Connect(ctx, Options{
		URI:            uri,
		Database:       fmt.Sprintf("govportal_test_%d", time.Now().UnixNano()),
		ConnectTimeout: 5 * time.Second,
		SocketTimeout:  10 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		s.db.Drop(ctx)
		s.Close(ctx)
	})
	return s
}

func TestMongoRecordVoteOncePerVoter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := &models.Candidate{Name: "Ada", Party: "Civic", VotingID: 1001, OwnerID: "owner-1"}
	require.NoError(t, s.CreateCandidate(ctx, c))

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.RecordVote(ctx, &models.Vote{VoterID: "voter-1", CandidateID: c.ID, CandidateName: c.Name})
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
		}
	}
	assert.Equal(t, 1, ok)

	before, after, err := s.ReconcileTally(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), after)
	assert.Equal(t, before, after)
}

func TestMongoCandidateUniqueVotingID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateCandidate(ctx, &models.Candidate{Name: "A", VotingID: 1001, OwnerID: "o1"}))
	err := s.CreateCandidate(ctx, &models.Candidate{Name: "B", VotingID: 1001, OwnerID: "o2"})
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestMongoTallies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := &models.Candidate{Name: "A", VotingID: 1, OwnerID: "o1"}
	b := &models.Candidate{Name: "B", VotingID: 2, OwnerID: "o2"}
	require.NoError(t, s.CreateCandidate(ctx, a))
	require.NoError(t, s.CreateCandidate(ctx, b))
	require.NoError(t, s.RecordVote(ctx, &models.Vote{VoterID: "v1", CandidateID: a.ID, CandidateName: a.Name}))
	require.NoError(t, s.RecordVote(ctx, &models.Vote{VoterID: "v2", CandidateID: a.ID, CandidateName: a.Name}))
	require.NoError(t, s.RecordVote(ctx, &models.Vote{VoterID: "v3", CandidateID: b.ID, CandidateName: b.Name}))

	tallies, err := s.TallyVotes(ctx)
	require.NoError(t, err)
	require.Len(t, tallies, 2)
	assert.Equal(t, models.Tally{CandidateID: a.ID, CandidateName: "A", Count: 2}, tallies[0])
}

func TestTallyGuardMatchesUnchangedTally(t *testing.T) {
	guard := tallyGuard("cand-1", 5)
	assert.Equal(t, "cand-1", guard.Map()["_id"])
	assert.Equal(t, int64(5), guard.Map()["votes"])
}

func TestMongoTallyNamesCandidateByFirstCast(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := &models.Candidate{Name: "Zed Original", VotingID: 1, OwnerID: "o1"}
	require.NoError(t, s.CreateCandidate(ctx, c))
	first := time.Now().Add(-time.Hour)
	require.NoError(t, s.RecordVote(ctx, &models.Vote{VoterID: "v1", CandidateID: c.ID, CandidateName: "Zed Original", VotedAt: first}))
	require.NoError(t, s.RecordVote(ctx, &models.Vote{VoterID: "v2", CandidateID: c.ID, CandidateName: "Ada Renamed", VotedAt: first.Add(time.Minute)}))

	tallies, err := s.TallyVotes(ctx)
	require.NoError(t, err)
	require.Len(t, tallies, 1)
	assert.Equal(t, "Zed Original", tallies[0].CandidateName)
}

func TestMongoReconcileDoesNotLoseConcurrentVotes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := &models.Candidate{Name: "Ada", VotingID: 1, OwnerID: "o1"}
	require.NoError(t, s.CreateCandidate(ctx, c))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.RecordVote(ctx, &models.Vote{VoterID: fmt.Sprintf("voter-%d", i), CandidateID: c.ID, CandidateName: c.Name}))
		}(i)
		go func() {
			defer wg.Done()
			_, _, err := s.ReconcileTally(ctx, c.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Each cast schedules one more check; run it here.
	_, after, err := s.ReconcileTally(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), after)
	got, err := s.FindCandidate(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), got.Votes)
}
