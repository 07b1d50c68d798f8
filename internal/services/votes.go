package services

import (
	"context"
	"strings"
	"time"

	"govportal/internal/auth"
	"govportal/internal/models"
	"govportal/internal/store"

	"go.uber.org/zap"
)

// Scheduler queues a candidate for tally reconciliation.
type Scheduler interface {
	Schedule(candidateID string)
}

type VoteStatus struct {
	HasVoted bool
	Vote     *models.Vote
	Source   store.Source
}

// VoteLedger records at most one vote per voter and answers who voted for
// whom.
type VoteLedger struct {
	stores         *store.Selector
	reconciler     Scheduler
	fallbackWrites bool
	log            *zap.Logger
	now            func() time.Time
}

// NewVoteLedger builds a ledger. With fallbackWrites set, casts made while
// the live store is down are kept in process memory only and are lost on
// restart.
func NewVoteLedger(stores *store.Selector, reconciler Scheduler, fallbackWrites bool, log *zap.Logger) *VoteLedger {
	return &VoteLedger{
		stores:         stores,
		reconciler:     reconciler,
		fallbackWrites: fallbackWrites,
		log:            log,
		now:            time.Now,
	}
}

// Cast records voter's single vote for candidateID.
func (l *VoteLedger) Cast(ctx context.Context, voter *auth.Identity, candidateID string) (*models.Vote, error) {
	candidateID = strings.TrimSpace(candidateID)
	if candidateID == "" {
		return nil, invalid("candidateId is required")
	}

	primary := l.stores.Primary(ctx)
	fallback := l.stores.Fallback()

	if primary != nil {
		if _, err := primary.FindVoteByVoter(ctx, voter.ID); err == nil {
			return nil, ErrAlreadyVoted
		} else if !isNotFound(err) {
			return nil, unavailable(l.log, "find vote", err)
		}
	}
	if _, err := fallback.FindVoteByVoter(ctx, voter.ID); err == nil {
		return nil, ErrAlreadyVoted
	}

	target := primary
	if target == nil {
		if !l.fallbackWrites {
			return nil, ErrStoreUnavailable
		}
		l.log.Warn("recording vote in fallback dataset; it will not survive a restart",
			zap.String("voter_id", voter.ID))
		target = fallback
	}

	// The candidate is resolved against the store the vote will land in,
	// never the fallback snapshot while the live store is up.
	cand, err := target.FindCandidate(ctx, candidateID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrCandidateNotFound
		}
		return nil, unavailable(l.log, "find candidate", err)
	}

	vote := &models.Vote{
		VoterID:       voter.ID,
		VoterEmail:    voter.Email,
		CandidateID:   cand.ID,
		CandidateName: cand.Name,
		VotedAt:       l.now(),
	}
	if err := target.RecordVote(ctx, vote); err != nil {
		switch {
		case isDuplicate(err):
			return nil, ErrAlreadyVoted
		case isNotFound(err):
			return nil, ErrCandidateNotFound
		}
		return nil, unavailable(l.log, "record vote", err)
	}

	if target == primary && l.reconciler != nil {
		l.reconciler.Schedule(cand.ID)
	}
	l.log.Info("vote recorded", zap.String("voter_id", voter.ID), zap.String("candidate_id", cand.ID))
	return vote, nil
}

// Status reports whether voter has voted, preferring the live record.
func (l *VoteLedger) Status(ctx context.Context, voter *auth.Identity) (*VoteStatus, error) {
	if primary := l.stores.Primary(ctx); primary != nil {
		v, err := primary.FindVoteByVoter(ctx, voter.ID)
		switch {
		case err == nil:
			return &VoteStatus{HasVoted: true, Vote: v, Source: store.SourceLive}, nil
		case !isNotFound(err):
			l.log.Warn("live vote lookup failed, checking fallback", zap.Error(err))
		}
	}
	v, err := l.stores.Fallback().FindVoteByVoter(ctx, voter.ID)
	if err == nil {
		return &VoteStatus{HasVoted: true, Vote: v, Source: store.SourceFallback}, nil
	}
	return &VoteStatus{HasVoted: false}, nil
}

// Tallies groups votes per candidate from exactly one source: the live
// store, or the fallback dataset when the live store cannot answer. An empty
// live tally is a real answer and is returned as is.
func (l *VoteLedger) Tallies(ctx context.Context) ([]models.Tally, store.Source, error) {
	if primary := l.stores.Primary(ctx); primary != nil {
		tallies, err := primary.TallyVotes(ctx)
		if err == nil {
			return tallies, store.SourceLive, nil
		}
		l.log.Warn("live tally failed, using fallback dataset", zap.Error(err))
	}
	tallies, err := l.stores.Fallback().TallyVotes(ctx)
	if err != nil {
		return nil, "", unavailable(l.log, "tally votes", err)
	}
	return tallies, store.SourceFallback, nil
}
