package services

import (
	"context"

	"govportal/internal/models"
	"govportal/internal/store"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const recentLimit = 5

type AdminStats struct {
	Stats            models.Stats       `json:"stats"`
	RecentComplaints []models.Complaint `json:"recentComplaints"`
	RecentVotes      []models.Vote      `json:"recentVotes"`
	Candidates       []models.Candidate `json:"candidates"`
	Source           store.Source       `json:"source"`
}

type StatsService struct {
	stores *store.Selector
	log    *zap.Logger
}

func NewStatsService(stores *store.Selector, log *zap.Logger) *StatsService {
	return &StatsService{stores: stores, log: log}
}

// Dashboard gathers the admin overview from one source. A live failure
// switches the whole overview to the fallback dataset.
func (s *StatsService) Dashboard(ctx context.Context) (*AdminStats, error) {
	st, src := s.stores.Select(ctx)
	out, err := collect(ctx, st)
	if err != nil && src == store.SourceLive {
		s.log.Warn("live admin stats failed, using fallback dataset", zap.Error(err))
		out, err = collect(ctx, s.stores.Fallback())
		src = store.SourceFallback
	}
	if err != nil {
		return nil, unavailable(s.log, "admin stats", err)
	}
	out.Source = src
	return out, nil
}

func collect(ctx context.Context, st store.Store) (*AdminStats, error) {
	out := &AdminStats{}
	g, gctx := errgroup.WithContext(ctx)

	count := func(dst *int64, fn func(context.Context) (int64, error)) {
		g.Go(func() error {
			n, err := fn(gctx)
			*dst = n
			return err
		})
	}
	count(&out.Stats.TotalUsers, st.CountUsers)
	count(&out.Stats.TotalCandidates, st.CountCandidates)
	count(&out.Stats.TotalVotes, st.CountVotes)
	count(&out.Stats.TotalDocuments, st.CountDocuments)
	count(&out.Stats.TotalComplaints, func(ctx context.Context) (int64, error) {
		return st.CountComplaints(ctx, "")
	})
	count(&out.Stats.PendingComplaints, func(ctx context.Context) (int64, error) {
		return st.CountComplaints(ctx, models.StatusPending)
	})
	count(&out.Stats.ResolvedComplaints, func(ctx context.Context) (int64, error) {
		return st.CountComplaints(ctx, models.StatusResolved)
	})

	g.Go(func() error {
		list, err := st.ListComplaints(gctx, "")
		if len(list) > recentLimit {
			list = list[:recentLimit]
		}
		out.RecentComplaints = list
		return err
	})
	g.Go(func() error {
		votes, err := st.RecentVotes(gctx, recentLimit)
		out.RecentVotes = votes
		return err
	})
	g.Go(func() error {
		cands, err := st.ListCandidates(gctx, true)
		out.Candidates = cands
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
