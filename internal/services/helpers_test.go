package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"govportal/internal/auth"
	"govportal/internal/db"
	"govportal/internal/models"
	"govportal/internal/store"
	"govportal/internal/store/memstore"
	"govportal/internal/store/sqlstore"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
)

var errBoom = errors.New("boom: connection reset")

func newLive(t *testing.T) *sqlstore.Store {
	t.Helper()
	ctx := context.Background()
	gdb, err := db.Open(ctx, sqlite.Open(filepath.Join(t.TempDir(), "services.db")))
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Migrate(gdb))
	s := sqlstore.New(gdb, 5*time.Second)
	t.Cleanup(func() { s.Close(ctx) })
	return s
}

func newFallback(t *testing.T) *memstore.Store {
	t.Helper()
	fb, err := memstore.New()
	require.NoError(t, err)
	return fb
}

// selectorWith builds a selector that re-pings on every selection.
func selectorWith(primary, fallback store.Store) *store.Selector {
	return store.NewSelector(primary, fallback, zap.NewNop(), store.WithHealthTTL(0))
}

// downStore fails its health ping, so the selector treats it as absent.
type downStore struct{ store.Store }

func (downStore) Ping(context.Context) error { return errBoom }

// brokenStore answers pings but fails reads.
type brokenStore struct{ store.Store }

func (brokenStore) ListCandidates(context.Context, bool) ([]models.Candidate, error) {
	return nil, errBoom
}
func (brokenStore) TallyVotes(context.Context) ([]models.Tally, error) { return nil, errBoom }
func (brokenStore) ListComplaints(context.Context, string) ([]models.Complaint, error) {
	return nil, errBoom
}
func (brokenStore) ListDocuments(context.Context, string) ([]models.Document, error) {
	return nil, errBoom
}
func (brokenStore) CountUsers(context.Context) (int64, error) { return 0, errBoom }
func (brokenStore) FindVoteByVoter(context.Context, string) (*models.Vote, error) {
	return nil, errBoom
}

type recordingScheduler struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingScheduler) Schedule(id string) {
	r.mu.Lock()
	r.ids = append(r.ids, id)
	r.mu.Unlock()
}

func (r *recordingScheduler) scheduled() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

var (
	voterA    = &auth.Identity{ID: "voter-a", Email: "a@example.com", Name: "Voter A", Role: models.RoleUser}
	voterB    = &auth.Identity{ID: "voter-b", Email: "b@example.com", Name: "Voter B", Role: models.RoleUser}
	candOwner = &auth.Identity{ID: "cand-1", Email: "c1@example.com", Name: "Cand One", Role: models.RoleCandidate}
	candOther = &auth.Identity{ID: "cand-2", Email: "c2@example.com", Name: "Cand Two", Role: models.RoleCandidate}
	adminID   = &auth.Identity{ID: "admin-1", Email: "admin@example.com", Name: "Admin", Role: models.RoleAdmin}
)

func registerCandidate(t *testing.T, s store.Store, owner string, votingID int) *models.Candidate {
	t.Helper()
	c := &models.Candidate{Name: "Candidate " + owner, Gender: "Female", Age: 44, Promises: "Parks", Party: "Civic", VotingID: votingID, OwnerID: owner}
	require.NoError(t, s.CreateCandidate(context.Background(), c))
	return c
}
