// Package memstore keeps the fallback dataset in process memory. Writes
// are lost on restart.
package memstore

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"govportal/internal/models"
	"govportal/internal/store"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

//go:embed fallback.yaml
var fallbackYAML []byte

type dataset struct {
	Users      []models.User      `yaml:"users"`
	Candidates []models.Candidate `yaml:"candidates"`
	Votes      []models.Vote      `yaml:"votes"`
	Complaints []models.Complaint `yaml:"complaints"`
	Documents  []models.Document  `yaml:"documents"`
}

type Store struct {
	mu         sync.RWMutex
	users      []models.User
	candidates []models.Candidate
	votes      []models.Vote
	complaints []models.Complaint
	documents  []models.Document
	now        func() time.Time
}

var _ store.Store = (*Store)(nil)

// New returns a store seeded with the embedded fallback dataset.
func New() (*Store, error) {
	return Load(fallbackYAML)
}

// Load seeds a store from a YAML document shaped like fallback.yaml.
func Load(data []byte) (*Store, error) {
	var ds dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("decode fallback dataset: %w", err)
	}
	return &Store{
		users:      ds.Users,
		candidates: ds.Candidates,
		votes:      ds.Votes,
		complaints: ds.Complaints,
		documents:  ds.Documents,
		now:        time.Now,
	}, nil
}

// Empty returns a store with no records.
func Empty() *Store {
	return &Store{now: time.Now}
}

func (s *Store) Ping(ctx context.Context) error  { return nil }
func (s *Store) Close(ctx context.Context) error { return nil }

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return store.ErrDuplicate
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users = append(s.users, *u)
	return nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].ID == u.ID {
			u.UpdatedAt = s.now()
			s.users[i] = *u
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) CreateCandidate(ctx context.Context, c *models.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.candidates {
		if existing.OwnerID == c.OwnerID || existing.VotingID == c.VotingID {
			return store.ErrDuplicate
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	s.candidates = append(s.candidates, *c)
	return nil
}

func (s *Store) FindCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.candidateIndex(id); i >= 0 {
		c := s.candidates[i]
		return &c, nil
	}
	return nil, store.ErrNotFound
}

func (s *Store) FindCandidateConflict(ctx context.Context, ownerID string, votingID int) (*models.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.candidates {
		if c.OwnerID == ownerID || c.VotingID == votingID {
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListCandidates(ctx context.Context, byVotesDesc bool) ([]models.Candidate, error) {
	s.mu.RLock()
	out := append([]models.Candidate(nil), s.candidates...)
	s.mu.RUnlock()
	if byVotesDesc {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Votes > out[j].Votes })
	} else {
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	return out, nil
}

func (s *Store) UpdateCandidate(ctx context.Context, id string, patch models.CandidatePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.candidateIndex(id)
	if i < 0 {
		return store.ErrNotFound
	}
	patch.Apply(&s.candidates[i])
	s.candidates[i].UpdatedAt = s.now()
	return nil
}

// candidateIndex must be called with mu held.
func (s *Store) candidateIndex(id string) int {
	for i := range s.candidates {
		if s.candidates[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) FindVoteByVoter(ctx context.Context, voterID string) (*models.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.votes {
		if v.VoterID == voterID {
			return &v, nil
		}
	}
	return nil, store.ErrNotFound
}

// RecordVote holds the lock across the duplicate check, insert and
// increment, so the pair is atomic within this process.
func (s *Store) RecordVote(ctx context.Context, v *models.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.votes {
		if existing.VoterID == v.VoterID {
			return store.ErrDuplicate
		}
	}
	i := s.candidateIndex(v.CandidateID)
	if i < 0 {
		return store.ErrNotFound
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.VotedAt.IsZero() {
		v.VotedAt = s.now()
	}
	s.votes = append(s.votes, *v)
	s.candidates[i].Votes++
	return nil
}

func (s *Store) TallyVotes(ctx context.Context) ([]models.Tally, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tally(s.votes), nil
}

func tally(votes []models.Vote) []models.Tally {
	byID := map[string]*models.Tally{}
	var order []string
	for _, v := range votes {
		t, ok := byID[v.CandidateID]
		if !ok {
			t = &models.Tally{CandidateID: v.CandidateID, CandidateName: v.CandidateName}
			byID[v.CandidateID] = t
			order = append(order, v.CandidateID)
		}
		t.Count++
	}
	out := make([]models.Tally, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

func (s *Store) RecentVotes(ctx context.Context, limit int) ([]models.Vote, error) {
	s.mu.RLock()
	out := append([]models.Vote(nil), s.votes...)
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].VotedAt.After(out[j].VotedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ReconcileTally is a no-op for the snapshot: seeded tallies represent
// votes that are not part of the dataset.
func (s *Store) ReconcileTally(ctx context.Context, candidateID string) (int64, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.candidateIndex(candidateID)
	if i < 0 {
		return 0, 0, store.ErrNotFound
	}
	v := s.candidates[i].Votes
	return v, v, nil
}

func (s *Store) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	s.complaints = append(s.complaints, *c)
	return nil
}

func (s *Store) FindComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.complaints {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListComplaints(ctx context.Context, requesterID string) ([]models.Complaint, error) {
	s.mu.RLock()
	var out []models.Complaint
	for _, c := range s.complaints {
		if requesterID == "" || c.RequesterID == requesterID {
			out = append(out, c)
		}
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ReviewComplaint(ctx context.Context, id string, r models.ComplaintReview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.complaints {
		if s.complaints[i].ID == id {
			c := &s.complaints[i]
			c.Status = r.Status
			c.AdminNotes = r.AdminNotes
			c.ResolvedAt = r.ResolvedAt
			c.ResolvedBy = r.ResolvedBy
			c.UpdatedAt = r.UpdatedAt
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) DeleteComplaint(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.complaints {
		if s.complaints[i].ID == id {
			s.complaints = append(s.complaints[:i], s.complaints[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) CreateDocument(ctx context.Context, d *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := s.now()
	d.CreatedAt, d.UpdatedAt = now, now
	s.documents = append(s.documents, *d)
	return nil
}

func (s *Store) FindDocument(ctx context.Context, id string) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.documents {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListDocuments(ctx context.Context, ownerID string) ([]models.Document, error) {
	s.mu.RLock()
	var out []models.Document
	for _, d := range s.documents {
		if ownerID == "" || d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}

func (s *Store) CountCandidates(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.candidates)), nil
}

func (s *Store) CountVotes(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.votes)), nil
}

func (s *Store) CountDocuments(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.documents)), nil
}

func (s *Store) CountComplaints(ctx context.Context, status models.ComplaintStatus) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if status == "" {
		return int64(len(s.complaints)), nil
	}
	var n int64
	for _, c := range s.complaints {
		if c.Status == status {
			n++
		}
	}
	return n, nil
}
