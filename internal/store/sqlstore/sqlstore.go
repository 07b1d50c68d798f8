// Package sqlstore is the relational store, backed by gorm. Postgres in
// production, SQLite in tests.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"govportal/internal/models"
	"govportal/internal/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db      *gorm.DB
	timeout time.Duration
}

var _ store.Store = (*Store)(nil)

// New wraps a migrated gorm handle. Each operation is bounded by timeout.
func New(db *gorm.DB, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Store{db: db, timeout: timeout}
}

// DB exposes the handle for migrations and the CLI.
func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) with(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return s.db.WithContext(ctx), cancel
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err):
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	}
	return err
}

// isUniqueViolation catches drivers that do not implement error translation.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	db, cancel := s.with(ctx)
	defer cancel()
	return translate(db.Create(u).Error)
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	db, cancel := s.with(ctx)
	defer cancel()
	var u models.User
	if err := db.Where("email = ?", strings.ToLower(email)).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	db, cancel := s.with(ctx)
	defer cancel()
	var u models.User
	if err := db.Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	db, cancel := s.with(ctx)
	defer cancel()
	res := db.Model(&models.User{}).Where("id = ?", u.ID).Updates(map[string]interface{}{
		"name":          u.Name,
		"google_id":     u.GoogleID,
		"image":         u.Image,
		"password_hash": u.PasswordHash,
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateCandidate(ctx context.Context, c *models.Candidate) error {
	db, cancel := s.with(ctx)
	defer cancel()
	return translate(db.Create(c).Error)
}

func (s *Store) FindCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	db, cancel := s.with(ctx)
	defer cancel()
	var c models.Candidate
	if err := db.Where("id = ?", id).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Store) FindCandidateConflict(ctx context.Context, ownerID string, votingID int) (*models.Candidate, error) {
	db, cancel := s.with(ctx)
	defer cancel()
	var c models.Candidate
	if err := db.Where("owner_id = ? OR voting_id = ?", ownerID, votingID).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Store) ListCandidates(ctx context.Context, byVotesDesc bool) ([]models.Candidate, error) {
	db, cancel := s.with(ctx)
	defer cancel()
	order := "created_at DESC"
	if byVotesDesc {
		order = "votes DESC, created_at ASC"
	}
	var out []models.Candidate
	if err := db.Order(order).Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *Store) UpdateCandidate(ctx context.Context, id string, patch models.CandidatePatch) error {
	db, cancel := s.with(ctx)
	defer cancel()
	res := db.Model(&models.Candidate{}).Where("id = ?", id).Updates(patch.Columns())
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) FindVoteByVoter(ctx context.Context, voterID string) (*models.Vote, error) {
	db, cancel := s.with(ctx)
	defer cancel()
	var v models.Vote
	if err := db.Where("voter_id = ?", voterID).First(&v).Error; err != nil {
		return nil, translate(err)
	}
	return &v, nil
}

// RecordVote inserts the vote and bumps the tally in one transaction. The
// unique index on voter_id closes the check-then-act race between
// concurrent casts by the same voter.
func (s *Store) RecordVote(ctx context.Context, v *models.Vote) error {
	db, cancel := s.with(ctx)
	defer cancel()
	if v.VotedAt.IsZero() {
		v.VotedAt = time.Now()
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(v).Error; err != nil {
			return err
		}
		res := tx.Model(&models.Candidate{}).
			Where("id = ?", v.CandidateID).
			UpdateColumn("votes", gorm.Expr("votes + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return nil
	})
	return translate(err)
}

// firstSnapshot selects the candidate name recorded by the earliest vote.
const firstSnapshot = `(SELECT f.candidate_name FROM votes f
	WHERE f.candidate_id = votes.candidate_id
	ORDER BY f.voted_at, f.id LIMIT 1)`

func (s *Store) TallyVotes(ctx context.Context) ([]models.Tally, error) {
	db, cancel := s.with(ctx)
	defer cancel()
	var out []models.Tally
	err := db.Model(&models.Vote{}).
		Select("candidate_id, " + firstSnapshot + " AS candidate_name, COUNT(*) AS count").
		Group("candidate_id").
		Order("count DESC").
		Scan(&out).Error
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *Store) RecentVotes(ctx context.Context, limit int) ([]models.Vote, error) {
	db, cancel := s.with(ctx)
	defer cancel()
	var out []models.Vote
	if err := db.Order("voted_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func lockCandidate(tx *gorm.DB, id string) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id", "votes").Where("id = ?", id)
}

// ReconcileTally holds the candidate row lock while counting, so a cast
// committing in between waits and then increments the corrected value.
func (s *Store) ReconcileTally(ctx context.Context, candidateID string) (before, after int64, err error) {
	db, cancel := s.with(ctx)
	defer cancel()
	err = db.Transaction(func(tx *gorm.DB) error {
		var c models.Candidate
		if err := lockCandidate(tx, candidateID).First(&c).Error; err != nil {
			return err
		}
		before = c.Votes
		if err := tx.Model(&models.Vote{}).Where("candidate_id = ?", candidateID).Count(&after).Error; err != nil {
			return err
		}
		if after == before {
			return nil
		}
		return tx.Model(&models.Candidate{}).Where("id = ?", candidateID).UpdateColumn("votes", after).Error
	})
	return before, after, translate(err)
}

func (s *Store) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	db, cancel := s.with(ctx)
	defer cancel()
	return translate(db.Create(c).Error)
}

func (s *Store) FindComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	db, cancel := s.with(ctx)
	defer cancel()
	var c models.Complaint
	if err := db.Where("id = ?", id).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Store) ListComplaints(ctx context.Context, requesterID string) ([]models.Complaint, error) {
	db, cancel := s.with(ctx)
	defer cancel()
	q := db.Order("created_at DESC")
	if requesterID != "" {
		q = q.Where("requester_id = ?", requesterID)
	}
	var out []models.Complaint
	if err := q.Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *Store) ReviewComplaint(ctx context.Context, id string, r models.ComplaintReview) error {
	db, cancel := s.with(ctx)
	defer cancel()
	res := db.Model(&models.Complaint{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":      r.Status,
		"admin_notes": r.AdminNotes,
		"resolved_at": r.ResolvedAt,
		"resolved_by": r.ResolvedBy,
		"updated_at":  r.UpdatedAt,
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteComplaint(ctx context.Context, id string) error {
	db, cancel := s.with(ctx)
	defer cancel()
	res := db.Where("id = ?", id).Delete(&models.Complaint{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateDocument(ctx context.Context, d *models.Document) error {
	db, cancel := s.with(ctx)
	defer cancel()
	return translate(db.Create(d).Error)
}

func (s *Store) FindDocument(ctx context.Context, id string) (*models.Document, error) {
	db, cancel := s.with(ctx)
	defer cancel()
	var d models.Document
	if err := db.Where("id = ?", id).First(&d).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (s *Store) ListDocuments(ctx context.Context, ownerID string) ([]models.Document, error) {
	db, cancel := s.with(ctx)
	defer cancel()
	q := db.Order("created_at DESC")
	if ownerID != "" {
		q = q.Where("owner_id = ?", ownerID)
	}
	var out []models.Document
	if err := q.Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *Store) count(ctx context.Context, model interface{}, where ...interface{}) (int64, error) {
	db, cancel := s.with(ctx)
	defer cancel()
	q := db.Model(model)
	if len(where) > 0 {
		q = q.Where(where[0], where[1:]...)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, translate(err)
	}
	return n, nil
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	return s.count(ctx, &models.User{})
}

func (s *Store) CountCandidates(ctx context.Context) (int64, error) {
	return s.count(ctx, &models.Candidate{})
}

func (s *Store) CountVotes(ctx context.Context) (int64, error) {
	return s.count(ctx, &models.Vote{})
}

func (s *Store) CountDocuments(ctx context.Context) (int64, error) {
	return s.count(ctx, &models.Document{})
}

func (s *Store) CountComplaints(ctx context.Context, status models.ComplaintStatus) (int64, error) {
	if status == "" {
		return s.count(ctx, &models.Complaint{})
	}
	return s.count(ctx, &models.Complaint{}, "status = ?", status)
}
