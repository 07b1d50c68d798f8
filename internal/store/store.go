// Package store defines the persistence contract shared by the live
// database adapters and the in-process fallback dataset.
package store

import (
	"context"
	"errors"

	"govportal/internal/models"
)

var (
	ErrNotFound    = errors.New("store: record not found")
	ErrDuplicate   = errors.New("store: duplicate key")
	ErrUnavailable = errors.New("store: unavailable")
)

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
}

type CandidateStore interface {
	CreateCandidate(ctx context.Context, c *models.Candidate) error
	FindCandidate(ctx context.Context, id string) (*models.Candidate, error)
	// FindCandidateConflict returns a candidate owned by ownerID or holding
	// votingID, whichever exists.
	FindCandidateConflict(ctx context.Context, ownerID string, votingID int) (*models.Candidate, error)
	ListCandidates(ctx context.Context, byVotesDesc bool) ([]models.Candidate, error)
	UpdateCandidate(ctx context.Context, id string, patch models.CandidatePatch) error
}

type VoteStore interface {
	FindVoteByVoter(ctx context.Context, voterID string) (*models.Vote, error)
	// RecordVote inserts v and increments the candidate tally by one as a
	// single unit. A second vote from the same voter yields ErrDuplicate.
	RecordVote(ctx context.Context, v *models.Vote) error
	TallyVotes(ctx context.Context) ([]models.Tally, error)
	RecentVotes(ctx context.Context, limit int) ([]models.Vote, error)
	// ReconcileTally rewrites the candidate tally to the number of vote
	// records pointing at it.
	ReconcileTally(ctx context.Context, candidateID string) (before, after int64, err error)
}

type ComplaintStore interface {
	CreateComplaint(ctx context.Context, c *models.Complaint) error
	FindComplaint(ctx context.Context, id string) (*models.Complaint, error)
	// ListComplaints returns newest first; an empty requesterID lists all.
	ListComplaints(ctx context.Context, requesterID string) ([]models.Complaint, error)
	ReviewComplaint(ctx context.Context, id string, r models.ComplaintReview) error
	DeleteComplaint(ctx context.Context, id string) error
}

type DocumentStore interface {
	CreateDocument(ctx context.Context, d *models.Document) error
	FindDocument(ctx context.Context, id string) (*models.Document, error)
	// ListDocuments returns newest first; an empty ownerID lists all.
	ListDocuments(ctx context.Context, ownerID string) ([]models.Document, error)
}

type StatsStore interface {
	CountUsers(ctx context.Context) (int64, error)
	CountCandidates(ctx context.Context) (int64, error)
	CountVotes(ctx context.Context) (int64, error)
	CountDocuments(ctx context.Context) (int64, error)
	// CountComplaints counts complaints in status, or all when status is empty.
	CountComplaints(ctx context.Context, status models.ComplaintStatus) (int64, error)
}

type Store interface {
	UserStore
	CandidateStore
	VoteStore
	ComplaintStore
	DocumentStore
	StatsStore

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
