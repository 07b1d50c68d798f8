// Package mongostore is the document store, one collection per entity.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"govportal/internal/models"
	"govportal/internal/store"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"
)

const (
	colUsers      = "users"
	colCandidates = "candidates"
	colVotes      = "votes"
	colComplaints = "complaints"
	colDocuments  = "documents"
)

// codeIllegalOperation is returned when transactions are attempted on a
// standalone server.
const codeIllegalOperation = 20

type Options struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	SocketTimeout  time.Duration
}

type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
	log     *zap.Logger
}

var _ store.Store = (*Store)(nil)

// Connect dials the cluster, pings it and ensures indexes.
func Connect(ctx context.Context, o Options, log *zap.Logger) (*Store, error) {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 10 * time.Second
	}
	if o.SocketTimeout <= 0 {
		o.SocketTimeout = 45 * time.Second
	}
	opts := options.Client().
		ApplyURI(o.URI).
		SetConnectTimeout(o.ConnectTimeout).
		SetServerSelectionTimeout(o.ConnectTimeout).
		SetSocketTimeout(o.SocketTimeout).
		SetMaxPoolSize(10).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(30 * time.Second).
		SetRetryWrites(true).
		SetWriteConcern(writeconcern.Majority())

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	pctx, cancel := context.WithTimeout(ctx, o.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	s := &Store{client: client, db: client.Database(o.Database), timeout: o.SocketTimeout, log: log}
	if err := s.EnsureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	return s, nil
}

// EnsureIndexes creates the unique keys the ledger and registry rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	unique := func(field string) mongo.IndexModel {
		return mongo.IndexModel{Keys: bson.D{{Key: field, Value: 1}}, Options: options.Index().SetUnique(true)}
	}
	plain := func(field string) mongo.IndexModel {
		return mongo.IndexModel{Keys: bson.D{{Key: field, Value: 1}}}
	}
	indexes := map[string][]mongo.IndexModel{
		colUsers:      {unique("email")},
		colCandidates: {unique("ownerId"), unique("votingId")},
		colVotes:      {unique("userId"), plain("candidateId")},
		colComplaints: {plain("userId"), plain("status")},
		colDocuments:  {plain("userId")},
	}
	for name, idx := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) op(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	}
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) findOne(ctx context.Context, col string, filter bson.D, out interface{}) error {
	ctx, cancel := s.op(ctx)
	defer cancel()
	return translate(s.db.Collection(col).FindOne(ctx, filter).Decode(out))
}

func (s *Store) findAll(ctx context.Context, col string, filter bson.D, opts *options.FindOptions, out interface{}) error {
	ctx, cancel := s.op(ctx)
	defer cancel()
	cur, err := s.db.Collection(col).Find(ctx, filter, opts)
	if err != nil {
		return translate(err)
	}
	return translate(cur.All(ctx, out))
}

func (s *Store) insert(ctx context.Context, col string, doc interface{}) error {
	ctx, cancel := s.op(ctx)
	defer cancel()
	_, err := s.db.Collection(col).InsertOne(ctx, doc)
	return translate(err)
}

func (s *Store) update(ctx context.Context, col, id string, set bson.M) error {
	ctx, cancel := s.op(ctx)
	defer cancel()
	res, err := s.db.Collection(col).UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	return s.insert(ctx, colUsers, u)
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.findOne(ctx, colUsers, bson.D{{Key: "email", Value: strings.ToLower(email)}}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.findOne(ctx, colUsers, bson.D{{Key: "_id", Value: id}}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	return s.update(ctx, colUsers, u.ID, bson.M{
		"name":           u.Name,
		"googleId":       u.GoogleID,
		"image":          u.Image,
		"hashedPassword": u.PasswordHash,
		"updatedAt":      time.Now(),
	})
}

func (s *Store) CreateCandidate(ctx context.Context, c *models.Candidate) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	return s.insert(ctx, colCandidates, c)
}

func (s *Store) FindCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	var c models.Candidate
	if err := s.findOne(ctx, colCandidates, bson.D{{Key: "_id", Value: id}}, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) FindCandidateConflict(ctx context.Context, ownerID string, votingID int) (*models.Candidate, error) {
	var c models.Candidate
	filter := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "ownerId", Value: ownerID}},
		bson.D{{Key: "votingId", Value: votingID}},
	}}}
	if err := s.findOne(ctx, colCandidates, filter, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListCandidates(ctx context.Context, byVotesDesc bool) ([]models.Candidate, error) {
	sort := bson.D{{Key: "createdAt", Value: -1}}
	if byVotesDesc {
		sort = bson.D{{Key: "votes", Value: -1}, {Key: "createdAt", Value: 1}}
	}
	var out []models.Candidate
	if err := s.findAll(ctx, colCandidates, bson.D{}, options.Find().SetSort(sort), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) UpdateCandidate(ctx context.Context, id string, patch models.CandidatePatch) error {
	set := bson.M{"updatedAt": time.Now()}
	for k, v := range patch.Columns() {
		set[k] = v
	}
	return s.update(ctx, colCandidates, id, set)
}

func (s *Store) FindVoteByVoter(ctx context.Context, voterID string) (*models.Vote, error) {
	var v models.Vote
	if err := s.findOne(ctx, colVotes, bson.D{{Key: "userId", Value: voterID}}, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// RecordVote runs insert+increment in a transaction. Standalone servers
// cannot run transactions, so there the two writes are issued in order and
// the reconciler repairs any drift.
func (s *Store) RecordVote(ctx context.Context, v *models.Vote) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.VotedAt.IsZero() {
		v.VotedAt = time.Now()
	}
	ctx, cancel := s.op(ctx)
	defer cancel()

	write := func(ctx context.Context) error {
		if _, err := s.db.Collection(colVotes).InsertOne(ctx, v); err != nil {
			return err
		}
		res, err := s.db.Collection(colCandidates).UpdateByID(ctx, v.CandidateID, bson.M{"$inc": bson.M{"votes": 1}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return store.ErrNotFound
		}
		return nil
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return translate(err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, write(sc)
	})
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == codeIllegalOperation {
		s.log.Warn("transactions unsupported, recording vote without one", zap.String("candidate_id", v.CandidateID))
		err = write(ctx)
	}
	return translate(err)
}

func (s *Store) TallyVotes(ctx context.Context) ([]models.Tally, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "votedAt", Value: 1}, {Key: "_id", Value: 1}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$candidateId"},
			{Key: "candidateName", Value: bson.D{{Key: "$first", Value: "$candidateName"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
	}
	cur, err := s.db.Collection(colVotes).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, translate(err)
	}
	var out []models.Tally
	if err := cur.All(ctx, &out); err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *Store) RecentVotes(ctx context.Context, limit int) ([]models.Vote, error) {
	opts := options.Find().SetSort(bson.D{{Key: "votedAt", Value: -1}}).SetLimit(int64(limit))
	var out []models.Vote
	if err := s.findAll(ctx, colVotes, bson.D{}, opts, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// tallyGuard matches the candidate only while its tally is unchanged.
func tallyGuard(candidateID string, votes int64) bson.D {
	return bson.D{{Key: "_id", Value: candidateID}, {Key: "votes", Value: votes}}
}

// ReconcileTally runs read, count and write in one transaction so a
// concurrent increment conflicts instead of being overwritten. Without
// transactions the write only applies if votes still holds the value read.
func (s *Store) ReconcileTally(ctx context.Context, candidateID string) (before, after int64, err error) {
	ctx, cancel := s.op(ctx)
	defer cancel()

	reconcile := func(ctx context.Context) error {
		var c models.Candidate
		if err := s.db.Collection(colCandidates).FindOne(ctx, bson.D{{Key: "_id", Value: candidateID}}).Decode(&c); err != nil {
			return err
		}
		before = c.Votes
		n, err := s.db.Collection(colVotes).CountDocuments(ctx, bson.D{{Key: "candidateId", Value: candidateID}})
		if err != nil {
			return err
		}
		after = n
		if after == before {
			return nil
		}
		res, err := s.db.Collection(colCandidates).UpdateOne(ctx, tallyGuard(candidateID, before),
			bson.M{"$set": bson.M{"votes": after}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			// A cast moved the tally; it schedules its own check.
			after = before
		}
		return nil
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return 0, 0, translate(err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, reconcile(sc)
	})
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == codeIllegalOperation {
		err = reconcile(ctx)
	}
	if err != nil {
		return before, before, translate(err)
	}
	return before, after, nil
}

func (s *Store) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	return s.insert(ctx, colComplaints, c)
}

func (s *Store) FindComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	var c models.Complaint
	if err := s.findOne(ctx, colComplaints, bson.D{{Key: "_id", Value: id}}, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func ownerFilter(id string) bson.D {
	if id == "" {
		return bson.D{}
	}
	return bson.D{{Key: "userId", Value: id}}
}

func (s *Store) ListComplaints(ctx context.Context, requesterID string) ([]models.Complaint, error) {
	var out []models.Complaint
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if err := s.findAll(ctx, colComplaints, ownerFilter(requesterID), opts, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ReviewComplaint(ctx context.Context, id string, r models.ComplaintReview) error {
	return s.update(ctx, colComplaints, id, bson.M{
		"status":     r.Status,
		"adminNotes": r.AdminNotes,
		"resolvedAt": r.ResolvedAt,
		"resolvedBy": r.ResolvedBy,
		"updatedAt":  r.UpdatedAt,
	})
}

func (s *Store) DeleteComplaint(ctx context.Context, id string) error {
	ctx, cancel := s.op(ctx)
	defer cancel()
	res, err := s.db.Collection(colComplaints).DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateDocument(ctx context.Context, d *models.Document) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now()
	d.CreatedAt, d.UpdatedAt = now, now
	return s.insert(ctx, colDocuments, d)
}

func (s *Store) FindDocument(ctx context.Context, id string) (*models.Document, error) {
	var d models.Document
	if err := s.findOne(ctx, colDocuments, bson.D{{Key: "_id", Value: id}}, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) ListDocuments(ctx context.Context, ownerID string) ([]models.Document, error) {
	var out []models.Document
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if err := s.findAll(ctx, colDocuments, ownerFilter(ownerID), opts, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) count(ctx context.Context, col string, filter bson.D) (int64, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	n, err := s.db.Collection(col).CountDocuments(ctx, filter)
	return n, translate(err)
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	return s.count(ctx, colUsers, bson.D{})
}

func (s *Store) CountCandidates(ctx context.Context) (int64, error) {
	return s.count(ctx, colCandidates, bson.D{})
}

func (s *Store) CountVotes(ctx context.Context) (int64, error) {
	return s.count(ctx, colVotes, bson.D{})
}

func (s *Store) CountDocuments(ctx context.Context) (int64, error) {
	return s.count(ctx, colDocuments, bson.D{})
}

func (s *Store) CountComplaints(ctx context.Context, status models.ComplaintStatus) (int64, error) {
	if status == "" {
		return s.count(ctx, colComplaints, bson.D{})
	}
	return s.count(ctx, colComplaints, bson.D{{Key: "status", Value: status}})
}
