package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"govportal/internal/auth"
	"govportal/internal/models"
	"govportal/internal/store"
	"govportal/internal/utils"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

const candidateListKey = "candidates:by-votes"

type CandidateInput struct {
	Name     string `json:"name"`
	Gender   string `json:"gender"`
	Age      int    `json:"age"`
	Promises string `json:"promises"`
	Party    string `json:"party"`
	VotingID int    `json:"votingId"`
}

func (in *CandidateInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Gender = strings.TrimSpace(in.Gender)
	in.Promises = strings.TrimSpace(in.Promises)
	in.Party = strings.TrimSpace(in.Party)

	var missing []string
	if in.Name == "" {
		missing = append(missing, "name")
	}
	if in.Gender == "" {
		missing = append(missing, "gender")
	}
	if in.Age <= 0 {
		missing = append(missing, "age")
	}
	if in.Promises == "" {
		missing = append(missing, "promises")
	}
	if in.Party == "" {
		missing = append(missing, "party")
	}
	if in.VotingID <= 0 {
		missing = append(missing, "votingId")
	}
	if len(missing) > 0 {
		return invalid("missing or invalid fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

type CandidateList struct {
	Candidates []models.Candidate
	TotalVotes int64
	Source     store.Source
}

// CandidateRegistry manages candidate records. Listings from the live store
// are cached briefly; any registration or update invalidates the cache.
type CandidateRegistry struct {
	stores *store.Selector
	cache  *utils.TTLCache[*CandidateList]
	log    *zap.Logger
}

func NewCandidateRegistry(stores *store.Selector, cacheTTL time.Duration, log *zap.Logger) *CandidateRegistry {
	return &CandidateRegistry{
		stores: stores,
		cache:  utils.NewTTLCache[*CandidateList](8, cacheTTL),
		log:    log,
	}
}

// Register creates the caller's candidate record. One record per owner and
// one per voting id, checked against the live store only.
func (r *CandidateRegistry) Register(ctx context.Context, owner *auth.Identity, in CandidateInput) (*models.Candidate, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	primary := r.stores.Primary(ctx)
	if primary == nil {
		return nil, ErrStoreUnavailable
	}

	existing, err := primary.FindCandidateConflict(ctx, owner.ID, in.VotingID)
	switch {
	case err == nil:
		if existing.OwnerID == owner.ID {
			return nil, duplicate("you are already registered as a candidate")
		}
		return nil, duplicate("voting id is already in use")
	case !isNotFound(err):
		return nil, unavailable(r.log, "find candidate conflict", err)
	}

	c := &models.Candidate{
		Name:     in.Name,
		Gender:   in.Gender,
		Age:      in.Age,
		Promises: in.Promises,
		Party:    in.Party,
		VotingID: in.VotingID,
		OwnerID:  owner.ID,
		Email:    owner.Email,
	}
	if err := primary.CreateCandidate(ctx, c); err != nil {
		if isDuplicate(err) {
			return nil, duplicate("candidate registration conflicts with an existing candidate")
		}
		return nil, unavailable(r.log, "create candidate", err)
	}
	r.cache.Purge()
	r.log.Info("candidate registered", zap.String("candidate_id", c.ID), zap.Int("voting_id", c.VotingID))
	return c, nil
}

// List returns every candidate by votes descending. The fallback dataset is
// substituted when the live store errors or has no candidates yet.
func (r *CandidateRegistry) List(ctx context.Context) (*CandidateList, error) {
	if cached, ok := r.cache.Get(candidateListKey); ok {
		return cached, nil
	}
	gen := r.cache.Generation()

	s, src := r.stores.Select(ctx)
	list, err := s.ListCandidates(ctx, true)
	if src == store.SourceLive && (err != nil || len(list) == 0) {
		if err != nil {
			r.log.Warn("live candidate list failed, using fallback dataset", zap.Error(err))
		}
		list, err = r.stores.Fallback().ListCandidates(ctx, true)
		src = store.SourceFallback
	}
	if err != nil {
		return nil, unavailable(r.log, "list candidates", err)
	}

	out := &CandidateList{Candidates: list, Source: src}
	for i := range out.Candidates {
		out.Candidates[i].PromisesHTML = utils.RenderMarkdown(out.Candidates[i].Promises)
		out.TotalVotes += out.Candidates[i].Votes
	}
	if src == store.SourceLive {
		r.cache.SetIfCurrent(candidateListKey, out, gen)
	}
	return out, nil
}

// Get looks a candidate up in the selected store, then in the fallback
// dataset.
func (r *CandidateRegistry) Get(ctx context.Context, id string) (*models.Candidate, error) {
	s, src := r.stores.Select(ctx)
	c, err := s.FindCandidate(ctx, id)
	if err != nil && src == store.SourceLive {
		if !isNotFound(err) {
			r.log.Warn("live candidate lookup failed, using fallback dataset", zap.Error(err))
		}
		c, err = r.stores.Fallback().FindCandidate(ctx, id)
	}
	if err != nil {
		if isNotFound(err) {
			return nil, ErrCandidateNotFound
		}
		return nil, unavailable(r.log, "find candidate", err)
	}
	c.PromisesHTML = utils.RenderMarkdown(c.Promises)
	return c, nil
}

// DecodePatch turns a JSON object into a candidate patch. Unknown keys,
// including votes and votingId, are rejected.
func DecodePatch(raw map[string]interface{}) (models.CandidatePatch, error) {
	var patch models.CandidatePatch
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &patch,
	})
	if err != nil {
		return patch, err
	}
	if err := dec.Decode(raw); err != nil {
		var merr *mapstructure.Error
		if errors.As(err, &merr) && len(merr.Errors) > 0 {
			return patch, invalid("invalid candidate update: %s", strings.Join(merr.Errors, "; "))
		}
		return patch, invalid("invalid candidate update: %v", err)
	}
	if patch.Empty() {
		return patch, invalid("no updatable fields supplied")
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return patch, invalid("name must not be empty")
	}
	if patch.Age != nil && *patch.Age <= 0 {
		return patch, invalid("age must be positive")
	}
	return patch, nil
}

// Update applies raw to candidate id. Candidates may only edit their own
// record; admins may edit any.
func (r *CandidateRegistry) Update(ctx context.Context, caller *auth.Identity, id string, raw map[string]interface{}) (*models.Candidate, error) {
	patch, err := DecodePatch(raw)
	if err != nil {
		return nil, err
	}
	primary := r.stores.Primary(ctx)
	if primary == nil {
		return nil, ErrStoreUnavailable
	}

	c, err := primary.FindCandidate(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrCandidateNotFound
		}
		return nil, unavailable(r.log, "find candidate", err)
	}
	if !caller.Can(auth.CapWriteAll) && c.OwnerID != caller.ID {
		return nil, auth.ErrForbidden
	}

	if err := primary.UpdateCandidate(ctx, id, patch); err != nil {
		if isNotFound(err) {
			return nil, ErrCandidateNotFound
		}
		return nil, unavailable(r.log, "update candidate", err)
	}
	r.cache.Purge()

	patch.Apply(c)
	c.PromisesHTML = utils.RenderMarkdown(c.Promises)
	return c, nil
}
