// Package auth resolves who a caller is and whether their role may run a
// given operation.
package auth

import (
	"errors"

	"govportal/internal/models"
)

var (
	ErrUnauthorized = errors.New("authentication required")
	ErrForbidden    = errors.New("insufficient role for this operation")
)

// Identity is the authenticated caller. Role is immutable after signup,
// so it is safe to carry in sessions and tokens.
type Identity struct {
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  models.Role `json:"role"`
}

func FromUser(u *models.User) *Identity {
	return &Identity{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

type Operation string

const (
	OpCastVote          Operation = "vote.cast"
	OpVoteStatus        Operation = "vote.status"
	OpViewTallies       Operation = "vote.tallies"
	OpRegisterCandidate Operation = "candidate.register"
	OpListCandidates    Operation = "candidate.list"
	OpUpdateCandidate   Operation = "candidate.update"
	OpFileComplaint     Operation = "complaint.file"
	OpListComplaints    Operation = "complaint.list"
	OpModerateComplaint Operation = "complaint.moderate"
	OpDeleteComplaint   Operation = "complaint.delete"
	OpRegisterDocument  Operation = "document.register"
	OpListDocuments     Operation = "document.list"
	OpAdminStats        Operation = "admin.stats"
	OpAssistant         Operation = "assistant.chat"
)

// policy maps each operation to the exact roles allowed to run it. Roles
// do not inherit from one another: an admin cannot cast a vote. A nil
// entry admits any authenticated identity.
var policy = map[Operation][]models.Role{
	OpCastVote:          {models.RoleUser},
	OpVoteStatus:        nil,
	OpViewTallies:       {models.RoleAdmin},
	OpRegisterCandidate: {models.RoleCandidate},
	OpListCandidates:    nil,
	OpUpdateCandidate:   {models.RoleCandidate, models.RoleAdmin},
	OpFileComplaint:     {models.RoleUser},
	OpListComplaints:    nil,
	OpModerateComplaint: {models.RoleAdmin},
	OpDeleteComplaint:   {models.RoleUser, models.RoleAdmin},
	OpRegisterDocument:  nil,
	OpListDocuments:     nil,
	OpAdminStats:        {models.RoleAdmin},
	OpAssistant:         nil,
}

// Authorize checks id against the policy for op. Unknown operations are
// denied.
func Authorize(id *Identity, op Operation) error {
	if id == nil || id.ID == "" {
		return ErrUnauthorized
	}
	roles, ok := policy[op]
	if !ok {
		return ErrForbidden
	}
	if roles == nil {
		return nil
	}
	for _, r := range roles {
		if id.Role == r {
			return nil
		}
	}
	return ErrForbidden
}

type Capability string

const (
	CapReadOwn  Capability = "read:own"
	CapWriteOwn Capability = "write:own"
	CapReadAll  Capability = "read:all"
	CapWriteAll Capability = "write:all"
	CapModerate Capability = "moderate"
)

var capabilities = map[models.Role][]Capability{
	models.RoleUser:      {CapReadOwn, CapWriteOwn},
	models.RoleCandidate: {CapReadOwn, CapWriteOwn},
	models.RoleAdmin:     {CapReadAll, CapWriteAll, CapModerate},
}

// Can reports whether the identity's role carries capability c.
func (id *Identity) Can(c Capability) bool {
	if id == nil {
		return false
	}
	for _, have := range capabilities[id.Role] {
		if have == c {
			return true
		}
	}
	return false
}

// Scope returns the owner filter for listing records: empty for callers
// that may read everything, the caller's id otherwise.
func (id *Identity) Scope() string {
	if id.Can(CapReadAll) {
		return ""
	}
	return id.ID
}
