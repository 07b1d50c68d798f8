package auth

import (
	"testing"
	"time"

	"govportal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeRoleGate(t *testing.T) {
	user := &Identity{ID: "u", Role: models.RoleUser}
	cand := &Identity{ID: "c", Role: models.RoleCandidate}
	admin := &Identity{ID: "a", Role: models.RoleAdmin}

	tests := []struct {
		name string
		id   *Identity
		op   Operation
		want error
	}{
		{"anonymous vote", nil, OpCastVote, ErrUnauthorized},
		{"empty identity", &Identity{}, OpVoteStatus, ErrUnauthorized},
		{"user votes", user, OpCastVote, nil},
		{"candidate cannot vote", cand, OpCastVote, ErrForbidden},
		{"admin cannot vote", admin, OpCastVote, ErrForbidden},
		{"candidate registers", cand, OpRegisterCandidate, nil},
		{"user cannot register", user, OpRegisterCandidate, ErrForbidden},
		{"admin views tallies", admin, OpViewTallies, nil},
		{"user cannot view tallies", user, OpViewTallies, ErrForbidden},
		{"anyone lists candidates", cand, OpListCandidates, nil},
		{"admin moderates", admin, OpModerateComplaint, nil},
		{"user cannot moderate", user, OpModerateComplaint, ErrForbidden},
		{"candidate cannot file complaint", cand, OpFileComplaint, ErrForbidden},
		{"user deletes complaint", user, OpDeleteComplaint, nil},
		{"unknown op", admin, Operation("nope"), ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.id, tt.op)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestCapabilitiesAndScope(t *testing.T) {
	user := &Identity{ID: "u", Role: models.RoleUser}
	admin := &Identity{ID: "a", Role: models.RoleAdmin}

	assert.True(t, user.Can(CapWriteOwn))
	assert.False(t, user.Can(CapReadAll))
	assert.True(t, admin.Can(CapModerate))
	assert.False(t, admin.Can(CapReadOwn))

	assert.Equal(t, "u", user.Scope())
	assert.Equal(t, "", admin.Scope())
}

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	raw, err := tokens.Issue(&Identity{ID: "u1", Email: "a@b.c", Name: "A", Role: models.RoleCandidate})
	require.NoError(t, err)

	id, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, &Identity{ID: "u1", Email: "a@b.c", Name: "A", Role: models.RoleCandidate}, id)
}

func TestTokensRejectExpiredAndForeign(t *testing.T) {
	now := time.Now()
	tokens := NewTokens("secret", time.Minute)
	tokens.now = func() time.Time { return now }
	raw, err := tokens.Issue(&Identity{ID: "u1", Role: models.RoleUser})
	require.NoError(t, err)

	tokens.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err = tokens.Parse(raw)
	assert.ErrorIs(t, err, ErrUnauthorized)

	other := NewTokens("other", time.Hour)
	_, err = other.Parse(raw)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = tokens.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, CheckPassword("hunter22", hash))
	assert.False(t, CheckPassword("wrong", hash))
	assert.False(t, CheckPassword("hunter22", ""))
}
