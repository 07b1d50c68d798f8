package handlers

import (
	"govportal/internal/auth"
	"govportal/internal/services"

	"github.com/gin-gonic/gin"
)

type VoteHandler struct {
	ledger *services.VoteLedger
}

func NewVoteHandler(ledger *services.VoteLedger) *VoteHandler {
	return &VoteHandler{ledger: ledger}
}

// Cast records the caller's vote.
func (h *VoteHandler) Cast(c *gin.Context) {
	var body struct {
		CandidateID string `json:"candidateId"`
	}
	if !bind(c, &body) {
		return
	}
	vote, err := h.ledger.Cast(c.Request.Context(), identity(c), body.CandidateID)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, gin.H{"message": "Vote cast successfully", "vote": vote})
}

// Status reports whether the caller has voted. Admins also get the tallies.
func (h *VoteHandler) Status(c *gin.Context) {
	id := identity(c)
	st, err := h.ledger.Status(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}
	out := gin.H{"hasVoted": st.HasVoted}
	if st.Vote != nil {
		out["userVote"] = st.Vote
		out["source"] = st.Source
	}
	if auth.Authorize(id, auth.OpViewTallies) == nil {
		tallies, src, err := h.ledger.Tallies(c.Request.Context())
		if err != nil {
			Fail(c, err)
			return
		}
		out["stats"] = tallies
		out["statsSource"] = src
	}
	OK(c, out)
}

func (h *VoteHandler) Tallies(c *gin.Context) {
	tallies, src, err := h.ledger.Tallies(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, gin.H{"tallies": tallies, "source": src})
}
