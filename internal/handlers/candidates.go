package handlers

import (
	"govportal/internal/services"

	"github.com/gin-gonic/gin"
)

type CandidateHandler struct {
	registry *services.CandidateRegistry
}

func NewCandidateHandler(registry *services.CandidateRegistry) *CandidateHandler {
	return &CandidateHandler{registry: registry}
}

func (h *CandidateHandler) Register(c *gin.Context) {
	var in services.CandidateInput
	if !bind(c, &in) {
		return
	}
	cand, err := h.registry.Register(c.Request.Context(), identity(c), in)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, gin.H{"message": "Candidate registered successfully", "candidateId": cand.ID})
}

func (h *CandidateHandler) List(c *gin.Context) {
	list, err := h.registry.List(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, gin.H{"totalVotes": list.TotalVotes, "source": list.Source, "candidates": list.Candidates})
}

func (h *CandidateHandler) Get(c *gin.Context) {
	cand, err := h.registry.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, gin.H{"candidate": cand})
}

// Update applies a partial edit. The body is decoded loosely so unknown or
// protected keys can be rejected by name.
func (h *CandidateHandler) Update(c *gin.Context) {
	var raw map[string]interface{}
	if !bind(c, &raw) {
		return
	}
	cand, err := h.registry.Update(c.Request.Context(), identity(c), c.Param("id"), raw)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, gin.H{"message": "Candidate updated", "candidate": cand})
}
