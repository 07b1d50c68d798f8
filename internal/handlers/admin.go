package handlers

import (
	"govportal/internal/services"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	stats *services.StatsService
}

func NewAdminHandler(stats *services.StatsService) *AdminHandler {
	return &AdminHandler{stats: stats}
}

// Stats serves the admin dashboard overview.
func (h *AdminHandler) Stats(c *gin.Context) {
	out, err := h.stats.Dashboard(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, gin.H{
		"stats":            out.Stats,
		"recentComplaints": out.RecentComplaints,
		"recentVotes":      out.RecentVotes,
		"candidates":       out.Candidates,
		"source":           out.Source,
	})
}
