package router

import (
	"govportal/internal/auth"
	"govportal/internal/handlers"
	"govportal/internal/middleware"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const sessionName = "govportal_session"

// Handlers groups everything the routes dispatch to.
type Handlers struct {
	Auth      *handlers.AuthHandler
	Vote      *handlers.VoteHandler
	Candidate *handlers.CandidateHandler
	Complaint *handlers.ComplaintHandler
	Document  *handlers.DocumentHandler
	Admin     *handlers.AdminHandler
	Assistant *handlers.AssistantHandler
	Health    *handlers.HealthHandler
}

// New builds an engine with recovery, request logging, cookie sessions and
// identity resolution installed.
func New(sessionSecret string, tokens *auth.Tokens, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))

	store := cookie.NewStore([]byte(sessionSecret))
	store.Options(sessions.Options{Path: "/", MaxAge: 30 * 24 * 3600, HttpOnly: true})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(middleware.LoadIdentity(tokens))
	return r
}

// RegisterRoutes wires the JSON API. limit guards the public listing and
// the auth endpoints.
func RegisterRoutes(r *gin.Engine, h Handlers, limit gin.HandlerFunc) {
	require := middleware.Require

	// Public
	r.GET("/health", h.Health.Health)
	r.GET("/ai/insights", h.Assistant.Insights)

	authGroup := r.Group("/auth")
	authGroup.Use(limit)
	{
		authGroup.POST("/signup", h.Auth.Signup)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/logout", h.Auth.Logout)
		authGroup.GET("/me", h.Auth.Me)
		authGroup.GET("/google/login", h.Auth.GoogleLogin)
		authGroup.GET("/google/callback", h.Auth.GoogleCallback)
	}

	// Votes
	r.POST("/votes", require(auth.OpCastVote), h.Vote.Cast)
	r.GET("/votes", require(auth.OpVoteStatus), h.Vote.Status)
	r.GET("/votes/tallies", require(auth.OpViewTallies), h.Vote.Tallies)

	// Candidates
	r.POST("/candidates", require(auth.OpRegisterCandidate), h.Candidate.Register)
	r.GET("/candidates", limit, require(auth.OpListCandidates), h.Candidate.List)
	r.GET("/candidates/:id", require(auth.OpListCandidates), h.Candidate.Get)
	r.PUT("/candidates/:id", require(auth.OpUpdateCandidate), h.Candidate.Update)

	// Complaints
	r.POST("/complaints", require(auth.OpFileComplaint), h.Complaint.File)
	r.GET("/complaints", require(auth.OpListComplaints), h.Complaint.List)
	r.PUT("/complaints/:id", require(auth.OpModerateComplaint), h.Complaint.Review)
	r.DELETE("/complaints/:id", require(auth.OpDeleteComplaint), h.Complaint.Delete)

	// Documents
	r.POST("/documents", require(auth.OpRegisterDocument), h.Document.Register)
	r.GET("/documents", require(auth.OpListDocuments), h.Document.List)
	r.GET("/documents/:id/content", require(auth.OpListDocuments), h.Document.Content)

	r.GET("/admin/stats", require(auth.OpAdminStats), h.Admin.Stats)
	r.POST("/assistant/chat", require(auth.OpAssistant), h.Assistant.Chat)
}
