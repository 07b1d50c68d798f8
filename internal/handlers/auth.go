package handlers

import (
	"net/http"

	"govportal/internal/auth"
	"govportal/internal/middleware"
	"govportal/internal/models"
	"govportal/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type AuthHandler struct {
	accounts *services.AccountService
	tokens   *auth.Tokens
	google   *oauth2.Config // nil when Google sign-in is not configured
	// userInfoURL is the Google profile endpoint.
	userInfoURL string
	siteURL     string
	log         *zap.Logger
}

func NewAuthHandler(accounts *services.AccountService, tokens *auth.Tokens, google *oauth2.Config, siteURL string, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		accounts:    accounts,
		tokens:      tokens,
		google:      google,
		userInfoURL: googleUserInfoURL,
		siteURL:     siteURL,
		log:         log,
	}
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var in services.SignupInput
	if !bind(c, &in) {
		return
	}
	u, err := h.accounts.Signup(c.Request.Context(), in)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, gin.H{"message": "Account created successfully", "user": u})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !bind(c, &body) {
		return
	}
	u, err := h.accounts.Login(c.Request.Context(), body.Email, body.Password)
	if err != nil {
		Fail(c, err)
		return
	}
	token, err := h.startSession(c, u)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, gin.H{"token": token, "user": u})
}

// startSession issues a token for u and stores it in the session cookie.
func (h *AuthHandler) startSession(c *gin.Context, u *models.User) (string, error) {
	token, err := h.tokens.Issue(auth.FromUser(u))
	if err != nil {
		return "", err
	}
	session := sessions.Default(c)
	session.Set(middleware.SessionTokenKey, token)
	if err := session.Save(); err != nil {
		return "", err
	}
	return token, nil
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		h.log.Warn("clear session", zap.Error(err))
	}
	OK(c, gin.H{"message": "Signed out"})
}

// Me returns the identity resolved for this request.
func (h *AuthHandler) Me(c *gin.Context) {
	id := identity(c)
	if id == nil {
		middleware.Abort(c, http.StatusUnauthorized, "Unauthorized", "Please sign in to continue")
		return
	}
	OK(c, gin.H{"user": id})
}
