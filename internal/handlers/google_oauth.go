package handlers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"govportal/internal/middleware"
	"govportal/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	oauthStateKey     = "oauth_state"
)

// GoogleConfig builds the OAuth client configuration for Google sign-in.
func GoogleConfig(clientID, clientSecret, siteURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  siteURL + "/auth/google/callback",
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

func generateStateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// GoogleLogin starts the authorization code flow.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	if h.google == nil {
		middleware.Abort(c, http.StatusNotFound, "NotFound", "Google sign-in is not enabled")
		return
	}
	state, err := generateStateToken()
	if err != nil {
		Fail(c, err)
		return
	}
	session := sessions.Default(c)
	session.Set(oauthStateKey, state)
	if err := session.Save(); err != nil {
		Fail(c, err)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, h.google.AuthCodeURL(state))
}

// GoogleCallback finishes the flow, signs the user in and sends them back
// to the site.
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	if h.google == nil {
		middleware.Abort(c, http.StatusNotFound, "NotFound", "Google sign-in is not enabled")
		return
	}
	session := sessions.Default(c)
	saved, _ := session.Get(oauthStateKey).(string)
	if saved == "" || c.Query("state") != saved {
		middleware.Abort(c, http.StatusBadRequest, "ValidationError", "Invalid sign-in state, please try again")
		return
	}
	session.Delete(oauthStateKey)
	_ = session.Save()

	code := c.Query("code")
	if code == "" {
		middleware.Abort(c, http.StatusBadRequest, "ValidationError", "Missing authorization code")
		return
	}

	ctx := c.Request.Context()
	token, err := h.google.Exchange(ctx, code)
	if err != nil {
		h.log.Warn("google token exchange failed", zap.Error(err))
		middleware.Abort(c, http.StatusUnauthorized, "Unauthorized", "Google sign-in failed")
		return
	}
	profile, err := h.googleProfile(ctx, token)
	if err != nil {
		h.log.Warn("google userinfo failed", zap.Error(err))
		middleware.Abort(c, http.StatusUnauthorized, "Unauthorized", "Google sign-in failed")
		return
	}

	u, err := h.accounts.GoogleSignIn(ctx, *profile)
	if err != nil {
		Fail(c, err)
		return
	}
	if _, err := h.startSession(c, u); err != nil {
		Fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, h.siteURL+"/")
}

func (h *AuthHandler) googleProfile(ctx context.Context, token *oauth2.Token) (*services.GoogleProfile, error) {
	resp, err := h.google.Client(ctx, token).Get(h.userInfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo: status %d", resp.StatusCode)
	}
	var p services.GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &p, nil
}
