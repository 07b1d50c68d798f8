package middleware

import (
	"net/http"
	"strings"

	"govportal/internal/auth"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	// IdentityKey holds the resolved *auth.Identity in the gin context.
	IdentityKey = "identity"
	// SessionTokenKey is the session field carrying the signed token.
	SessionTokenKey = "token"
)

// LoadIdentity resolves the caller from a Bearer token, falling back to the
// token stored in the session cookie. Requests without a valid credential
// continue anonymously.
func LoadIdentity(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearer(c.GetHeader("Authorization"))
		if raw == "" {
			if v, ok := sessions.Default(c).Get(SessionTokenKey).(string); ok {
				raw = v
			}
		}
		if raw != "" {
			if id, err := tokens.Parse(raw); err == nil {
				c.Set(IdentityKey, id)
			}
		}
		c.Next()
	}
}

func bearer(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// CurrentIdentity returns the caller resolved by LoadIdentity, if any.
func CurrentIdentity(c *gin.Context) *auth.Identity {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*auth.Identity)
	return id
}

// Require rejects the request unless the caller may run op.
func Require(op auth.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch err := auth.Authorize(CurrentIdentity(c), op); err {
		case nil:
			c.Next()
		case auth.ErrUnauthorized:
			Abort(c, http.StatusUnauthorized, "Unauthorized", "Please sign in to continue")
		default:
			Abort(c, http.StatusForbidden, "Forbidden", "Your role does not allow this action")
		}
	}
}

// Abort stops the chain with the standard error body.
func Abort(c *gin.Context, status int, kind, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   kind,
		"message": message,
	})
}
