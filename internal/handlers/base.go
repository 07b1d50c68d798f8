package handlers

import (
	"errors"
	"net/http"

	"govportal/internal/auth"
	"govportal/internal/middleware"
	"govportal/internal/services"

	"github.com/gin-gonic/gin"
)

// OK writes a success body; obj may be nil.
func OK(c *gin.Context, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}
	obj["success"] = true
	c.JSON(http.StatusOK, obj)
}

// Fail maps err onto the error table and writes it. Store failures and
// unexpected errors are attached to the context for the request logger;
// their text is never sent to the client.
func Fail(c *gin.Context, err error) {
	status, kind, message := classify(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	middleware.Abort(c, status, kind, message)
}

func classify(err error) (int, string, string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, "ValidationError", verr.Message
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized", "Please sign in to continue"
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, "Forbidden", "You are not allowed to do that"
	case errors.Is(err, services.ErrAlreadyVoted):
		return http.StatusBadRequest, "AlreadyVoted", services.ErrAlreadyVoted.Error()
	case errors.Is(err, services.ErrDuplicateRegistration):
		return http.StatusBadRequest, "DuplicateRegistration", err.Error()
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Unauthorized", services.ErrInvalidCredentials.Error()
	case errors.Is(err, services.ErrCandidateNotFound):
		return http.StatusNotFound, "CandidateNotFound", services.ErrCandidateNotFound.Error()
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "NotFound", services.ErrNotFound.Error()
	case errors.Is(err, services.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "StoreUnavailable", services.ErrStoreUnavailable.Error()
	}
	return http.StatusInternalServerError, "Internal", "Something went wrong"
}

// bind decodes the JSON body into dst, answering 400 on failure.
func bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		middleware.Abort(c, http.StatusBadRequest, "ValidationError", "Request body must be valid JSON")
		return false
	}
	return true
}

func identity(c *gin.Context) *auth.Identity {
	return middleware.CurrentIdentity(c)
}
