// Package controller holds the HTTP plumbing shared by the candidate and admin controllers.
package controller

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/lshigami/codescreen/config"
	"github.com/lshigami/codescreen/internal/apperrors"
	"github.com/lshigami/codescreen/internal/dto"
	"github.com/rs/zerolog/log"
)

const (
	AdminAPIKeyHeader = "X-Admin-API-Key"
	// AdminAPIKeyQuery carries the key on websocket upgrades, where browsers cannot set headers.
	AdminAPIKeyQuery = "api_key"
)

// StatusFor maps a service error onto its HTTP status and client-facing message.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrAlreadyCompleted):
		return http.StatusForbidden, "This test has already been completed"
	case errors.Is(err, apperrors.ErrInvalidQuestion):
		return http.StatusNotFound, "Question not found or doesn't belong to this test"
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, apperrors.ErrNotStarted):
		return http.StatusConflict, "This test has not been started"
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest, "Validation failed"
	case errors.Is(err, apperrors.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "Storage temporarily unavailable, please retry"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// RespondError writes the error body for err. Server-side failures keep their
// details out of the response.
func RespondError(ctx *gin.Context, op string, err error) {
	status, message := StatusFor(err)
	resp := dto.ErrorResponse{Message: message}
	switch {
	case status >= http.StatusInternalServerError:
		log.Error().Err(err).Str("path", ctx.FullPath()).Msg(op + ": service error")
	case status == http.StatusBadRequest:
		resp.Details = []string{err.Error()}
		log.Warn().Err(err).Msg(op + ": rejected")
	default:
		log.Debug().Err(err).Msg(op + ": " + message)
	}
	ctx.JSON(status, resp)
}

// BindError answers a request whose body failed binding or validation.
func BindError(ctx *gin.Context, op string, err error) {
	log.Warn().Err(err).Msg(op + ": Failed to bind JSON")
	ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: bindDetails(err)})
}

// bindDetails lists one entry per failed field, or the decoder error as is.
func bindDetails(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			details = append(details, fmt.Sprintf("%s: failed on '%s=%s'", fe.Namespace(), fe.Tag(), fe.Param()))
			continue
		}
		details = append(details, fmt.Sprintf("%s: failed on '%s'", fe.Namespace(), fe.Tag()))
	}
	return details
}

// UintParam parses a numeric path parameter, answering 400 when it is malformed.
func UintParam(ctx *gin.Context, name string) (uint, bool) {
	val, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid " + name + " format"})
		return 0, false
	}
	return uint(val), true
}

// RequireAdminKey guards the agency surface with a shared API key. With no key
// configured every admin request is rejected. The key is read from the header, or
// from the api_key query parameter on websocket upgrades only.
func RequireAdminKey(cfg *config.Config) gin.HandlerFunc {
	key := []byte(cfg.Admin.APIKey)
	if len(key) == 0 {
		log.Warn().Msg("ADMIN_API_KEY is not set, admin routes will reject all requests")
	}
	return func(c *gin.Context) {
		provided := []byte(c.GetHeader(AdminAPIKeyHeader))
		if len(provided) == 0 && websocket.IsWebSocketUpgrade(c.Request) {
			provided = []byte(c.Query(AdminAPIKeyQuery))
		}
		if len(key) == 0 || subtle.ConstantTimeCompare(provided, key) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "Invalid or missing admin API key"})
			return
		}
		c.Next()
	}
}

// OriginAllowed reports whether a websocket upgrade from origin may proceed.
// Requests without an Origin header come from non-browser clients and pass.
func OriginAllowed(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		log.Warn().Str("origin", origin).Msg("Rejected websocket origin")
		return false
	}
}
