package api

import (
	"errors"
	"net/http"

	"github.com/okian/ctfboard/internal/domain/failure"
	"github.com/okian/ctfboard/internal/domain/types"
	"github.com/okian/ctfboard/pkg/logger"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// statusFor maps a failure kind to its HTTP status.
func statusFor(err error) int {
	switch failure.KindOf(err) {
	case failure.Semantic, failure.Validation:
		return http.StatusUnprocessableEntity
	case failure.Authorization:
		if failure.MessageOf(err) == failure.MsgMissingToken {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	case failure.NotFound:
		return http.StatusNotFound
	case failure.RateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as an error body. Internal errors are logged and
// never echoed.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("method", r.Method),
			logger.Error(err),
		)
	}
	writeJSON(w, status, types.ErrorResponse{Errors: []types.ErrorItem{{
		Code:    failure.KindOf(err).String(),
		Message: failure.MessageOf(err),
	}}})
}

// writeValidation renders field-level validation errors.
func writeValidation(w http.ResponseWriter, items []types.ErrorItem) {
	writeJSON(w, http.StatusUnprocessableEntity, types.ErrorResponse{Errors: items})
}
