package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"homeclean/internal/domain"
	"homeclean/internal/repository"
	"homeclean/internal/service"
)

// Stable error codes returned alongside the message.
const (
	codeNotFound          = "not_found"
	codeForbidden         = "forbidden"
	codeInvalidState      = "invalid_state"
	codeConflict          = "conflict"
	codeInvalidTransition = "invalid_transition"
	codeInvalidRequest    = "invalid_request"
	codeUnauthorized      = "unauthorized"
	codeInternal          = "internal"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status, code := mapError(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		_ = c.Error(err)
		c.JSON(status, ErrorResponse{Error: "internal server error", Code: code})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: codeInvalidRequest})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapError maps service/repository/domain errors to an HTTP status and error code.
func mapError(err error) (int, string) {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrBookingNotFound),
		errors.Is(err, service.ErrServiceNotFound):
		return http.StatusNotFound, codeNotFound

	// Forbidden errors
	case errors.Is(err, service.ErrNotBookingParty),
		errors.Is(err, service.ErrRoleNotPermitted),
		errors.Is(err, service.ErrCustomerOnly):
		return http.StatusForbidden, codeForbidden

	// Conflict errors
	case errors.Is(err, service.ErrSlotUnavailable),
		errors.Is(err, service.ErrConcurrentUpdate):
		return http.StatusConflict, codeConflict

	// Lifecycle errors
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, domain.ErrUnknownStatus):
		return http.StatusBadRequest, codeInvalidTransition

	// Booking rules and schedule shape
	case errors.Is(err, service.ErrServiceNotOwnedByCleaner),
		errors.Is(err, service.ErrServiceInactive),
		errors.Is(err, service.ErrDateInPast),
		errors.Is(err, domain.ErrInvalidDuration),
		errors.Is(err, domain.ErrCrossesMidnight),
		errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, domain.ErrInvalidTimeOfDay):
		return http.StatusBadRequest, codeInvalidState

	// Validation errors
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, service.ErrInvalidAddress),
		errors.Is(err, service.ErrInstructionsTooLong),
		errors.Is(err, service.ErrInvalidPagination),
		errors.Is(err, domain.ErrUnknownPaymentStatus):
		return http.StatusBadRequest, codeInvalidRequest

	case errors.Is(err, domain.ErrUnknownRole):
		return http.StatusUnauthorized, codeUnauthorized

	// Default to internal server error
	default:
		return http.StatusInternalServerError, codeInternal
	}
}
