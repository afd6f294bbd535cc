package handler

import (
	"errors"
	"net/http"

	"servicehub/internal/service"
)

// httpStatus maps service-layer errors onto response codes: 404 for missing
// entities, 400 for malformed input and approval-rule violations, 500 for
// anything else (persistence failures).
func httpStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrNotApprover),
		errors.Is(err, service.ErrInvalidAction),
		errors.Is(err, service.ErrNoApprovers),
		errors.Is(err, service.ErrAlreadyProcessed),
		errors.Is(err, service.ErrNoOptions):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
