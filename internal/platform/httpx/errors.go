// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/pharmaflow/pharmaflow/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	var transition *shared.InvalidTransitionError
	var credit *shared.CreditLimitExceededError

	switch {
	case errors.Is(err, shared.ErrNotFound):
		problem(w, r, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrValidation):
		problem(w, r, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.As(err, &transition):
		problem(w, r, http.StatusUnprocessableEntity, "Invalid Transition", err.Error())
	case errors.As(err, &credit):
		problem(w, r, http.StatusUnprocessableEntity, "Credit Limit Exceeded", err.Error())
	case errors.Is(err, shared.ErrInsufficientStock):
		problem(w, r, http.StatusUnprocessableEntity, "Insufficient Stock", err.Error())
	case errors.Is(err, shared.ErrConflict):
		problem(w, r, http.StatusConflict, "Conflict", "concurrent update, retry the request")
	case errors.Is(err, shared.ErrSequenceUnavailable):
		problem(w, r, http.StatusServiceUnavailable, "Sequence Unavailable", err.Error())
	default:
		problem(w, r, http.StatusInternalServerError, "Internal Error", "")
	}
}
