package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// Sentinel errors shared by handlers that have no richer domain error to map.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// BadRequest reports a malformed or invalid request body.
func BadRequest(w http.ResponseWriter, detail string) {
	Problem(w, http.StatusBadRequest, "Validation Failed", detail)
}

// Conflict reports a state conflict detected during an atomic operation.
func Conflict(w http.ResponseWriter, detail string) {
	Problem(w, http.StatusConflict, "Conflict", detail)
}

// NotFound reports a missing resource.
func NotFound(w http.ResponseWriter, detail string) {
	Problem(w, http.StatusNotFound, "Not Found", detail)
}

// Internal reports an unexpected failure without leaking details.
func Internal(w http.ResponseWriter) {
	Problem(w, http.StatusInternalServerError, "Internal Error", "")
}

// RespondError maps generic errors to HTTP responses. Handlers map their own
// domain conflicts first and fall back to this for everything else.
func RespondError(w http.ResponseWriter, err error) {
	var vErrs validator.ValidationErrors
	switch {
	case errors.As(err, &vErrs):
		BadRequest(w, vErrs.Error())
	case errors.Is(err, ErrNotFound):
		NotFound(w, err.Error())
	case errors.Is(err, ErrDuplicate):
		Conflict(w, err.Error())
	case errors.Is(err, ErrValidation):
		BadRequest(w, err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		Internal(w)
	}
}
