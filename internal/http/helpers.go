package http

import (
	"errors"
	"net/http"
	"strings"

	"roomfund/internal/core"
	applog "roomfund/internal/log"
	"roomfund/internal/services"
	"roomfund/internal/storage"
)

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// accountFrom returns the validated account path value.
func accountFrom(r *http.Request) (string, error) {
	account := r.PathValue("account")
	if err := storage.ValidateKey(account, storage.KindExpenses); err != nil {
		return "", badRequest("Invalid account id")
	}
	return account, nil
}

var validationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrAmountTooLarge,
	core.ErrInvalidPoints,
	core.ErrInvalidPeriod,
	core.ErrInvalidDate,
	core.ErrEmptyTitle,
	core.ErrEmptyName,
	core.ErrEmptyAssignee,
	core.ErrDescriptionTooLong,
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// writeError maps service and storage errors onto status codes and an error
// notification. Unexpected errors are logged and reported generically.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		ErrorResponse(reqErr.status, reqErr.message).Write(w)
	case isValidationError(err):
		UnprocessableEntityError(validationMessage(err)).Write(w)
	case errors.Is(err, storage.ErrNotFound):
		NotFoundError("Record not found").Write(w)
	case errors.Is(err, services.ErrDuplicateRoommate):
		ConflictError("A roommate with that name already exists").Write(w)
	case errors.Is(err, services.ErrAdminNotRemovable):
		ConflictError("The admin roommate cannot be removed").Write(w)
	case errors.Is(err, storage.ErrInvalidAccount), errors.Is(err, storage.ErrInvalidID), errors.Is(err, storage.ErrInvalidKind):
		BadRequestError(err.Error()).Write(w)
	default:
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(),
			"Request failed", err, applog.ErrorTypeInternal, r.Method+" "+r.Pattern, nil)
		InternalServerError("Something went wrong. Please try again.").Write(w)
	}
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "Amount must be greater than zero"
	case errors.Is(err, core.ErrAmountTooLarge):
		return "Amount is too large"
	case errors.Is(err, core.ErrInvalidPoints):
		return "Points must be between 1 and 50"
	case errors.Is(err, core.ErrEmptyTitle):
		return "Title is required"
	case errors.Is(err, core.ErrEmptyName):
		return "Name is required"
	case errors.Is(err, core.ErrEmptyAssignee):
		return "Assignee is required"
	case errors.Is(err, core.ErrDescriptionTooLong):
		return "Description must be at most 200 characters"
	case errors.Is(err, core.ErrInvalidPeriod):
		return "Invalid budget month"
	default:
		return "Invalid date"
	}
}
