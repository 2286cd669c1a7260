package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"roomfund/internal/core"
)

const maxBodyBytes = 64 << 10

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("amount", validateAmount)
	return v
}

// validateAmount accepts non-negative decimals written "12.34" or "12,34",
// up to core.MaxAmountCents.
func validateAmount(fl validator.FieldLevel) bool {
	_, err := parseAmount(fl.Field().String(), true)
	return err == nil
}

// parseAmount converts a decimal string to Money. Zero is accepted only when
// allowZero is set.
func parseAmount(s string, allowZero bool) (core.Money, error) {
	s = strings.TrimSpace(s)
	if allowZero && isZeroAmount(s) {
		return core.Money{}, nil
	}
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}

func isZeroAmount(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '0' && r != '.' && r != ',' {
			return false
		}
	}
	return strings.ContainsRune(s, '0')
}

// amountInput accepts a JSON string or number and keeps its decimal text.
type amountInput string

func (a *amountInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = amountInput(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount must be a number or decimal string")
	}
	*a = amountInput(n.String())
	return nil
}

type sessionRequest struct {
	Owner string `json:"owner" validate:"max=80"`
}

type expenseRequest struct {
	Amount      amountInput `json:"amount" validate:"required,amount"`
	Description string      `json:"description" validate:"max=200"`
	SpentBy     string      `json:"spentBy" validate:"max=80"`
	Category    string      `json:"category" validate:"max=50"`
	Date        string      `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type budgetRequest struct {
	Amount amountInput `json:"amount" validate:"required,amount"`
}

type choreRequest struct {
	Title      string `json:"title" validate:"required,max=100"`
	AssignedTo string `json:"assignedTo" validate:"required,max=80"`
	DueDate    string `json:"dueDate" validate:"required,datetime=2006-01-02"`
	Emoji      string `json:"emoji" validate:"max=16"`
	Points     int    `json:"points" validate:"omitempty,min=1,max=50"`
}

type roommateRequest struct {
	Name     string `json:"name" validate:"required,max=80"`
	Avatar   string `json:"avatar" validate:"omitempty,max=512"`
	Initials string `json:"initials" validate:"omitempty,max=3"`
}

// requestError is a client mistake in the request itself.
type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string { return e.message }

func badRequest(format string, args ...any) error {
	return &requestError{status: http.StatusBadRequest, message: fmt.Sprintf(format, args...)}
}

func unprocessable(format string, args ...any) error {
	return &requestError{status: http.StatusUnprocessableEntity, message: fmt.Sprintf(format, args...)}
}

// decodeJSON reads a bounded JSON body into dst, sanitizes its strings and
// validates it. An empty body decodes to the zero value before validation.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &requestError{status: http.StatusRequestEntityTooLarge, message: "Request body too large"}
		}
		return badRequest("Could not read request body")
	}

	if len(bytes.TrimSpace(body)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.DisallowUnknownFields()
		if err := dec.Decode(dst); err != nil {
			return badRequest("Invalid JSON: %v", err)
		}
	}

	sanitizeStrings(reflect.ValueOf(dst))
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// sanitizeStrings trims and strips control characters from every string
// field of the struct v points to.
func sanitizeStrings(v reflect.Value) {
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return
	}
	for i := range v.NumField() {
		f := v.Field(i)
		if f.Kind() == reflect.String && f.CanSet() {
			f.SetString(sanitizeInput(f.String()))
		}
	}
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return unprocessable("Invalid request")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return unprocessable("%s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "amount":
		return fmt.Sprintf("%s must be a non-negative amount of at most %d", field, core.MaxAmountCents/100)
	case "datetime":
		return field + " must be a YYYY-MM-DD date"
	default:
		return field + " is invalid"
	}
}

// optionalDate parses a validated YYYY-MM-DD value; empty means zero.
func optionalDate(s string) core.Date {
	if s == "" {
		return core.Date{}
	}
	d, _ := core.ParseDate(s)
	return d
}
