package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func decodeRequest(t *testing.T, body string, dst any) error {
	t.Helper()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	return decodeJSON(w, r, dst)
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var reqErr *requestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected requestError, got %T: %v", err, err)
	}
	return reqErr.status
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in        string
		allowZero bool
		cents     int64
		wantErr   bool
	}{
		{"12.34", false, 1234, false},
		{"12,5", false, 1250, false},
		{" 7 ", false, 700, false},
		{"0.005", false, 1, false},
		{"0", false, 0, true},
		{"0", true, 0, false},
		{"0.00", true, 0, false},
		{"", true, 0, true},
		{"-3", false, 0, true},
		{"1e3", false, 0, true},
		{"abc", true, 0, true},
		{"1000000000000", false, 100_000_000_000_000, false},
		{"1000000000000.01", true, 0, true},
		{"92233720368547758", false, 0, true},
	}
	for _, tt := range tests {
		m, err := parseAmount(tt.in, tt.allowZero)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseAmount(%q, %v) err = %v, wantErr %v", tt.in, tt.allowZero, err, tt.wantErr)
			continue
		}
		if err == nil && m.Cents != tt.cents {
			t.Errorf("parseAmount(%q) = %d cents, want %d", tt.in, m.Cents, tt.cents)
		}
	}
}

func TestDecodeJSON_AmountAcceptsStringOrNumber(t *testing.T) {
	for _, body := range []string{`{"amount":"450.50"}`, `{"amount":450.5}`} {
		var req expenseRequest
		if err := decodeRequest(t, body, &req); err != nil {
			t.Fatalf("decode %s: %v", body, err)
		}
		m, err := parseAmount(string(req.Amount), false)
		if err != nil || m.Cents != 45050 {
			t.Errorf("%s: got %d cents, err %v", body, m.Cents, err)
		}
	}
}

func TestDecodeJSON_SanitizesStrings(t *testing.T) {
	var req expenseRequest
	err := decodeRequest(t, `{"amount":"10","description":"  milk\u0000 and\u0007 bread  ","spentBy":" Asha "}`, &req)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Description != "milk and bread" {
		t.Errorf("Description = %q", req.Description)
	}
	if req.SpentBy != "Asha" {
		t.Errorf("SpentBy = %q", req.SpentBy)
	}
}

func TestDecodeJSON_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		dst     any
		status  int
		message string
	}{
		{"malformed", `{"amount":`, &expenseRequest{}, http.StatusBadRequest, "Invalid JSON"},
		{"unknown field", `{"amount":"1","tip":"2"}`, &expenseRequest{}, http.StatusBadRequest, "Invalid JSON"},
		{"missing amount", `{"description":"tea"}`, &expenseRequest{}, http.StatusUnprocessableEntity, "amount is required"},
		{"bad amount", `{"amount":"ten"}`, &expenseRequest{}, http.StatusUnprocessableEntity, "amount must be a non-negative amount"},
		{"amount too large", `{"amount":"92233720368547758"}`, &expenseRequest{}, http.StatusUnprocessableEntity, "amount must be a non-negative amount of at most 1000000000000"},
		{"bad date", `{"amount":"1","date":"15/07/2025"}`, &expenseRequest{}, http.StatusUnprocessableEntity, "date must be a YYYY-MM-DD date"},
		{"long description", `{"amount":"1","description":"` + strings.Repeat("x", 201) + `"}`, &expenseRequest{}, http.StatusUnprocessableEntity, "description must be at most 200 characters"},
		{"empty chore", ``, &choreRequest{}, http.StatusUnprocessableEntity, "title is required"},
		{"too many points", `{"title":"Dishes","assignedTo":"Asha","dueDate":"2025-07-20","points":51}`, &choreRequest{}, http.StatusUnprocessableEntity, "points must be at most 50"},
		{"long initials", `{"name":"Ravi","initials":"RAVI"}`, &roommateRequest{}, http.StatusUnprocessableEntity, "initials must be at most 3 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := decodeRequest(t, tt.body, tt.dst)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := statusOf(t, err); got != tt.status {
				t.Errorf("status = %d, want %d", got, tt.status)
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("message %q does not contain %q", err.Error(), tt.message)
			}
		})
	}
}

func TestDecodeJSON_BodyTooLarge(t *testing.T) {
	var req expenseRequest
	body := `{"amount":"1","description":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	err := decodeRequest(t, body, &req)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := statusOf(t, err); got != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", got)
	}
}

func TestDecodeJSON_EmptyBodyAllowedForSession(t *testing.T) {
	var req sessionRequest
	if err := decodeRequest(t, "", &req); err != nil {
		t.Fatalf("empty session body: %v", err)
	}
	if req.Owner != "" {
		t.Errorf("Owner = %q", req.Owner)
	}
}

func TestOptionalDate(t *testing.T) {
	if !optionalDate("").IsZero() {
		t.Error("empty string should give the zero date")
	}
	if got := optionalDate("2025-07-20").String(); got != "2025-07-20" {
		t.Errorf("optionalDate = %q", got)
	}
}
