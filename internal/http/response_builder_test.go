package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"roomfund/internal/services"
)

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var body map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		Status(http.StatusCreated).
		JSON(map[string]string{"id": "x1"}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := decodeEnvelope(t, w)
	if string(body["data"]) != `{"id":"x1"}` {
		t.Errorf("data = %s", body["data"])
	}
	if _, ok := body["notifications"]; ok {
		t.Error("notifications must be omitted when empty")
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Error("HX-Trigger must not be set without triggers")
	}
}

func TestResponseBuilder_Notifications(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		TriggerRefresh("budget").
		NotifySuccess("Budget updated").
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	for _, part := range []string{`"budget:changed"`, `"show-notification"`, `"type":"success"`, `"message":"Budget updated"`, `"duration":3000`} {
		if !strings.Contains(trigger, part) {
			t.Errorf("HX-Trigger missing %q: %s", part, trigger)
		}
	}

	body := decodeEnvelope(t, w)
	if !strings.Contains(string(body["notifications"]), `"message":"Budget updated"`) {
		t.Errorf("notifications = %s", body["notifications"])
	}
}

func TestResponseBuilder_MultipleNotifications(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		Notify(
			services.Notification{Level: services.LevelWarning, Message: "one"},
			services.Notification{Level: services.LevelInfo, Message: "two"},
		).
		Write(w)

	var triggers map[string]json.RawMessage
	if err := json.Unmarshal([]byte(w.Header().Get("HX-Trigger")), &triggers); err != nil {
		t.Fatal(err)
	}
	var list []map[string]any
	if err := json.Unmarshal(triggers["show-notification"], &list); err != nil {
		t.Fatalf("show-notification should be a list: %v", err)
	}
	if len(list) != 2 || list[0]["duration"] != float64(4000) {
		t.Errorf("list = %v", list)
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		builder    *ResponseBuilder
		wantStatus int
	}{
		{"bad request", BadRequestError("Invalid input"), http.StatusBadRequest},
		{"unprocessable entity", UnprocessableEntityError("Validation failed"), http.StatusUnprocessableEntity},
		{"internal server error", InternalServerError("Something broke"), http.StatusInternalServerError},
		{"not found", NotFoundError("Resource not found"), http.StatusNotFound},
		{"conflict", ConflictError("Already there"), http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
			body := decodeEnvelope(t, w)
			if _, ok := body["error"]; !ok {
				t.Errorf("error missing from %s", w.Body.String())
			}
			if !strings.Contains(w.Header().Get("HX-Trigger"), `"type":"error"`) {
				t.Errorf("HX-Trigger = %s", w.Header().Get("HX-Trigger"))
			}
		})
	}
}

func TestResponseBuilder_NoContent(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().Status(http.StatusNoContent).Header("X-Custom", "value").Write(w)

	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Errorf("status %d body %q", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Custom") != "value" {
		t.Error("custom header not set")
	}
}
