// Package http exposes the household service as a JSON API.
//
// Responses are built with ResponseBuilder: a fluent API that writes the JSON
// envelope and mirrors user notifications into the HX-Trigger header, so
// htmx front ends can keep listening for show-notification events.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"roomfund/internal/services"
)

const showNotification = "show-notification"

// Notification display durations in milliseconds.
var notificationDurations = map[services.NotificationLevel]int{
	services.LevelSuccess: 3000,
	services.LevelInfo:    3000,
	services.LevelWarning: 4000,
	services.LevelError:   5000,
}

// envelope is the body of every JSON response.
type envelope struct {
	Data          any                     `json:"data,omitempty"`
	Error         string                  `json:"error,omitempty"`
	Notifications []services.Notification `json:"notifications,omitempty"`
}

type ResponseBuilder struct {
	triggers      map[string]any
	notifications []services.Notification
	statusCode    int
	headers       map[string]string
	data          any
	errMsg        string
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named event with optional data to the HX-Trigger header.
func (b *ResponseBuilder) Trigger(name string, data any) *ResponseBuilder {
	b.triggers[name] = data
	return b
}

// TriggerRefresh asks listeners of kind to reload, e.g. "expenses:changed".
func (b *ResponseBuilder) TriggerRefresh(kind string) *ResponseBuilder {
	return b.Trigger(kind+":changed", struct{}{})
}

// Notify adds user feedback to both the body and the HX-Trigger header.
func (b *ResponseBuilder) Notify(n ...services.Notification) *ResponseBuilder {
	b.notifications = append(b.notifications, n...)
	return b
}

func (b *ResponseBuilder) NotifySuccess(message string) *ResponseBuilder {
	return b.Notify(services.Notification{Level: services.LevelSuccess, Message: message})
}

func (b *ResponseBuilder) NotifyError(message string) *ResponseBuilder {
	return b.Notify(services.Notification{Level: services.LevelError, Message: message})
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the data member of the envelope.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.data = v
	return b
}

// Error sets the error member of the envelope and an error notification.
func (b *ResponseBuilder) Error(status int, message string) *ResponseBuilder {
	b.statusCode = status
	b.errMsg = message
	return b.NotifyError(message)
}

func notificationTrigger(n services.Notification) map[string]any {
	return map[string]any{
		"type":     string(n.Level),
		"message":  n.Message,
		"duration": notificationDurations[n.Level],
	}
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	switch len(b.notifications) {
	case 0:
	case 1:
		b.triggers[showNotification] = notificationTrigger(b.notifications[0])
	default:
		all := make([]map[string]any, len(b.notifications))
		for i, n := range b.notifications {
			all[i] = notificationTrigger(n)
		}
		b.triggers[showNotification] = all
	}

	if len(b.triggers) > 0 {
		if triggerJSON, err := json.Marshal(b.triggers); err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if b.statusCode == http.StatusNoContent {
		return
	}
	err := json.NewEncoder(w).Encode(envelope{
		Data:          b.data,
		Error:         b.errMsg,
		Notifications: b.notifications,
	})
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// ErrorResponse creates a standard JSON error response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Error(statusCode, message)
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnprocessableEntityError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func ConflictError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusConflict, message)
}
