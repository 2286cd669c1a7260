package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Format: FormatJSON, Component: ComponentStorage, Output: &buf})

	l.Info("hello", FieldAccount, "acc-1")
	l.WithComponent(ComponentAMQP).Debug("debugging")

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0][FieldComponent] != ComponentStorage || lines[0][FieldAccount] != "acc-1" {
		t.Fatalf("first line: %v", lines[0])
	}
	if lines[1][FieldComponent] != ComponentAMQP {
		t.Fatalf("second line: %v", lines[1])
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewHandlerPretty(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: FormatPretty, Component: ComponentApp, Output: &buf})
	l.Info("pretty output")
	if !strings.Contains(buf.String(), "pretty output") {
		t.Fatalf("missing message in %q", buf.String())
	}
}

func TestMiddlewareStoresRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Level: slog.LevelInfo, Format: FormatJSON, Component: ComponentHTTP, Output: &buf})

	h := Middleware(base, func(*http.Request) string { return "req_1" })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info("inside handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0][FieldRequestID] != "req_1" {
		t.Fatalf("unexpected output: %v", lines)
	}
}

func TestFromContextFallback(t *testing.T) {
	if l := FromContext(context.Background()); l.Component() != "unknown" {
		t.Fatalf("component = %s", l.Component())
	}
}

func TestStructuredLoggerError(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: FormatJSON, Component: ComponentHousehold, Output: &buf}))
	sl.LogError(context.Background(), "write failed", errors.New("disk full"), ErrorTypeDatabase, OpCreate, NewFields().WithRecord("acc", "expenses", "e1"))

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	got := lines[0]
	if got[FieldError] != "disk full" || got[FieldErrorType] != ErrorTypeDatabase || got[FieldDocumentID] != "e1" {
		t.Fatalf("unexpected fields: %v", got)
	}
}

func TestStructuredLoggerRolloverAndWrites(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelInfo, Format: FormatJSON, Component: ComponentHousehold, Output: &buf}))
	sl.LogRecordWrite(context.Background(), "put", "acc", "expenses", "e1")
	sl.LogRollover(context.Background(), "acc", "2025-06", "2025-07", 4)

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("record writes log at debug, expected only the rollover line, got %d", len(lines))
	}
	got := lines[0]
	if got[FieldPeriod] != "2025-07" || got["from_period"] != "2025-06" || got["records_cleared"] != float64(4) {
		t.Fatalf("unexpected fields: %v", got)
	}
}
