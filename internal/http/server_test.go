package http

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"roomfund/internal/metrics"
	"roomfund/internal/services"
	"roomfund/internal/storage"
	"roomfund/internal/storage/memory"
)

var testNow = time.Date(2025, 7, 15, 10, 30, 0, 0, time.UTC)

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	store, err := memory.New("")
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	household := services.NewHousehold(storage.NewRecords(store),
		services.WithClock(func() time.Time { return testNow }),
		services.WithLocation(time.UTC),
	)
	s := NewServer(":0", household, opts)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	r.Header.Set("User-Agent", "roomfund-test")
	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, r)
	return w
}

func dataOf[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var env struct {
		Data T `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return env.Data
}

const base = "/api/accounts/flat-1"

func TestServer_Health(t *testing.T) {
	s := newTestServer(t, Options{})

	w := do(t, s, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("healthz = %d", w.Code)
	}
	w = do(t, s, http.MethodGet, "/readyz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("readyz = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"record_store":"ok"`) {
		t.Errorf("readyz body = %s", w.Body.String())
	}
}

func TestServer_SecurityHeadersAndRequestID(t *testing.T) {
	s := newTestServer(t, Options{})
	w := do(t, s, http.MethodGet, "/healthz", "")

	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff header")
	}
	if w.Header().Get("Cache-Control") == "" {
		t.Error("missing Cache-Control header")
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestServer_SessionCreatesAdmin(t *testing.T) {
	s := newTestServer(t, Options{})

	w := do(t, s, http.MethodPost, base+"/session", `{"owner":"Asha Rao"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("session = %d: %s", w.Code, w.Body.String())
	}
	got := dataOf[struct {
		RolledOver bool          `json:"rolledOver"`
		Dashboard  dashboardView `json:"dashboard"`
	}](t, w)
	if got.RolledOver {
		t.Error("fresh account should not roll over")
	}
	if len(got.Dashboard.Roommates) != 1 || got.Dashboard.Roommates[0].Name != "Asha Rao" {
		t.Errorf("roommates = %+v", got.Dashboard.Roommates)
	}
	if got.Dashboard.Period != "2025-07" {
		t.Errorf("period = %q", got.Dashboard.Period)
	}
}

func TestServer_ExpenseLifecycle(t *testing.T) {
	s := newTestServer(t, Options{})

	w := do(t, s, http.MethodPost, base+"/expenses", `{"amount":"250.5","description":"Groceries","spentBy":"Asha","category":"Food"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", w.Code, w.Body.String())
	}
	if trig := w.Header().Get("HX-Trigger"); !strings.Contains(trig, "expenses:changed") {
		t.Errorf("HX-Trigger = %q", trig)
	}
	created := dataOf[expenseView](t, w)
	if created.Amount != 250.5 || created.Date != "2025-07-15" {
		t.Errorf("created = %+v", created)
	}

	w = do(t, s, http.MethodGet, base+"/expenses", "")
	list := dataOf[[]expenseView](t, w)
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("list = %+v", list)
	}

	w = do(t, s, http.MethodDelete, base+"/expenses/"+created.ID, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("204 body = %q", w.Body.String())
	}

	w = do(t, s, http.MethodDelete, base+"/expenses/"+created.ID, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestServer_ErrorMapping(t *testing.T) {
	s := newTestServer(t, Options{})
	do(t, s, http.MethodPost, base+"/session", `{"owner":"Asha"}`)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"invalid account", http.MethodGet, "/api/accounts/bad.id/expenses", "", http.StatusBadRequest},
		{"malformed json", http.MethodPost, base + "/expenses", `{`, http.StatusBadRequest},
		{"zero expense", http.MethodPost, base + "/expenses", `{"amount":"0"}`, http.StatusUnprocessableEntity},
		{"oversized expense", http.MethodPost, base + "/expenses", `{"amount":"92233720368547758"}`, http.StatusUnprocessableEntity},
		{"oversized budget", http.MethodPut, base + "/budget", `{"amount":1e13}`, http.StatusUnprocessableEntity},
		{"missing chore title", http.MethodPost, base + "/chores", `{"assignedTo":"Asha","dueDate":"2025-07-20"}`, http.StatusUnprocessableEntity},
		{"unknown chore", http.MethodPost, base + "/chores/nope/complete", "", http.StatusNotFound},
		{"duplicate roommate", http.MethodPost, base + "/roommates", `{"name":"asha"}`, http.StatusConflict},
		{"unknown route", http.MethodGet, "/api/nothing", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, tt.method, tt.path, tt.body)
			if w.Code != tt.status {
				t.Errorf("%s %s = %d, want %d: %s", tt.method, tt.path, w.Code, tt.status, w.Body.String())
			}
		})
	}
}

func TestServer_ErrorNotification(t *testing.T) {
	s := newTestServer(t, Options{})
	w := do(t, s, http.MethodPost, base+"/expenses", `{"amount":"0"}`)

	var trig map[string]map[string]any
	if err := json.Unmarshal([]byte(w.Header().Get("HX-Trigger")), &trig); err != nil {
		t.Fatalf("decode HX-Trigger: %v", err)
	}
	n := trig["show-notification"]
	if n["type"] != "error" || n["message"] != "Amount must be greater than zero" {
		t.Errorf("notification = %v", n)
	}
}

func TestServer_RoommateAdminProtected(t *testing.T) {
	s := newTestServer(t, Options{})
	w := do(t, s, http.MethodPost, base+"/session", `{"owner":"Asha"}`)
	admin := dataOf[struct {
		Dashboard dashboardView `json:"dashboard"`
	}](t, w).Dashboard.Roommates[0]

	w = do(t, s, http.MethodDelete, base+"/roommates/"+admin.ID, "")
	if w.Code != http.StatusConflict {
		t.Fatalf("delete admin = %d, want 409", w.Code)
	}

	w = do(t, s, http.MethodPost, base+"/roommates", `{"name":"Ravi Kumar"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", w.Code, w.Body.String())
	}
	ravi := dataOf[roommateView](t, w)
	if ravi.Initials != "RK" {
		t.Errorf("initials = %q", ravi.Initials)
	}
	w = do(t, s, http.MethodDelete, base+"/roommates/"+ravi.ID, "")
	if w.Code != http.StatusNoContent {
		t.Errorf("delete = %d", w.Code)
	}
}

func TestServer_BudgetAndChores(t *testing.T) {
	s := newTestServer(t, Options{})

	w := do(t, s, http.MethodGet, base+"/budget", "")
	if w.Code != http.StatusOK || dataOf[*budgetView](t, w) != nil {
		t.Fatalf("empty budget = %d: %s", w.Code, w.Body.String())
	}

	w = do(t, s, http.MethodPut, base+"/budget", `{"amount":15000}`)
	if w.Code != http.StatusOK {
		t.Fatalf("set budget = %d: %s", w.Code, w.Body.String())
	}
	b := dataOf[*budgetView](t, w)
	if b == nil || b.TotalAmount != 15000 || b.Month != "2025-07" {
		t.Errorf("budget = %+v", b)
	}
	if !strings.Contains(w.Header().Get("HX-Trigger"), services.MsgBudgetUpdated) {
		t.Errorf("HX-Trigger = %q", w.Header().Get("HX-Trigger"))
	}

	w = do(t, s, http.MethodPost, base+"/chores", `{"title":"Dishes","assignedTo":"Asha","dueDate":"2025-07-20"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create chore = %d: %s", w.Code, w.Body.String())
	}
	chore := dataOf[choreView](t, w)
	if chore.Points != 5 || chore.Emoji != "🧹" {
		t.Errorf("chore defaults = %+v", chore)
	}

	w = do(t, s, http.MethodPost, base+"/chores/"+chore.ID+"/complete", "")
	if w.Code != http.StatusOK || !dataOf[choreView](t, w).Completed {
		t.Fatalf("complete = %d: %s", w.Code, w.Body.String())
	}

	w = do(t, s, http.MethodDelete, base+"/budget", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("reset budget = %d", w.Code)
	}

	w = do(t, s, http.MethodDelete, base+"/data", "")
	if w.Code != http.StatusOK {
		t.Fatalf("clear = %d", w.Code)
	}
	if got := dataOf[map[string]int](t, w)["cleared"]; got != 1 {
		t.Errorf("cleared = %d, want 1", got)
	}
}

func TestServer_Report(t *testing.T) {
	s := newTestServer(t, Options{})
	do(t, s, http.MethodPost, base+"/expenses", `{"amount":"100"}`)

	w := do(t, s, http.MethodGet, base+"/report", "")
	if w.Code != http.StatusOK {
		t.Fatalf("report = %d", w.Code)
	}
	want := `attachment; filename="expense-report-2025-07-15.json"`
	if got := w.Header().Get("Content-Disposition"); got != want {
		t.Errorf("Content-Disposition = %q, want %q", got, want)
	}
	if !json.Valid(w.Body.Bytes()) {
		t.Errorf("report is not JSON: %s", w.Body.String())
	}
}

func TestServer_ChoreTemplates(t *testing.T) {
	s := newTestServer(t, Options{})
	w := do(t, s, http.MethodGet, "/api/chore-templates", "")
	if got := dataOf[[]services.ChoreTemplate](t, w); len(got) != len(services.ChoreTemplates()) {
		t.Errorf("templates = %d", len(got))
	}
}

func TestServer_RateLimitWrites(t *testing.T) {
	s := newTestServer(t, Options{RateLimitPerMinute: 2})

	for i := 0; i < 2; i++ {
		if w := do(t, s, http.MethodPost, base+"/expenses", `{"amount":"1"}`); w.Code != http.StatusCreated {
			t.Fatalf("write %d = %d", i, w.Code)
		}
	}
	w := do(t, s, http.MethodPost, base+"/expenses", `{"amount":"1"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third write = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if w := do(t, s, http.MethodGet, base+"/expenses", ""); w.Code != http.StatusOK {
		t.Errorf("reads should stay exempt, got %d", w.Code)
	}
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer(t, Options{Metrics: metrics.New()})
	do(t, s, http.MethodGet, base+"/expenses", "")

	w := do(t, s, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "roomfund_http_requests_total") {
		t.Error("request counter not exported")
	}
}

func TestServer_EventsRejectsUnknownKind(t *testing.T) {
	s := newTestServer(t, Options{})
	w := do(t, s, http.MethodGet, base+"/events?kind=pets", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("events = %d, want 400", w.Code)
	}
}

func TestServer_EventsStreamSnapshots(t *testing.T) {
	s := newTestServer(t, Options{Heartbeat: time.Hour})
	ts := httptest.NewServer(s.Handler)
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+base+"/events?kind=expenses", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	events := make(chan snapshotView, 4)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			data, ok := strings.CutPrefix(sc.Text(), "data: ")
			if !ok {
				continue
			}
			var v snapshotView
			if json.Unmarshal([]byte(data), &v) == nil {
				events <- v
			}
		}
		close(events)
	}()

	next := func() snapshotView {
		t.Helper()
		select {
		case v, ok := <-events:
			if !ok {
				t.Fatal("stream closed")
			}
			return v
		case <-ctx.Done():
			t.Fatal("timed out waiting for snapshot")
		}
		return snapshotView{}
	}

	if first := next(); first.Kind != storage.KindExpenses || len(first.Records) != 0 {
		t.Fatalf("first snapshot = %+v", first)
	}

	post, _ := http.NewRequest(http.MethodPost, ts.URL+base+"/expenses", strings.NewReader(`{"amount":"42"}`))
	post.Header.Set("Content-Type", "application/json")
	pr, err := http.DefaultClient.Do(post)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	pr.Body.Close()

	if got := next(); len(got.Records) != 1 {
		t.Errorf("snapshot after write = %+v", got)
	}
}
