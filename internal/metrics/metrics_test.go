package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"roomfund/internal/storage"
	"roomfund/internal/storage/memory"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestMiddleware_LabelsByPattern(t *testing.T) {
	m := New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/accounts/{account}/expenses", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := m.Middleware(mux)

	for _, account := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/accounts/"+account+"/expenses", nil))
	}

	want := `roomfund_http_requests_total{method="GET",route="GET /api/accounts/{account}/expenses",status="418"} 2`
	if out := scrape(t, m); !strings.Contains(out, want) {
		t.Errorf("metrics output missing %q", want)
	}
}

func TestInstrumentStore(t *testing.T) {
	m := New()
	mem, err := memory.New("")
	if err != nil {
		t.Fatal(err)
	}
	s := m.InstrumentStore(mem)
	defer s.Close()
	ctx := context.Background()

	s.Put(ctx, "flat-1", storage.KindExpenses, storage.Document{ID: "e1", Body: []byte(`{}`)})
	s.List(ctx, "flat-1", storage.KindExpenses)
	s.Delete(ctx, "flat-1", storage.KindExpenses, "missing")

	out := scrape(t, m)
	for _, want := range []string{
		`roomfund_store_operations_total{kind="expenses",op="put",result="ok"} 1`,
		`roomfund_store_operations_total{kind="expenses",op="list",result="ok"} 1`,
		`roomfund_store_operations_total{kind="expenses",op="delete",result="error"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveRollover()
	m.ObservePublish(errors.New("broker down"))
	m.RegisterCacheStats("snapshots", func() (int, int64, int64) { return 3, 10, 2 })

	body := scrape(t, m)
	for _, want := range []string{
		"roomfund_period_rollovers_total 1",
		`roomfund_events_published_total{result="error"} 1`,
		`roomfund_cache_entries{cache="snapshots"} 3`,
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
