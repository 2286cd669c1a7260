package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	applog "roomfund/internal/log"
	"roomfund/internal/metrics"
	"roomfund/internal/middleware/ratelimit"
	"roomfund/internal/middleware/security"
	"roomfund/internal/middleware/trace"
	"roomfund/internal/services"
)

const defaultHeartbeat = 25 * time.Second

// Options tunes the server. The zero value is usable.
type Options struct {
	// Metrics enables /metrics and request instrumentation.
	Metrics            *metrics.Metrics
	RateLimitPerMinute int
	Logger             *applog.Logger
	// Heartbeat is the keep-alive interval of event streams.
	Heartbeat time.Duration
}

type Server struct {
	http.Server
	household *services.Household
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	metrics   *metrics.Metrics
	logger    *applog.Logger
	heartbeat time.Duration
	started   time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, household *services.Household, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.Config{Component: applog.ComponentHTTP, Handler: slog.Default().Handler()})
	}
	heartbeat := opts.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	rlConfig := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		rlConfig.RequestsPerMinute = opts.RateLimitPerMinute
	}

	s := &Server{
		household: household,
		limiter:   ratelimit.NewLimiter(rlConfig),
		detector:  security.NewDetector(logger.WithComponent(applog.ComponentSecurity).Logger),
		metrics:   opts.Metrics,
		logger:    logger,
		heartbeat: heartbeat,
		started:   time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	mux.HandleFunc("GET /api/chore-templates", s.handleChoreTemplates)

	const acct = "/api/accounts/{account}"
	mux.HandleFunc("POST "+acct+"/session", s.handleStartSession)
	mux.HandleFunc("GET "+acct+"/dashboard", s.handleDashboard)
	mux.HandleFunc("GET "+acct+"/report", s.handleReport)
	mux.HandleFunc("GET "+acct+"/expenses", s.handleListExpenses)
	mux.HandleFunc("POST "+acct+"/expenses", s.handleCreateExpense)
	mux.HandleFunc("DELETE "+acct+"/expenses/{id}", s.handleDeleteExpense)
	mux.HandleFunc("GET "+acct+"/budget", s.handleGetBudget)
	mux.HandleFunc("PUT "+acct+"/budget", s.handleSetBudget)
	mux.HandleFunc("DELETE "+acct+"/budget", s.handleResetBudget)
	mux.HandleFunc("GET "+acct+"/chores", s.handleListChores)
	mux.HandleFunc("POST "+acct+"/chores", s.handleCreateChore)
	mux.HandleFunc("POST "+acct+"/chores/{id}/complete", s.handleCompleteChore)
	mux.HandleFunc("DELETE "+acct+"/chores/{id}", s.handleDeleteChore)
	mux.HandleFunc("GET "+acct+"/roommates", s.handleListRoommates)
	mux.HandleFunc("POST "+acct+"/roommates", s.handleCreateRoommate)
	mux.HandleFunc("DELETE "+acct+"/roommates/{id}", s.handleDeleteRoommate)
	mux.HandleFunc("DELETE "+acct+"/data", s.handleClearData)
	mux.HandleFunc("GET "+acct+"/events", s.handleEvents)

	var h http.Handler = mux
	if s.metrics != nil {
		h = s.metrics.Middleware(h)
	}
	h = s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please try again shortly.").Write(w)
	})(h)
	h = security.NoStore(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = applog.Middleware(logger, func(r *http.Request) string { return trace.GetRequestID(r.Context()) })(h)
	h = trace.NewMiddleware(s.detector.ExtractClientIP, logger.Logger).Middleware(h)
	h = s.detector.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Shutdown stops background routines and gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
