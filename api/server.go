// Package api provides the HTTP REST API server for filingwatch.
//
// It exposes endpoints for ticker resolution, entity snapshots, recent
// filings, filing text, the current-filings feed, and WebSocket streaming
// of new filings.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/seenimoa/filingwatch/internal/config"
	"github.com/seenimoa/filingwatch/internal/edgar"
	"github.com/seenimoa/filingwatch/internal/fetch"
	"github.com/seenimoa/filingwatch/internal/logging"
	"github.com/seenimoa/filingwatch/internal/stream"
	"github.com/seenimoa/filingwatch/pkg/models"
	"github.com/seenimoa/filingwatch/pkg/utils"
)

// Version is reported by the health endpoint. Set by the entrypoint.
var Version = "dev"

const (
	requestTimeout  = 120 * time.Second
	maxFilingsLimit = 1000
)

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	client  *edgar.Client
	poller  *stream.Poller
	logger  *slog.Logger
	started time.Time
	streams atomic.Int64
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, client *edgar.Client, poller *stream.Poller, logger *slog.Logger) *Server {
	if cfg == nil {
		cfg = config.Defaults()
	}
	srv := &Server{
		cfg:     cfg,
		client:  client,
		poller:  poller,
		logger:  logging.OrDiscard(logger),
		started: time.Now(),
	}
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down api")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Long-lived streams are exempt from the request timeout.
		r.Get("/ws/filings", s.handleFilingStream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))

			r.Get("/health", s.handleHealth)
			r.Get("/config", s.handleGetConfig)

			r.Get("/resolve/{ticker}", s.handleResolve)

			r.Get("/entities/{cik}", s.handleEntity)
			r.Get("/entities/{cik}/filings", s.handleFilings)
			r.Get("/entities/{cik}/filings/{accession}/text", s.handleFilingText)

			r.Get("/feed/current", s.handleCurrentFeed)
		})
	})

	return r
}

// requestLogger logs each request through slog.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"took", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthInfo is returned by GET /health.
type HealthInfo struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	Uptime         string `json:"uptime"`
	TickersLoaded  bool   `json:"tickers_loaded"`
	CachedEntities int    `json:"cached_entities"`
	ActiveStreams  int64  `json:"active_streams"`
	FilingWindow   string `json:"filing_window"`
	TimeET         string `json:"time_et"`
}

// Resolution is returned by GET /api/v1/resolve/{ticker}.
type Resolution struct {
	Ticker string `json:"ticker"`
	CIK    string `json:"cik"`
}

// EntitySummary is the header of a submissions snapshot.
type EntitySummary struct {
	CIK                  string   `json:"cik"`
	Name                 string   `json:"name"`
	EntityType           string   `json:"entity_type,omitempty"`
	SIC                  string   `json:"sic,omitempty"`
	SICDescription       string   `json:"sic_description,omitempty"`
	Tickers              []string `json:"tickers"`
	Exchanges            []string `json:"exchanges,omitempty"`
	StateOfIncorporation string   `json:"state_of_incorporation,omitempty"`
	FiscalYearEnd        string   `json:"fiscal_year_end,omitempty"`
	RecentFilings        int      `json:"recent_filings"`
	OlderPages           int      `json:"older_pages"`
}

// Filing is a filing record with its primary-document URL.
type Filing struct {
	models.FilingRecord
	DocumentURL string `json:"document_url,omitempty"`
}

// FilingsResponse is returned by GET /api/v1/entities/{cik}/filings.
type FilingsResponse struct {
	CIK     string   `json:"cik"`
	Forms   []string `json:"forms,omitempty"`
	Count   int      `json:"count"`
	Filings []Filing `json:"filings"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := utils.NowET()
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: HealthInfo{
			Status:         "ok",
			Version:        Version,
			Uptime:         time.Since(s.started).Round(time.Second).String(),
			TickersLoaded:  s.client.Tickers().Loaded(),
			CachedEntities: s.client.Submissions().Len(),
			ActiveStreams:  s.streams.Load(),
			FilingWindow:   utils.FilingWindowStatus(now),
			TimeET:         utils.FormatDateTimeET(now),
		},
	})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	ticker := utils.NormalizeTicker(chi.URLParam(r, "ticker"))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	cik, err := s.client.ResolveEntity(r.Context(), ticker)
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: Resolution{Ticker: ticker, CIK: cik}})
}

func (s *Server) handleEntity(w http.ResponseWriter, r *http.Request) {
	cik, err := s.client.ResolveIdentifier(r.Context(), chi.URLParam(r, "cik"))
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}

	ttl := s.cfg.Cache.SnapshotTTL()
	if v := r.URL.Query().Get("ttl"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec < 0 {
			writeError(w, http.StatusBadRequest, "ttl must be a non-negative number of seconds")
			return
		}
		ttl = time.Duration(sec) * time.Second
		if sec == 0 {
			// ttl=0 asks for a fresh fetch; a zero duration would select the default.
			ttl = time.Nanosecond
		}
	}

	snap, err := s.client.GetSnapshot(r.Context(), cik, ttl)
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: summarize(snap)})
}

func (s *Server) handleFilings(w http.ResponseWriter, r *http.Request) {
	cik, err := s.client.ResolveIdentifier(r.Context(), chi.URLParam(r, "cik"))
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}

	q := r.URL.Query()
	forms := edgar.ParseForms(q.Get("forms"))
	limit := 0
	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 || limit > maxFilingsLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 0 and 1000")
			return
		}
	}

	records, err := s.client.ListFilings(r.Context(), cik, forms, limit)
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}

	filings := make([]Filing, len(records))
	for i, rec := range records {
		filings[i] = Filing{FilingRecord: rec, DocumentURL: s.client.PrimaryDocURL(cik, rec)}
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    FilingsResponse{CIK: cik, Forms: forms, Count: len(filings), Filings: filings},
	})
}

func (s *Server) handleFilingText(w http.ResponseWriter, r *http.Request) {
	cik, err := s.client.ResolveIdentifier(r.Context(), chi.URLParam(r, "cik"))
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	accession := utils.FormatAccession(chi.URLParam(r, "accession"))

	doc, err := s.client.DocumentText(r.Context(), cik, accession)
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: doc})
}

func (s *Server) handleCurrentFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 40
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	entries, err := s.client.CurrentFilings(r.Context(), strings.TrimSpace(q.Get("form")), limit)
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: entries})
}

// ============================================================
// Helpers
// ============================================================

func summarize(snap *models.SubmissionsSnapshot) EntitySummary {
	return EntitySummary{
		CIK:                  snap.CIK,
		Name:                 snap.Name,
		EntityType:           snap.EntityType,
		SIC:                  snap.SIC,
		SICDescription:       snap.SICDescription,
		Tickers:              snap.Tickers,
		Exchanges:            snap.Exchanges,
		StateOfIncorporation: snap.StateOfIncorporation,
		FiscalYearEnd:        snap.FiscalYearEnd,
		RecentFilings:        snap.Filings.Recent.Len(),
		OlderPages:           len(snap.Filings.Files),
	}
}

// statusFor maps a domain error to an HTTP status.
func statusFor(err error) int {
	var (
		unknown  *edgar.UnknownTickerError
		invalid  *edgar.InvalidIdentifierError
		notFound *edgar.FilingNotFoundError
		upstream *edgar.UpstreamError
		exhaust  *fetch.TransientError
	)
	switch {
	case errors.As(err, &unknown), errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case fetch.IsPrecondition(err):
		return http.StatusInternalServerError
	case errors.As(err, &upstream), errors.As(err, &exhaust):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeUpstreamError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", "status", status, "error", err)
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Warn("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
