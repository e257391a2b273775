package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/davidschlachter/lychnos/internal/firefly"
	"github.com/davidschlachter/lychnos/internal/logging"
	"github.com/davidschlachter/lychnos/internal/pipeline"
	"github.com/davidschlachter/lychnos/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

// Handler returns the daemon's HTTP routes.
func (s *Service) Handler() http.Handler {
	router := chi.NewRouter()

	router.Use(logging.Middleware(&s.log))
	router.Use(middleware.Recoverer)

	router.Get("/healthz", s.handleHealth)

	router.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/events", s.handleEvents)
		r.Get("/stream", s.handleStream)
	})

	router.Route("/api", func(r chi.Router) {
		r.Get("/reports/categorysummary", s.handleCategorySummaries)
		r.Get("/reports/categorysummary/{id}", s.handleCategorySummary)
		r.Get("/bigpicture", s.handleBigPicture)
		r.Post("/cache/invalidate", s.handleInvalidate)
		r.Get("/transactions", s.handleListTransactions)
		r.Post("/transactions", s.handleCreateTransaction)
	})

	return router
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, r, http.StatusOK, events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	current := Event{
		Type:      "snapshot",
		Timestamp: s.now(),
		Snapshot:  s.snapshotStatus().Summary,
	}
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

// handleCategorySummaries serves the evaluated rows of a budget. The optional
// budget query parameter selects a budget; without it the current one is used.
func (s *Service) handleCategorySummaries(w http.ResponseWriter, r *http.Request) {
	budgetID := s.cfg.BudgetID
	if raw := r.URL.Query().Get("budget"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 0 {
			writeError(w, r, fmt.Errorf("invalid budget %q: %w", raw, errBadRequest))
			return
		}
		budgetID = id
	}

	ov, err := s.reports.Overview(r.Context(), budgetID, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, ov)
}

func (s *Service) handleCategorySummary(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, fmt.Errorf("invalid category budget %q: %w", raw, errBadRequest))
		return
	}

	d, err := s.reports.CategoryDetail(r.Context(), id, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, d)
}

func (s *Service) handleBigPicture(w http.ResponseWriter, r *http.Request) {
	bp, err := s.reports.BigPicture(r.Context(), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, bp)
}

// handleInvalidate drops cached totals for one category, or everything when
// no category is given.
func (s *Service) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	raw := r.URL.Query().Get("category")
	if raw == "" {
		s.cache.Reset()
		w.WriteHeader(http.StatusNoContent)
		return
	}

	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		writeError(w, r, fmt.Errorf("invalid category %q: %w", raw, errBadRequest))
		return
	}
	s.cache.Invalidate(id, s.now())
	zerolog.Ctx(r.Context()).Info().Int("category", id).Msg("cache invalidated")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Ledger == nil {
		writeError(w, r, errNoLedger)
		return
	}
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, r, fmt.Errorf("invalid page %q: %w", raw, errBadRequest))
			return
		}
		page = n
	}

	txns, err := s.cfg.Ledger.ListTransactions(r.Context(), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, txns)
}

// handleCreateTransaction records a transaction and drops the cached totals
// it changes.
func (s *Service) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Ledger == nil {
		writeError(w, r, errNoLedger)
		return
	}

	var txn firefly.Transaction
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&txn); err != nil {
		writeError(w, r, fmt.Errorf("decoding transaction: %v: %w", err, errBadRequest))
		return
	}
	if txn.Date.IsZero() {
		txn.Date = s.now()
	}

	group, err := s.cfg.Ledger.CreateTransaction(r.Context(), txn)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if s.cache != nil {
		s.cache.Invalidate(txn.Category(), txn.Date)
	}
	zerolog.Ctx(r.Context()).Info().Str("id", group.ID).Int("category", txn.Category()).Msg("transaction created")
	writeJSON(w, r, http.StatusCreated, group)
}

const maxRequestBody = 64 << 10

var (
	errBadRequest = errors.New("bad request")
	errNoLedger   = errors.New("transactions are not available")
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, firefly.ErrRejected),
		errors.Is(err, firefly.ErrUnknownTransactionType):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errNoLedger):
		return http.StatusServiceUnavailable
	case errors.Is(err, pipeline.ErrNoCurrentBudget),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, pipeline.ErrUnknownCategory):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrUnsupportedInterval):
		return http.StatusNotImplemented
	case errors.Is(err, firefly.ErrRateLimited):
		return http.StatusServiceUnavailable
	case errors.Is(err, firefly.ErrUnauthorized),
		errors.Is(err, firefly.ErrNotFound):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	logger := zerolog.Ctx(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg("request failed")
	} else {
		logger.Debug().Err(err).Int("status", status).Msg("request rejected")
	}
	writeJSON(w, r, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}

