// Package daemon provides the long-running budget pacing poller and its
// HTTP API.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/davidschlachter/lychnos/internal/firefly"
	"github.com/davidschlachter/lychnos/internal/pacing"
	"github.com/davidschlachter/lychnos/internal/pipeline"
)

// Reporter produces the evaluated reports served by the daemon.
type Reporter interface {
	Overview(ctx context.Context, budgetID int64, now time.Time) (pipeline.Overview, error)
	CategoryDetail(ctx context.Context, targetID int64, now time.Time) (pipeline.CategoryDetail, error)
	BigPicture(ctx context.Context, now time.Time) (pipeline.BigPicture, error)
}

// Cache is the upstream request cache the daemon refreshes between polls.
type Cache interface {
	Reset()
	Invalidate(categoryID int, now time.Time)
}

// Ledger lists and records Firefly transactions.
type Ledger interface {
	ListTransactions(ctx context.Context, page int) (firefly.TransactionPage, error)
	CreateTransaction(ctx context.Context, t firefly.Transaction) (firefly.TransactionGroup, error)
}

// Config controls the daemon runtime behavior.
type Config struct {
	BudgetID     int64 // 0 follows the budget covering the current time
	Interval     time.Duration
	Addr         string
	EventsBuffer int

	// Warm, when set, runs after the cache is reset at the start of a poll.
	Warm func(ctx context.Context, now time.Time) error

	// Ledger, when set, enables the transaction endpoints.
	Ledger Ledger
}

// Snapshot is a compact pacing state for status/event payloads.
type Snapshot struct {
	At          time.Time `json:"at"`
	BudgetID    int64     `json:"budget_id"`
	Elapsed     float64   `json:"elapsed"`
	Categories  int       `json:"categories"`
	OnTrack     int       `json:"on_track"`
	Caution     int       `json:"caution"`
	Danger      int       `json:"danger"`
	Celebratory int       `json:"celebratory"`
	Target      float64   `json:"target"`
	Actual      float64   `json:"actual"`
}

// Delta captures snapshot deltas between polls.
type Delta struct {
	Categories int     `json:"categories"`
	Caution    int     `json:"caution"`
	Danger     int     `json:"danger"`
	Actual     float64 `json:"actual"`
}

func (d Delta) isZero() bool {
	return d.Categories == 0 &&
		d.Caution == 0 &&
		d.Danger == 0 &&
		d.Actual == 0
}

// Event is emitted whenever the pacing snapshot changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	PollIntervalSec int       `json:"poll_interval_sec"`
	PollCount       int64     `json:"poll_count"`
	BudgetID        int64     `json:"budget_id,omitempty"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg     Config
	reports Reporter
	cache   Cache
	log     zerolog.Logger
	now     func() time.Time

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	lastError   string
	hasSnapshot bool
	snapshot    Snapshot
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service. cache may be nil.
func New(cfg Config, reports Reporter, cache Cache, log zerolog.Logger) *Service {
	if cfg.Interval < 10*time.Second {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}

	return &Service{
		cfg:       cfg,
		reports:   reports,
		cache:     cache,
		log:       log,
		now:       time.Now,
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Run starts HTTP endpoints and polling until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Seed initial snapshot so status is useful immediately.
	s.pollOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("shutdown initiated")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				s.log.Error().Err(err).Msg("graceful shutdown failed")
				return server.Close()
			}
			return nil
		case <-ticker.C:
			s.pollOnce(ctx)
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

func (s *Service) pollOnce(ctx context.Context) {
	start := s.now()

	if s.cache != nil {
		s.cache.Reset()
	}
	if s.cfg.Warm != nil {
		if err := s.cfg.Warm(ctx, start); err != nil {
			s.log.Warn().Err(err).Msg("cache warm failed")
		}
	}

	ov, err := s.reports.Overview(ctx, s.cfg.BudgetID, start)
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastPollAt = start
		s.pollCount++
		s.mu.Unlock()
		s.log.Error().Err(err).Msg("poll failed")
		return
	}

	snap := snapshotFromOverview(ov, start)

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap
	s.lastPollAt = start
	s.pollCount++
	s.lastError = ""

	switch {
	case !prevExists || prev.BudgetID != snap.BudgetID:
		s.nextEventID++
		ev = Event{
			ID:        s.nextEventID,
			Type:      "snapshot",
			Timestamp: start,
			Snapshot:  snap,
		}
		publish = true
	default:
		delta := diffSnapshots(prev, snap)
		if !delta.isZero() {
			s.nextEventID++
			ev = Event{
				ID:        s.nextEventID,
				Type:      "pacing_delta",
				Timestamp: start,
				Snapshot:  snap,
				Delta:     delta,
			}
			publish = true
		}
	}
	s.mu.Unlock()

	if publish {
		s.publishEvent(ev)
	}

	s.log.Debug().
		Int64("budget", snap.BudgetID).
		Int("categories", snap.Categories).
		Dur("elapsed", s.now().Sub(start)).
		Msg("poll complete")
}

func snapshotFromOverview(ov pipeline.Overview, at time.Time) Snapshot {
	snap := Snapshot{
		At:         at,
		BudgetID:   ov.Budget.ID,
		Elapsed:    ov.Elapsed,
		Categories: len(ov.Rows),
	}
	for _, row := range ov.Rows {
		snap.Target += row.Amount.InexactFloat64()
		snap.Actual += row.Sum.InexactFloat64()
		switch row.Status() {
		case pacing.StatusCaution:
			snap.Caution++
		case pacing.StatusDanger:
			snap.Danger++
		case pacing.StatusCelebratory:
			snap.Celebratory++
		default:
			snap.OnTrack++
		}
	}
	return snap
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Categories: curr.Categories - prev.Categories,
		Caution:    curr.Caution - prev.Caution,
		Danger:     curr.Danger - prev.Danger,
		Actual:     curr.Actual - prev.Actual,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		BudgetID:        s.cfg.BudgetID,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
