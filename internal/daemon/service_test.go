package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/davidschlachter/lychnos/internal/firefly"
	"github.com/davidschlachter/lychnos/internal/model"
	"github.com/davidschlachter/lychnos/internal/pacing"
	"github.com/davidschlachter/lychnos/internal/pipeline"
	"github.com/davidschlachter/lychnos/internal/store"
)

type mockReporter struct {
	mock.Mock
}

func (m *mockReporter) Overview(ctx context.Context, budgetID int64, now time.Time) (pipeline.Overview, error) {
	args := m.Called(ctx, budgetID, now)
	return args.Get(0).(pipeline.Overview), args.Error(1)
}

func (m *mockReporter) CategoryDetail(ctx context.Context, targetID int64, now time.Time) (pipeline.CategoryDetail, error) {
	args := m.Called(ctx, targetID, now)
	return args.Get(0).(pipeline.CategoryDetail), args.Error(1)
}

func (m *mockReporter) BigPicture(ctx context.Context, now time.Time) (pipeline.BigPicture, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(pipeline.BigPicture), args.Error(1)
}

type fakeCache struct {
	resets        int
	invalidated   []int
	invalidatedAt []time.Time
}

func (c *fakeCache) Reset() { c.resets++ }

func (c *fakeCache) Invalidate(categoryID int, now time.Time) {
	c.invalidated = append(c.invalidated, categoryID)
	c.invalidatedAt = append(c.invalidatedAt, now)
}

type fakeLedger struct {
	created []firefly.Transaction
	err     error
}

func (l *fakeLedger) ListTransactions(_ context.Context, page int) (firefly.TransactionPage, error) {
	return firefly.TransactionPage{Page: page, TotalPages: 2}, l.err
}

func (l *fakeLedger) CreateTransaction(_ context.Context, t firefly.Transaction) (firefly.TransactionGroup, error) {
	if l.err != nil {
		return firefly.TransactionGroup{}, l.err
	}
	l.created = append(l.created, t)
	return firefly.TransactionGroup{ID: "42"}, nil
}

var fixedNow = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

func row(name string, target, actual int64, status pacing.Status) pipeline.CategoryPacing {
	return pipeline.CategoryPacing{
		CategorySummary: model.CategorySummary{
			Name:   name,
			Amount: decimal.NewFromInt(target),
			Sum:    decimal.NewFromInt(actual),
		},
		NoTarget:  target == 0,
		Allowance: pacing.Allowance{Status: status},
	}
}

func testOverview(actual int64) pipeline.Overview {
	return pipeline.Overview{
		Budget:  model.Budget{ID: 1},
		Elapsed: 50,
		Rows: []pipeline.CategoryPacing{
			row("Groceries", -6000, actual, pacing.StatusCaution),
			row("Dining", -1200, -900, pacing.StatusDanger),
			row("Salary", 60000, 30000, pacing.StatusOnTrack),
			row("Gifts", 0, -40, pacing.StatusOnTrack),
		},
	}
}

func newTestService(t *testing.T, cfg Config) (*Service, *mockReporter, *fakeCache) {
	t.Helper()
	reports := &mockReporter{}
	cache := &fakeCache{}
	t.Cleanup(func() { reports.AssertExpectations(t) })

	s := New(cfg, reports, cache, zerolog.Nop())
	s.now = func() time.Time { return fixedNow }
	return s, reports, cache
}

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{Categories: 4, Caution: 1, Danger: 0, Actual: -1000}
	curr := Snapshot{Categories: 5, Caution: 0, Danger: 2, Actual: -1250.5}

	delta := diffSnapshots(prev, curr)
	if delta.Categories != 1 {
		t.Fatalf("Categories delta = %d, want 1", delta.Categories)
	}
	if delta.Caution != -1 {
		t.Fatalf("Caution delta = %d, want -1", delta.Caution)
	}
	if delta.Danger != 2 {
		t.Fatalf("Danger delta = %d, want 2", delta.Danger)
	}
	if math.Abs(delta.Actual+250.5) > 1e-9 {
		t.Fatalf("Actual delta = %.2f, want -250.50", delta.Actual)
	}
	if delta.isZero() {
		t.Fatal("delta unexpectedly reported as zero")
	}
}

func TestSnapshotFromOverview(t *testing.T) {
	snap := snapshotFromOverview(testOverview(-2500), fixedNow)

	assert.Equal(t, int64(1), snap.BudgetID)
	assert.Equal(t, 4, snap.Categories)
	assert.Equal(t, 2, snap.OnTrack, "zero target rows count as on track")
	assert.Equal(t, 1, snap.Caution)
	assert.Equal(t, 1, snap.Danger)
	assert.Equal(t, 0, snap.Celebratory)
	assert.InDelta(t, 52800, snap.Target, 1e-9)
	assert.InDelta(t, 26560, snap.Actual, 1e-9)
}

func TestSnapshotFromOverview_CountsBarAndPaceStatus(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(400 * time.Hour)
	now := start.Add(160 * time.Hour) // 40% elapsed

	summary := func(id int, target, actual int64) model.CategorySummary {
		return model.CategorySummary{
			ID:     id,
			Name:   fmt.Sprintf("c%d", id),
			Amount: decimal.NewFromInt(target),
			Sum:    decimal.NewFromInt(actual),
			Start:  start,
			End:    end,
		}
	}
	rows := pipeline.EvaluateAll([]model.CategorySummary{
		summary(1, -1200, -400), // on track
		summary(2, -1200, -500), // pace caution
		summary(3, -1200, -700), // bar caution, pace danger
	}, now)
	require.Equal(t, pacing.StatusCaution, rows[2].Bar.Tier)
	require.Equal(t, pacing.StatusOnTrack, rows[2].Allowance.Status)

	snap := snapshotFromOverview(pipeline.Overview{Budget: model.Budget{ID: 1}, Rows: rows}, now)
	assert.Equal(t, 1, snap.OnTrack)
	assert.Equal(t, 1, snap.Caution)
	assert.Equal(t, 1, snap.Danger)
}

func TestPublishEventRingBuffer(t *testing.T) {
	s, _, _ := newTestService(t, Config{EventsBuffer: 2})

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 2 || s.events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", s.events[0].ID, s.events[1].ID)
	}
}

func TestPollOnce_PublishesSnapshotThenDeltas(t *testing.T) {
	s, reports, cache := newTestService(t, Config{})
	ctx := context.Background()

	warmed := 0
	s.cfg.Warm = func(context.Context, time.Time) error {
		warmed++
		return nil
	}

	reports.On("Overview", mock.Anything, int64(0), fixedNow).Return(testOverview(-2500), nil).Twice()
	reports.On("Overview", mock.Anything, int64(0), fixedNow).Return(testOverview(-2600), nil).Once()

	s.pollOnce(ctx)
	s.pollOnce(ctx) // unchanged, no event
	s.pollOnce(ctx)

	require.Len(t, s.events, 2)
	assert.Equal(t, "snapshot", s.events[0].Type)
	assert.Equal(t, "pacing_delta", s.events[1].Type)
	assert.InDelta(t, -100, s.events[1].Delta.Actual, 1e-9)

	st := s.snapshotStatus()
	assert.Equal(t, int64(3), st.PollCount)
	assert.Empty(t, st.LastError)
	assert.Equal(t, 3, cache.resets)
	assert.Equal(t, 3, warmed)
}

func TestPollOnce_RecordsError(t *testing.T) {
	s, reports, _ := newTestService(t, Config{BudgetID: 9})

	reports.On("Overview", mock.Anything, int64(9), fixedNow).
		Return(pipeline.Overview{}, fmt.Errorf("budget 9: %w", store.ErrNotFound))

	s.pollOnce(context.Background())

	st := s.snapshotStatus()
	assert.Equal(t, int64(1), st.PollCount)
	assert.Contains(t, st.LastError, "budget 9")
	assert.Empty(t, s.events)
}

func TestHandler_Health(t *testing.T) {
	s, _, _ := newTestService(t, Config{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
}

func TestHandler_CategorySummaries(t *testing.T) {
	s, reports, _ := newTestService(t, Config{})
	reports.On("Overview", mock.Anything, int64(3), fixedNow).Return(testOverview(-2500), nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/categorysummary?budget=3", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Categories []struct {
			Name      string `json:"name"`
			Allowance struct {
				Status string `json:"status"`
			} `json:"allowance"`
		} `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Categories, 4)
	assert.Equal(t, "Groceries", body.Categories[0].Name)
	assert.Equal(t, "caution", body.Categories[0].Allowance.Status)
}

func TestHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		setup  func(*mockReporter)
		status int
	}{
		{
			name:   "bad budget parameter",
			path:   "/api/reports/categorysummary?budget=abc",
			status: http.StatusBadRequest,
		},
		{
			name:   "bad category budget id",
			path:   "/api/reports/categorysummary/x",
			status: http.StatusBadRequest,
		},
		{
			name: "no current budget",
			path: "/api/reports/categorysummary",
			setup: func(m *mockReporter) {
				m.On("Overview", mock.Anything, int64(0), fixedNow).
					Return(pipeline.Overview{}, pipeline.ErrNoCurrentBudget)
			},
			status: http.StatusNotFound,
		},
		{
			name: "missing target",
			path: "/api/reports/categorysummary/12",
			setup: func(m *mockReporter) {
				m.On("CategoryDetail", mock.Anything, int64(12), fixedNow).
					Return(pipeline.CategoryDetail{}, fmt.Errorf("target 12: %w", store.ErrNotFound))
			},
			status: http.StatusNotFound,
		},
		{
			name: "upstream failure",
			path: "/api/bigpicture",
			setup: func(m *mockReporter) {
				m.On("BigPicture", mock.Anything, fixedNow).
					Return(pipeline.BigPicture{}, errors.New("connection refused"))
			},
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, reports, _ := newTestService(t, Config{})
			if tt.setup != nil {
				tt.setup(reports)
			}

			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestHandler_BigPicture(t *testing.T) {
	s, reports, _ := newTestService(t, Config{})
	reports.On("BigPicture", mock.Anything, fixedNow).Return(pipeline.BigPicture{
		Projection: pacing.Projection{Years: 22.9, YearsOK: true},
		TargetYear: 2047,
	}, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bigpicture", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		TargetYear int `json:"target_year"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2047, body.TargetYear)
}

func TestHandler_Invalidate(t *testing.T) {
	s, _, cache := newTestService(t, Config{})
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/cache/invalidate?category=7", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []int{7}, cache.invalidated)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/cache/invalidate", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, cache.resets)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/cache/invalidate?category=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Transactions(t *testing.T) {
	ledger := &fakeLedger{}
	s, _, cache := newTestService(t, Config{Ledger: ledger})
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/transactions?page=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var page firefly.TransactionPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Page)

	body := `{"date":"2024-03-02T00:00:00Z","amount":"12.50","description":"Coffee","category_id":"4","source_id":"1","destination_name":"Cafe"}`
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, ledger.created, 1)
	assert.Equal(t, "Coffee", ledger.created[0].Description)
	assert.Equal(t, []int{4}, cache.invalidated)
	assert.Equal(t, 2024, cache.invalidatedAt[0].Year())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, cache.invalidated, 1)
}

func TestHandler_TransactionsErrors(t *testing.T) {
	ledger := &fakeLedger{err: fmt.Errorf("posting: %w", firefly.ErrRejected)}
	s, _, cache := newTestService(t, Config{Ledger: ledger})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/transactions",
		strings.NewReader(`{"amount":"1","category_id":"4"}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, cache.invalidated, "failed writes leave the cache alone")

	bare, _, _ := newTestService(t, Config{})
	rec = httptest.NewRecorder()
	bare.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/transactions", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
