package firefly

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "test-token"

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{URL: srv.URL + "/", Token: testToken})
	require.NoError(t, err)
	return c
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewClient_RequiresURLAndToken(t *testing.T) {
	_, err := NewClient(Config{URL: "https://firefly.example"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewClient(Config{Token: "x"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	c, err := NewClient(Config{URL: "https://firefly.example", Token: "x"})
	require.NoError(t, err)
	assert.Equal(t, "taxes", c.TaxCategory())
}

func TestClient_Categories(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/autocomplete/categories", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1000", r.URL.Query().Get("limit"))
		fmt.Fprint(w, `[{"id":"1","name":"Groceries"},{"id":"12","name":"Salary"}]`)
	})
	c := newTestClient(t, mux)

	cats, err := c.Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, 12, cats[1].ID)
	assert.Equal(t, "Salary", cats[1].Name)
}

func TestClient_ListCategoryTotals(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/categories", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-01-01", r.URL.Query().Get("start"))
		assert.Equal(t, "2024-12-31", r.URL.Query().Get("end"))
		fmt.Fprint(w, `{"data":[
			{"id":"1","attributes":{"name":"Groceries","spent":[{"sum":"-512.25"}],"earned":[]}},
			{"id":"2","attributes":{"name":"Unused","spent":[],"earned":[]}},
			{"id":"3","attributes":{"name":"Salary","spent":[],"earned":[{"sum":"4000"}]}}
		]}`)
	})
	c := newTestClient(t, mux)

	totals, err := c.ListCategoryTotals(context.Background(), day(2024, 1, 1), day(2024, 12, 31))
	require.NoError(t, err)
	require.Len(t, totals, 2, "categories with no activity are skipped")

	assert.Equal(t, "Groceries", totals[0].Name)
	assert.True(t, totals[0].Spent.Equal(decimal.RequireFromString("-512.25")))
	assert.True(t, totals[0].Earned.IsZero())
	assert.True(t, totals[1].Net().Equal(decimal.NewFromInt(4000)))
}

func TestClient_FetchCategoryTotal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/categories/7", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"data":{"id":"7","attributes":{"name":"Dining","spent":[{"sum":"-80"}],"earned":[{"sum":"15.5"}]}}}`)
	})
	c := newTestClient(t, mux)

	total, err := c.FetchCategoryTotal(context.Background(), 7, day(2024, 3, 1), day(2024, 3, 31))
	require.NoError(t, err)
	assert.Equal(t, 7, total.ID)
	assert.True(t, total.Net().Equal(decimal.RequireFromString("-64.5")), "net = %s", total.Net())
	assert.True(t, total.Start.Equal(day(2024, 3, 1)))

	_, err = c.FetchCategoryTotal(context.Background(), 8, day(2024, 3, 1), day(2024, 3, 31))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_Accounts_FollowsPagination(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/accounts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "asset", r.URL.Query().Get("type"))
		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprint(w, `{"data":[
				{"id":"1","attributes":{"active":true,"name":"Chequing","type":"asset","current_balance":"1500.00"}},
				{"id":"2","attributes":{"active":false,"name":"Old","type":"asset","current_balance":"99"}}
			],"meta":{"pagination":{"current_page":1,"total_pages":2}}}`)
		case "2":
			fmt.Fprint(w, `{"data":[
				{"id":"3","attributes":{"active":true,"name":"Savings","type":"asset","current_balance":"20000"}}
			],"meta":{"pagination":{"current_page":2,"total_pages":2}}}`)
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	})
	c := newTestClient(t, mux)

	accounts, err := c.Accounts(context.Background(), AccountAsset)
	require.NoError(t, err)
	require.Len(t, accounts, 2, "inactive accounts are dropped")
	assert.Equal(t, "Savings", accounts[1].Attributes.Name)
}

func TestClient_StatusErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/insight/income/total", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	mux.HandleFunc("/api/v1/insight/expense/total", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	_, err := c.Insight(ctx, InsightIncome, day(2024, 1, 1), day(2024, 2, 1))
	assert.ErrorIs(t, err, ErrRateLimited)

	_, err = c.Insight(ctx, InsightExpense, day(2024, 1, 1), day(2024, 2, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")

	bad, err := NewClient(Config{URL: c.baseURL, Token: "wrong"})
	require.NoError(t, err)
	_, err = bad.Categories(ctx)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClient_BigPicture(t *testing.T) {
	now := day(2024, 6, 15)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/autocomplete/categories", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[{"id":"4","name":"Groceries"},{"id":"9","name":"Taxes"}]`)
	})
	mux.HandleFunc("/api/v1/accounts", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"data":[
			{"id":"1","attributes":{"active":true,"name":"Chequing","type":"asset","current_balance":"2500"}},
			{"id":"2","attributes":{"active":true,"name":"TFSA","type":"asset","current_balance":"97500"}}
		],"meta":{"pagination":{"current_page":1,"total_pages":1}}}`)
	})
	insight := func(threeMonth, twelveMonth string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			v := twelveMonth
			if r.URL.Query().Get("start") == "2024-03-15" {
				v = threeMonth
			}
			fmt.Fprintf(w, `[{"difference":"%s","currency_code":"CAD"}]`, v)
		}
	}
	mux.HandleFunc("/api/v1/insight/income/total", insight("17500", "70000"))
	mux.HandleFunc("/api/v1/insight/expense/total", insight("-12500", "-50000"))
	mux.HandleFunc("/api/v1/categories/9", func(w http.ResponseWriter, r *http.Request) {
		sum := "-10000"
		if r.URL.Query().Get("start") == "2024-03-15" {
			sum = "-2500"
		}
		fmt.Fprintf(w, `{"data":{"id":"9","attributes":{"name":"Taxes","spent":[{"sum":"%s"}],"earned":[]}}}`, sum)
	})
	c := newTestClient(t, mux)

	s, err := c.BigPicture(context.Background(), now)
	require.NoError(t, err)

	assert.True(t, s.NetWorth.Equal(decimal.NewFromInt(100000)), "net worth = %s", s.NetWorth)
	assert.True(t, s.Income3Months.Equal(decimal.NewFromInt(17500)))
	assert.True(t, s.Expenses12Months.Equal(decimal.NewFromInt(-50000)))
	assert.True(t, s.Taxes3Months.Equal(decimal.NewFromInt(-2500)))
	assert.True(t, s.Taxes12Months.Equal(decimal.NewFromInt(-10000)))
}

func TestClient_BigPicture_MissingTaxCategory(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/autocomplete/categories", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[{"id":"4","name":"Groceries"}]`)
	})
	c := newTestClient(t, mux)

	_, err := c.BigPicture(context.Background(), day(2024, 6, 15))
	assert.ErrorIs(t, err, ErrNotFound)
}
