// Package firefly fetches category totals, insight sums and account balances
// from a Firefly III server.
package firefly

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/davidschlachter/lychnos/internal/model"
)

const (
	requestTimeout = 30 * time.Second
	maxBodySize    = 1 << 20 // 1 MB
	dateLayout     = "2006-01-02"
	userAgent      = "github.com/davidschlachter/lychnos/1.0"
)

var (
	// ErrNotConfigured indicates a missing server URL or access token.
	ErrNotConfigured = errors.New("firefly: url and token are required")
	// ErrUnauthorized indicates the access token is expired or invalid.
	ErrUnauthorized = errors.New("firefly: unauthorized (access token expired or invalid)")
	// ErrRateLimited indicates the server throttled the request.
	ErrRateLimited = errors.New("firefly: rate limited")
	// ErrNotFound indicates the requested category or resource does not exist.
	ErrNotFound = errors.New("firefly: not found")
	// ErrRejected indicates the server refused a submitted transaction.
	ErrRejected = errors.New("firefly: rejected")
)

// Config holds what is needed to reach a Firefly server.
type Config struct {
	URL         string
	Token       string
	TaxCategory string       // category whose totals offset income; "taxes" if empty
	HTTPClient  *http.Client // optional
}

// Client talks to the Firefly III JSON API.
type Client struct {
	baseURL     string
	token       string
	taxCategory string
	http        *http.Client
}

// NewClient returns a client for cfg.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	token := strings.TrimSpace(cfg.Token)
	if base == "" || token == "" {
		return nil, ErrNotConfigured
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	tax := cfg.TaxCategory
	if tax == "" {
		tax = "taxes"
	}
	return &Client{baseURL: base, token: token, taxCategory: tax, http: hc}, nil
}

// Categories lists every category.
func (c *Client) Categories(ctx context.Context) ([]model.Category, error) {
	body, err := c.get(ctx, "/api/v1/autocomplete/categories", url.Values{"limit": {"1000"}})
	if err != nil {
		return nil, err
	}

	var raw []rawCategory
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("firefly: parsing categories: %w", err)
	}

	out := make([]model.Category, 0, len(raw))
	for _, r := range raw {
		id, err := strconv.Atoi(r.ID)
		if err != nil {
			return nil, fmt.Errorf("firefly: category id %q: %w", r.ID, err)
		}
		out = append(out, model.Category{ID: id, Name: r.Name})
	}
	return out, nil
}

// ListCategoryTotals returns earned and spent sums for every category with
// activity between start and end.
func (c *Client) ListCategoryTotals(ctx context.Context, start, end time.Time) ([]model.CategoryTotal, error) {
	body, err := c.get(ctx, "/api/v1/categories", dateRange(start, end))
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data []rawCategoryTotal `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("firefly: parsing category totals: %w", err)
	}

	var out []model.CategoryTotal
	for _, r := range resp.Data {
		if len(r.Attributes.Spent) == 0 && len(r.Attributes.Earned) == 0 {
			continue
		}
		t, err := r.total(start, end)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// FetchCategoryTotal returns the earned and spent sums of one category.
func (c *Client) FetchCategoryTotal(ctx context.Context, categoryID int, start, end time.Time) (model.CategoryTotal, error) {
	body, err := c.get(ctx, "/api/v1/categories/"+strconv.Itoa(categoryID), dateRange(start, end))
	if err != nil {
		return model.CategoryTotal{}, err
	}

	var resp struct {
		Data rawCategoryTotal `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.CategoryTotal{}, fmt.Errorf("firefly: parsing category %d: %w", categoryID, err)
	}
	return resp.Data.total(start, end)
}

// Insight returns the total income or expense between start and end.
func (c *Client) Insight(ctx context.Context, kind InsightKind, start, end time.Time) (decimal.Decimal, error) {
	body, err := c.get(ctx, "/api/v1/insight/"+string(kind)+"/total", dateRange(start, end))
	if err != nil {
		return decimal.Zero, err
	}

	var entries []insightEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return decimal.Zero, fmt.Errorf("firefly: parsing %s insight: %w", kind, err)
	}
	switch len(entries) {
	case 0:
		return decimal.Zero, nil
	case 1:
		return entries[0].Difference, nil
	default:
		return decimal.Zero, fmt.Errorf("firefly: %s insight has %d currencies, want 1", kind, len(entries))
	}
}

// Accounts returns the active accounts of the given type, following
// pagination. An empty type lists all accounts.
func (c *Client) Accounts(ctx context.Context, accountType string) ([]Account, error) {
	if accountType == "" {
		accountType = "all"
	}

	var out []Account
	for page := 1; ; page++ {
		body, err := c.get(ctx, "/api/v1/accounts", url.Values{
			"type": {accountType},
			"page": {strconv.Itoa(page)},
		})
		if err != nil {
			return nil, err
		}

		var resp accountsResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("firefly: parsing accounts page %d: %w", page, err)
		}
		for _, a := range resp.Data {
			if a.Attributes.Active {
				out = append(out, a)
			}
		}
		if resp.Meta.Pagination.CurrentPage >= resp.Meta.Pagination.TotalPages {
			break
		}
	}
	return out, nil
}

func (r rawCategoryTotal) total(start, end time.Time) (model.CategoryTotal, error) {
	id, err := strconv.Atoi(r.ID)
	if err != nil {
		return model.CategoryTotal{}, fmt.Errorf("firefly: category id %q: %w", r.ID, err)
	}
	t := model.CategoryTotal{ID: id, Name: r.Attributes.Name, Start: start, End: end}
	if t.Spent, err = firstSum(r.Attributes.Spent); err != nil {
		return t, fmt.Errorf("firefly: category %d spent: %w", id, err)
	}
	if t.Earned, err = firstSum(r.Attributes.Earned); err != nil {
		return t, fmt.Errorf("firefly: category %d earned: %w", id, err)
	}
	return t, nil
}

func firstSum(totals []rawTotal) (decimal.Decimal, error) {
	if len(totals) == 0 {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(totals[0].Sum)
}

func dateRange(start, end time.Time) url.Values {
	return url.Values{
		"start": {start.Format(dateLayout)},
		"end":   {end.Format(dateLayout)},
	}
}

// get performs an authenticated GET request and returns the response body.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

// post sends payload as JSON and returns the response body.
func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("firefly: encoding request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, nil, data)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("firefly: creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("firefly: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	case http.StatusUnprocessableEntity:
		var v validationError
		_ = json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&v)
		return nil, fmt.Errorf("%w: %s", ErrRejected, v.Message)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("firefly: unexpected status %d for %s", resp.StatusCode, path)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("firefly: reading response: %w", err)
	}
	return data, nil
}
