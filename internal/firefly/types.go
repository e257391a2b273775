package firefly

import "github.com/shopspring/decimal"

// Account types as Firefly names them.
const (
	AccountAsset   = "asset"
	AccountExpense = "expense"
	AccountRevenue = "revenue"
)

// InsightKind selects the insight total endpoint.
type InsightKind string

const (
	InsightIncome  InsightKind = "income"
	InsightExpense InsightKind = "expense"
)

// Account is a Firefly account as returned by the accounts endpoint.
type Account struct {
	ID         string            `json:"id"`
	Attributes AccountAttributes `json:"attributes"`
}

// AccountAttributes holds the account fields used for net worth.
type AccountAttributes struct {
	Active          bool            `json:"active"`
	Name            string          `json:"name"`
	Type            string          `json:"type"`
	CurrentBalance  decimal.Decimal `json:"current_balance"`
	IncludeNetWorth bool            `json:"include_net_worth"`
}

type accountsResponse struct {
	Data []Account `json:"data"`
	Meta struct {
		Pagination pagination `json:"pagination"`
	} `json:"meta"`
}

type pagination struct {
	Total       int `json:"total"`
	Count       int `json:"count"`
	PerPage     int `json:"per_page"`
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
}

// rawCategory is an autocomplete entry. Firefly sends ids as strings.
type rawCategory struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type rawCategoryTotal struct {
	ID         string `json:"id"`
	Attributes struct {
		Name   string     `json:"name"`
		Spent  []rawTotal `json:"spent"`
		Earned []rawTotal `json:"earned"`
	} `json:"attributes"`
}

// rawTotal is one currency's sum. Only single-currency books are supported.
type rawTotal struct {
	Sum string `json:"sum"`
}

type insightEntry struct {
	Difference decimal.Decimal `json:"difference"`
}

// validationError is the body Firefly sends with a 422.
type validationError struct {
	Message string `json:"message"`
}
