package firefly

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types as Firefly names them.
const (
	TxnWithdrawal = "withdrawal"
	TxnDeposit    = "deposit"
	TxnTransfer   = "transfer"
)

// ErrUnknownTransactionType indicates the source and destination accounts
// don't form a withdrawal, deposit or transfer.
var ErrUnknownTransactionType = errors.New("firefly: cannot determine transaction type")

// Transaction is one split of a transaction group. Amount is always
// positive; Type carries the direction.
type Transaction struct {
	Type            string          `json:"type"`
	Date            time.Time       `json:"date"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description"`
	CategoryID      string          `json:"category_id,omitempty"`
	CategoryName    string          `json:"category_name,omitempty"`
	SourceID        string          `json:"source_id,omitempty"`
	SourceName      string          `json:"source_name,omitempty"`
	DestinationID   string          `json:"destination_id,omitempty"`
	DestinationName string          `json:"destination_name,omitempty"`
}

// Signed returns Amount negated for withdrawals.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == TxnWithdrawal {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Category returns the numeric category id, or 0 when none is set.
func (t Transaction) Category() int {
	id, err := strconv.Atoi(t.CategoryID)
	if err != nil {
		return 0
	}
	return id
}

// TransactionGroup is a Firefly transaction with its splits.
type TransactionGroup struct {
	ID         string `json:"id"`
	Attributes struct {
		GroupTitle   string        `json:"group_title"`
		Transactions []Transaction `json:"transactions"`
	} `json:"attributes"`
}

// TransactionPage is one page of the transaction list, newest first.
type TransactionPage struct {
	Groups     []TransactionGroup `json:"groups"`
	Page       int                `json:"page"`
	TotalPages int                `json:"total_pages"`
}

type transactionsResponse struct {
	Data []TransactionGroup `json:"data"`
	Meta struct {
		Pagination pagination `json:"pagination"`
	} `json:"meta"`
}

type createTransactionRequest struct {
	Transactions []Transaction `json:"transactions"`
}

// ListTransactions returns one page of transactions. Pages start at 1; lower
// values are treated as 1.
func (c *Client) ListTransactions(ctx context.Context, page int) (TransactionPage, error) {
	if page < 1 {
		page = 1
	}
	body, err := c.get(ctx, "/api/v1/transactions", url.Values{"page": {strconv.Itoa(page)}})
	if err != nil {
		return TransactionPage{}, err
	}

	var resp transactionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return TransactionPage{}, fmt.Errorf("firefly: parsing transactions page %d: %w", page, err)
	}
	return TransactionPage{
		Groups:     resp.Data,
		Page:       page,
		TotalPages: resp.Meta.Pagination.TotalPages,
	}, nil
}

// CreateTransaction records t. When t.Type is empty it is derived from the
// source and destination accounts; unknown account names are treated as new
// revenue or expense accounts.
func (c *Client) CreateTransaction(ctx context.Context, t Transaction) (TransactionGroup, error) {
	if t.Type == "" {
		accounts, err := c.Accounts(ctx, "")
		if err != nil {
			return TransactionGroup{}, fmt.Errorf("firefly: resolving accounts: %w", err)
		}
		t.Type = transactionType(accounts, t)
		if t.Type == "" {
			return TransactionGroup{}, ErrUnknownTransactionType
		}
	}

	body, err := c.post(ctx, "/api/v1/transactions", createTransactionRequest{Transactions: []Transaction{t}})
	if err != nil {
		return TransactionGroup{}, err
	}

	var resp struct {
		Data TransactionGroup `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return TransactionGroup{}, fmt.Errorf("firefly: parsing created transaction: %w", err)
	}
	return resp.Data, nil
}

// transactionType classifies a transaction by its account types: asset to
// expense is a withdrawal, revenue to asset a deposit, asset to asset a
// transfer. Anything else yields "".
func transactionType(accounts []Account, t Transaction) string {
	find := func(id, name string) string {
		for _, a := range accounts {
			if id != "" && a.ID == id {
				return a.Attributes.Type
			}
			if id == "" && name != "" && strings.EqualFold(a.Attributes.Name, name) {
				return a.Attributes.Type
			}
		}
		return ""
	}

	src := find(t.SourceID, t.SourceName)
	dst := find(t.DestinationID, t.DestinationName)
	if src == "" && t.SourceName != "" && dst == AccountAsset {
		src = AccountRevenue
	}
	if dst == "" && t.DestinationName != "" && src == AccountAsset {
		dst = AccountExpense
	}

	switch {
	case src == AccountAsset && dst == AccountExpense:
		return TxnWithdrawal
	case src == AccountRevenue && dst == AccountAsset:
		return TxnDeposit
	case src == AccountAsset && dst == AccountAsset:
		return TxnTransfer
	}
	return ""
}
