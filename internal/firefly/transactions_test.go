package firefly

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAccounts = `{"data":[
	{"id":"1","attributes":{"active":true,"name":"Chequing","type":"asset","current_balance":"1500.00"}},
	{"id":"2","attributes":{"active":true,"name":"Savings","type":"asset","current_balance":"9000.00"}},
	{"id":"7","attributes":{"active":true,"name":"Grocer","type":"expense","current_balance":"0"}},
	{"id":"8","attributes":{"active":true,"name":"Employer","type":"revenue","current_balance":"0"}}
],"meta":{"pagination":{"current_page":1,"total_pages":1}}}`

func TestClient_ListTransactions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/transactions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		fmt.Fprint(w, `{"data":[{"id":"41","attributes":{"group_title":"","transactions":[
			{"type":"withdrawal","date":"2024-03-02T00:00:00-05:00","amount":"54.20","description":"Weekly shop",
			 "category_id":"4","category_name":"Groceries","source_id":"1","source_name":"Chequing",
			 "destination_id":"7","destination_name":"Grocer"}
		]}}],"meta":{"pagination":{"current_page":1,"total_pages":3}}}`)
	})
	c := newTestClient(t, mux)

	page, err := c.ListTransactions(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Groups, 1)
	require.Len(t, page.Groups[0].Attributes.Transactions, 1)

	txn := page.Groups[0].Attributes.Transactions[0]
	assert.Equal(t, "Weekly shop", txn.Description)
	assert.Equal(t, 4, txn.Category())
	assert.True(t, decimal.RequireFromString("-54.20").Equal(txn.Signed()))
	assert.Equal(t, 2024, txn.Date.Year())
}

func TestClient_CreateTransaction(t *testing.T) {
	var sent createTransactionRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/accounts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "all", r.URL.Query().Get("type"))
		fmt.Fprint(w, testAccounts)
	})
	mux.HandleFunc("/api/v1/transactions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		fmt.Fprint(w, `{"data":{"id":"42","attributes":{"transactions":[{"type":"withdrawal","amount":"12.50","category_id":"4"}]}}}`)
	})
	c := newTestClient(t, mux)

	group, err := c.CreateTransaction(context.Background(), Transaction{
		Date:            time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		Amount:          decimal.RequireFromString("12.50"),
		Description:     "Coffee",
		CategoryID:      "4",
		SourceID:        "1",
		DestinationName: "Corner Cafe",
	})
	require.NoError(t, err)
	assert.Equal(t, "42", group.ID)

	require.Len(t, sent.Transactions, 1)
	assert.Equal(t, TxnWithdrawal, sent.Transactions[0].Type, "new destination names are expense accounts")
	assert.Equal(t, "Corner Cafe", sent.Transactions[0].DestinationName)
}

func TestClient_CreateTransaction_Rejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/transactions", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message":"The given data was invalid.","errors":{}}`)
	})
	c := newTestClient(t, mux)

	_, err := c.CreateTransaction(context.Background(), Transaction{Type: TxnDeposit, Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "The given data was invalid.")
}

func TestClient_CreateTransaction_UnknownType(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/accounts", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, testAccounts)
	})
	mux.HandleFunc("/api/v1/transactions", func(http.ResponseWriter, *http.Request) {
		t.Error("nothing should be posted")
	})
	c := newTestClient(t, mux)

	_, err := c.CreateTransaction(context.Background(), Transaction{
		Amount: decimal.NewFromInt(5), SourceID: "7", DestinationID: "8",
	})
	assert.ErrorIs(t, err, ErrUnknownTransactionType)
}

func TestTransactionType(t *testing.T) {
	var resp accountsResponse
	require.NoError(t, json.Unmarshal([]byte(testAccounts), &resp))

	tests := []struct {
		name string
		txn  Transaction
		want string
	}{
		{"asset to expense", Transaction{SourceID: "1", DestinationID: "7"}, TxnWithdrawal},
		{"asset to new payee", Transaction{SourceID: "1", DestinationName: "Bakery"}, TxnWithdrawal},
		{"revenue to asset", Transaction{SourceID: "8", DestinationID: "2"}, TxnDeposit},
		{"new payer to asset", Transaction{SourceName: "Refund Co", DestinationID: "1"}, TxnDeposit},
		{"asset to asset", Transaction{SourceID: "1", DestinationID: "2"}, TxnTransfer},
		{"account names match", Transaction{SourceName: "chequing", DestinationName: "Savings"}, TxnTransfer},
		{"expense to revenue", Transaction{SourceID: "7", DestinationID: "8"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, transactionType(resp.Data, tt.txn))
		})
	}
}
