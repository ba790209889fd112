package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportSimpleFIN(t *testing.T) {
	env := newCLIEnv(t)
	t.Setenv("SIMPLEFIN_TOKEN", "")

	posted := time.Date(2024, 3, 9, 18, 0, 0, 0, time.UTC).Unix()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("balances-only") == "1" {
			_, _ = w.Write([]byte(`{"accounts": [{"id": "ACT-1", "name": "Freedom"}]}`))
			return
		}
		_, _ = fmt.Fprintf(w, `{"accounts": [{"id": "ACT-1", "name": "Freedom", "currency": "USD", "transactions": [
  {"id": "1", "posted": %d, "amount": "-64.20", "description": "TRADER JOES #552", "payee": "Trader Joes"},
  {"id": "2", "posted": %d, "amount": "500.00", "description": "AUTOPAY", "payee": ""}
]}]}`, posted, posted)
	}))
	defer server.Close()
	t.Setenv("SIMPLEFIN_ACCESS_URL", server.URL)

	out := env.run("import", "simplefin", "--start", "2024-03-01", "--end", "2024-03-31")
	assert.Contains(t, out, "Imported 1 transactions (0 duplicates skipped)")

	txns := env.listTransactions()
	require.Len(t, txns, 1)
	assert.Equal(t, "Trader Joes", txns[0].Merchant)
	assert.Equal(t, "Freedom", txns[0].CardLabel)
	assert.InDelta(t, 64.20, txns[0].Amount, 0.001)

	out = env.run("import", "simplefin", "--start", "2024-03-01", "--end", "2024-03-31")
	assert.Contains(t, out, "Imported 0 transactions (1 duplicates skipped)")
}

func TestImportSimpleFIN_NotConfigured(t *testing.T) {
	env := newCLIEnv(t)
	t.Setenv("SIMPLEFIN_ACCESS_URL", "")
	t.Setenv("SIMPLEFIN_TOKEN", "")

	_, err := env.runWithInput("", "import", "simplefin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SimpleFIN is not configured")
}
