package api

import (
	"net/http"
	"testing"

	"github.com/Veraticus/spendwise/internal/model"
	"github.com/Veraticus/spendwise/internal/pattern"
	"github.com/Veraticus/spendwise/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRulesEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, testutil.TestDBOptions{})

	rr := do(t, srv, http.MethodGet, "/api/rules/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[[]model.CategoryRule](t, rr))

	rr = do(t, srv, http.MethodPost, "/api/rules/", `{"merchantPattern": "zed's", "category": "Groceries", "priority": 3}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[model.CategoryRule](t, rr)
	assert.Positive(t, created.ID)
	assert.Equal(t, "zed's", created.Name)
	assert.True(t, created.IsActive)

	rr = do(t, srv, http.MethodPost, "/api/rules/", `{"merchantPattern": "(", "isRegex": true, "category": "Dining"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = do(t, srv, http.MethodPost, "/api/rules/", `{"merchantPattern": "x", "category": "Snacks"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/rules/?builtin=true", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]model.CategoryRule](t, rr), 1+len(pattern.DefaultRules()))

	rr = do(t, srv, http.MethodPut, "/api/rules/"+itoa(created.ID)+"/active", `{"active": false}`)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = do(t, srv, http.MethodGet, "/api/rules/?active=true", "")
	assert.Empty(t, decode[[]model.CategoryRule](t, rr))

	rr = do(t, srv, http.MethodDelete, "/api/rules/"+itoa(created.ID), "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = do(t, srv, http.MethodDelete, "/api/rules/"+itoa(created.ID), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestImportCSV_AppliesRules(t *testing.T) {
	srv, _ := newTestServer(t, testutil.TestDBOptions{})

	rr := do(t, srv, http.MethodPost, "/api/rules/", `{"merchantPattern": "zed's", "category": "Groceries"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rule := decode[model.CategoryRule](t, rr)

	csv := "Date,Description,Amount\n" +
		"2024-04-01,Zed's Beans,12.00\n" +
		"2024-04-02,Chipotle,9.50\n" +
		"2024-04-03,Mystery Vendor,30\n"

	rr = do(t, srv, http.MethodPost, "/api/import/csv?dry_run=true", csv)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 2, decode[csvPreview](t, rr).Categorized)

	rr = do(t, srv, http.MethodPost, "/api/import/csv?dry_run=true&rules=false", csv)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, decode[csvPreview](t, rr).Categorized)

	rr = do(t, srv, http.MethodPost, "/api/import/csv", csv)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	// The same upload again is all duplicates.
	rr = do(t, srv, http.MethodPost, "/api/import/csv", csv)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, 0, decode[importResult](t, rr).Imported)

	rr = do(t, srv, http.MethodGet, "/api/transactions/?from=2024-04-01&to=2024-04-30", "")
	require.Equal(t, http.StatusOK, rr.Code)
	byMerchant := map[string]string{}
	for _, txn := range decode[[]model.Transaction](t, rr) {
		byMerchant[txn.Merchant] = txn.Category
	}
	assert.Equal(t, "Groceries", byMerchant["Zed's Beans"])
	assert.Equal(t, "Dining", byMerchant["Chipotle"])
	assert.Equal(t, "Other", byMerchant["Mystery Vendor"])

	rr = do(t, srv, http.MethodGet, "/api/rules/", "")
	rules := decode[[]model.CategoryRule](t, rr)
	require.Len(t, rules, 1)
	assert.Equal(t, rule.ID, rules[0].ID)
	assert.Equal(t, 1, rules[0].UseCount)
}

func TestSuggestRulesEndpoint(t *testing.T) {
	srv, _ := seeded(t)

	rr := do(t, srv, http.MethodGet, "/api/rules/suggestions?min=1", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	suggestions := decode[[]pattern.Suggestion](t, rr)
	require.NotEmpty(t, suggestions)
	for _, s := range suggestions {
		assert.NotEqual(t, "Other", s.Category)
		assert.NotEmpty(t, s.Merchant)
	}

	rr = do(t, srv, http.MethodGet, "/api/rules/suggestions?min=-2", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
