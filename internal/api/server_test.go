package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/spendwise/internal/analytics"
	"github.com/Veraticus/spendwise/internal/model"
	"github.com/Veraticus/spendwise/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedEvent struct {
	source string
	ids    []string
}

type recordingPublisher struct {
	events []publishedEvent
	mu     sync.Mutex
}

func (p *recordingPublisher) PublishTransactionsImported(_ context.Context, source string, ids []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{source: source, ids: ids})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) last() publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return publishedEvent{}
	}
	return p.events[len(p.events)-1]
}

func newTestServer(t *testing.T, opts testutil.TestDBOptions) (*Server, *recordingPublisher) {
	t.Helper()
	db := testutil.SetupTestDBWithOptions(t, opts)
	pub := &recordingPublisher{}
	srv := NewServer(db.Storage, pub, nil)
	srv.now = func() time.Time { return testutil.Date(2024, 3, 31) }
	return srv, pub
}

func seeded(t *testing.T) (*Server, *recordingPublisher) {
	t.Helper()
	return newTestServer(t, testutil.TestDBOptions{
		Transactions: testutil.SampleTransactions(),
		Profiles:     testutil.SampleProfiles(),
	})
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, testutil.TestDBOptions{})
	rr := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
	assert.NotEmpty(t, rr.Header().Get("Content-Type"))
}

func TestListTransactions_Filters(t *testing.T) {
	srv, _ := seeded(t)

	rr := do(t, srv, http.MethodGet, "/api/transactions/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	all := decode[[]model.Transaction](t, rr)
	assert.Len(t, all, 6)

	rr = do(t, srv, http.MethodGet, "/api/transactions/?category=Dining", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]model.Transaction](t, rr), 2)

	rr = do(t, srv, http.MethodGet, "/api/transactions/?from=2024-02-01&to=2024-02-29", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]model.Transaction](t, rr), 3)

	rr = do(t, srv, http.MethodGet, "/api/transactions/?from=02-01-2024", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid_input", decode[ErrorResponse](t, rr).Error)

	rr = do(t, srv, http.MethodGet, "/api/transactions/?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestTransactionLifecycle(t *testing.T) {
	srv, pub := newTestServer(t, testutil.TestDBOptions{})

	rr := do(t, srv, http.MethodPost, "/api/transactions/",
		`{"date":"2024-04-02","merchant":"Blue Bottle","amount":6.5,"category":"Dining","cardLabel":"Amex Gold"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[model.Transaction](t, rr)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "USD", created.Currency)
	assert.Equal(t, "api", pub.last().source)
	assert.Equal(t, []string{created.ID}, pub.last().ids)

	rr = do(t, srv, http.MethodGet, "/api/transactions/"+created.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Blue Bottle", decode[model.Transaction](t, rr).Merchant)

	rr = do(t, srv, http.MethodPut, "/api/transactions/"+created.ID,
		`{"date":"04/03/2024","merchant":"Blue Bottle Coffee","amount":7,"category":"Dining"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, srv, http.MethodGet, "/api/transactions/"+created.ID, "")
	updated := decode[model.Transaction](t, rr)
	assert.Equal(t, "Blue Bottle Coffee", updated.Merchant)
	assert.Equal(t, testutil.Date(2024, 4, 3), updated.Date)

	rr = do(t, srv, http.MethodDelete, "/api/transactions/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/transactions/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", decode[ErrorResponse](t, rr).Error)

	rr = do(t, srv, http.MethodPut, "/api/transactions/missing",
		`{"date":"2024-04-02","merchant":"x","amount":1}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateTransaction_Invalid(t *testing.T) {
	srv, pub := newTestServer(t, testutil.TestDBOptions{})

	tests := []struct {
		name string
		body string
	}{
		{name: "bad date", body: `{"date":"someday","merchant":"x","amount":1}`},
		{name: "negative amount", body: `{"date":"2024-01-01","merchant":"x","amount":-1}`},
		{name: "missing merchant", body: `{"date":"2024-01-01","merchant":" ","amount":1}`},
		{name: "unknown currency", body: `{"date":"2024-01-01","merchant":"x","amount":1,"currency":"XYZ"}`},
		{name: "unknown field", body: `{"date":"2024-01-01","merchant":"x","amount":1,"tip":2}`},
		{name: "malformed", body: `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/transactions/", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			resp := decode[ErrorResponse](t, rr)
			assert.Equal(t, "invalid_input", resp.Error)
			assert.NotEmpty(t, resp.Message)
		})
	}
	assert.Empty(t, pub.events)
}

func TestBulkTransactions_SkipsDuplicates(t *testing.T) {
	srv, pub := seeded(t)

	body := `[
		{"date":"2024-01-05","merchant":"Whole Foods","amount":120,"cardLabel":"Amex Gold"},
		{"date":"2024-04-01","merchant":"Trader Joe's","amount":42.1},
		{"date":"2024-04-01","merchant":"Trader Joe's","amount":42.1}
	]`
	rr := do(t, srv, http.MethodPost, "/api/transactions/bulk", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	result := decode[importResult](t, rr)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 2, result.Skipped)
	assert.Len(t, result.IDs, 1)
	assert.Equal(t, "api-bulk", pub.last().source)

	rr = do(t, srv, http.MethodPost, "/api/transactions/bulk", `[{"date":"bad","merchant":"x","amount":1}]`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decode[ErrorResponse](t, rr).Message, "transaction 0")
}

func TestListCards(t *testing.T) {
	srv, _ := seeded(t)
	rr := do(t, srv, http.MethodGet, "/api/cards", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.ElementsMatch(t, []string{"Amex Gold", "Sapphire"}, decode[[]string](t, rr))
}

func TestRewardsLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, testutil.TestDBOptions{})

	rr := do(t, srv, http.MethodPost, "/api/rewards/",
		`{"name":"Membership Rewards","balance":50000,"options":[{"type":"statementCredit","pointsRequired":10000,"cashValue":60}]}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	profile := decode[model.RewardProfile](t, rr)
	require.Len(t, profile.Options, 1)
	path := "/api/rewards/" + itoa(profile.ID)

	rr = do(t, srv, http.MethodPut, path+"/balance", `{"balance":62000}`)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, srv, http.MethodPost, path+"/options",
		`{"type":"transferToPartner","pointsRequired":25000,"cashValue":500,"fees":20}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	option := decode[model.RedemptionOption](t, rr)
	require.Positive(t, option.ID)

	rr = do(t, srv, http.MethodPut, "/api/rewards/options/"+itoa(option.ID),
		`{"type":"transferToPartner","pointsRequired":25000,"cashValue":550,"fees":20}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, srv, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rr.Code)
	profile = decode[model.RewardProfile](t, rr)
	assert.Equal(t, int64(62000), profile.Balance)
	require.Len(t, profile.Options, 2)
	assert.Equal(t, 550.0, profile.Options[1].CashValue)

	rr = do(t, srv, http.MethodDelete, "/api/rewards/options/"+itoa(option.ID), "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, srv, http.MethodPut, path+"/balance", `{"balance":-5}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, srv, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = do(t, srv, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/rewards/abc", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/rewards/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[[]model.RewardProfile](t, rr))
}

func TestSettingsEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, testutil.TestDBOptions{})

	rr := do(t, srv, http.MethodPut, "/api/rates", `{"categoryRates":{"Dining":4},"cardOverrides":{"Sapphire":{"Travel":5}}}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, srv, http.MethodGet, "/api/rates", "")
	rates := decode[model.EarningRates](t, rr)
	assert.Equal(t, 4.0, rates.RateFor("", "Dining"))
	assert.Equal(t, 5.0, rates.RateFor("Sapphire", "Travel"))

	rr = do(t, srv, http.MethodPut, "/api/rates", `{"categoryRates":{"Dining":-1}}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, srv, http.MethodPut, "/api/settings/advisory", `{"lowValueThreshold":0}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, model.DefaultLowValueThreshold, decode[model.AdvisorySettings](t, rr).LowValueThreshold)

	rr = do(t, srv, http.MethodPut, "/api/settings/advisory", `{"lowValueThreshold":1.25}`)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = do(t, srv, http.MethodGet, "/api/settings/advisory", "")
	assert.Equal(t, 1.25, decode[model.AdvisorySettings](t, rr).LowValueThreshold)

	rr = do(t, srv, http.MethodPut, "/api/profile", `{"name":"Robin"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = do(t, srv, http.MethodGet, "/api/profile", "")
	assert.Equal(t, "Robin", decode[model.UserProfile](t, rr).Name)

	rr = do(t, srv, http.MethodPut, "/api/profile", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAnalyticsEndpoints(t *testing.T) {
	srv, _ := seeded(t)

	rr := do(t, srv, http.MethodGet, "/api/analytics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	summary := decode[analytics.Analytics](t, rr)
	assert.InDelta(t, 725.0, summary.TotalSpend, 1e-9)
	assert.Equal(t, 6, summary.TransactionCount)
	assert.Equal(t, "Travel", summary.BiggestCategory)
	assert.InDelta(t, -92.727, summary.MoMChange, 0.001)

	rr = do(t, srv, http.MethodGet, "/api/analytics?from=2024-02-01&to=2024-02-29", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.InDelta(t, 550.0, decode[analytics.Analytics](t, rr).TotalSpend, 1e-9)

	rr = do(t, srv, http.MethodGet, "/api/analytics?from=2024-03-01&to=2024-02-01", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/points", "")
	require.Equal(t, http.StatusOK, rr.Code)
	points := decode[analytics.PointsEstimate](t, rr)
	assert.InDelta(t, 725.0, points.Total, 1e-9)
	assert.InDelta(t, 450.0, points.ByCategory["Travel"], 1e-9)
}

func TestRecommendations(t *testing.T) {
	srv, _ := seeded(t)

	rr := do(t, srv, http.MethodGet, "/api/recommendations", "")
	require.Equal(t, http.StatusOK, rr.Code)
	recs := decode[[]analytics.ProfileRecommendation](t, rr)
	require.Len(t, recs, 2)
	require.NotNil(t, recs[0].Best)
	assert.Equal(t, model.RedemptionTransferToPartner, recs[0].Best.Option.Type)
	assert.InDelta(t, 1750.0, recs[0].BalanceValue, 1e-9)
	assert.True(t, recs[0].Ranked[len(recs[0].Ranked)-1].IsLowValue)
	assert.Nil(t, recs[1].Best)

	rr = do(t, srv, http.MethodGet, "/api/recommendations?threshold=1.6", "")
	require.Equal(t, http.StatusOK, rr.Code)
	recs = decode[[]analytics.ProfileRecommendation](t, rr)
	assert.Len(t, recs[0].Ranked.LowValue(), 3)

	rr = do(t, srv, http.MethodGet, "/api/recommendations?threshold=lots", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	for _, raw := range []string{"NaN", "Inf", "1e400"} {
		rr = do(t, srv, http.MethodGet, "/api/recommendations?threshold="+raw, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, raw)
	}
}

func TestRespondJSON_EncodeFailure(t *testing.T) {
	rr := httptest.NewRecorder()
	respondJSON(rr, http.StatusOK, map[string]float64{"cpp": math.NaN()})

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "internal", body.Error)

	rr = httptest.NewRecorder()
	respondJSON(rr, http.StatusCreated, map[string]float64{"cpp": 1.5})
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.JSONEq(t, `{"cpp": 1.5}`, rr.Body.String())
}

const statementCSV = "Transaction Date,Description,Amount,Category\n" +
	"2024-04-01,Whole Foods,85.20,Groceries\n" +
	"2024-04-03,Uber,,Transportation\n" +
	"04/05/2024,Shell,45,Gas\n"

func TestImportCSV_RawBody(t *testing.T) {
	srv, pub := newTestServer(t, testutil.TestDBOptions{})

	rr := do(t, srv, http.MethodPost, "/api/import/csv?card=Sapphire&dry_run=true", statementCSV)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "card column does not exist")

	rr = do(t, srv, http.MethodPost, "/api/import/csv?dry_run=true", statementCSV)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	preview := decode[csvPreview](t, rr)
	assert.Equal(t, "Transaction Date", preview.Mapping.Date)
	assert.Equal(t, "Description", preview.Mapping.Merchant)
	assert.Equal(t, 2, preview.Transactions)
	assert.Len(t, preview.Warnings, 1)
	assert.Empty(t, pub.events)

	rr = do(t, srv, http.MethodPost, "/api/import/csv", statementCSV)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	result := decode[importResult](t, rr)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, "csv", pub.last().source)

	rr = do(t, srv, http.MethodPost, "/api/import/csv", statementCSV)
	require.Equal(t, http.StatusCreated, rr.Code)
	result = decode[importResult](t, rr)
	assert.Equal(t, 0, result.Imported)
	assert.Equal(t, 2, result.Skipped)

	rr = do(t, srv, http.MethodPost, "/api/import/csv", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestImportCSV_Multipart(t *testing.T) {
	srv, _ := newTestServer(t, testutil.TestDBOptions{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "statement.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(statementCSV))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import/csv?amount=Amount", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, 2, decode[importResult](t, rr).Imported)

	req = httptest.NewRequest(http.MethodPost, "/api/import/csv", strings.NewReader("--x--"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	rr = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestImportCSV_MultipartTooLarge(t *testing.T) {
	srv, _ := newTestServer(t, testutil.TestDBOptions{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "huge.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(statementCSV + strings.Repeat("2024-04-09,Filler,1.00,Other\n", MaxUploadSize/28+1)))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	payload := body.Bytes()

	for _, length := range []int64{int64(len(payload)), -1} {
		req := httptest.NewRequest(http.MethodPost, "/api/import/csv", bytes.NewReader(payload))
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.ContentLength = length
		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		resp := decode[ErrorResponse](t, rr)
		assert.Contains(t, resp.Message, "size limit", "content length %d", length)
		assert.NotContains(t, resp.Message, "file")
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestServer_StartAndShutdown(t *testing.T) {
	srv, _ := newTestServer(t, testutil.TestDBOptions{})

	done := make(chan error, 1)
	go func() { done <- srv.Start("127.0.0.1:0") }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}
