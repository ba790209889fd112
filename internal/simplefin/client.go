// Package simplefin pulls card transactions from a SimpleFIN Bridge access URL.
package simplefin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/model"
	"github.com/Veraticus/spendwise/internal/service"
	"github.com/shopspring/decimal"
)

const defaultTimeout = 30 * time.Second

// Client implements plaid.TransactionFetcher against a SimpleFIN access URL.
// The access URL carries its own basic-auth credentials.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	accessURL  string
	retryOpts  service.RetryOptions
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRetryOptions replaces the default retry policy.
func WithRetryOptions(opts service.RetryOptions) Option {
	return func(c *Client) {
		c.retryOpts = opts
	}
}

// SimpleFIN response shapes.
type accountSet struct {
	Errors   []string  `json:"errors"`
	Accounts []account `json:"accounts"`
}

type account struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Currency     string        `json:"currency"`
	Balance      string        `json:"balance"`
	Transactions []transaction `json:"transactions"`
}

type transaction struct {
	ID          string `json:"id"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Payee       string `json:"payee"`
	Posted      int64  `json:"posted"`
	Pending     bool   `json:"pending"`
}

// NewClient creates a client for an already claimed access URL.
func NewClient(accessURL string, opts ...Option) (*Client, error) {
	if err := validateURL(accessURL); err != nil {
		return nil, fmt.Errorf("invalid access URL: %w", err)
	}

	c := &Client{
		accessURL:  strings.TrimSuffix(accessURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default().With("component", "simplefin"),
		retryOpts: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetTransactions fetches posted debits in [startDate, endDate] by calendar day.
// Credits and pending rows are skipped.
func (c *Client) GetTransactions(ctx context.Context, startDate, endDate time.Time) ([]model.Transaction, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}
	start, end := model.Day(startDate), model.Day(endDate)
	if start.After(end) {
		return nil, fmt.Errorf("start date must be before end date")
	}

	params := url.Values{}
	params.Set("start-date", strconv.FormatInt(start.Unix(), 10))
	// end-date is exclusive
	params.Set("end-date", strconv.FormatInt(end.AddDate(0, 0, 1).Unix(), 10))

	c.logger.Info("Fetching transactions from SimpleFIN",
		"start_date", start.Format(model.DateLayout),
		"end_date", end.Format(model.DateLayout))

	set, err := c.fetchAccounts(ctx, params)
	if err != nil {
		return nil, err
	}

	var transactions []model.Transaction
	skipped := 0
	for _, acct := range set.Accounts {
		for _, raw := range acct.Transactions {
			tx, ok, err := toTransaction(acct, raw)
			if err != nil {
				return nil, err
			}
			if !ok || tx.Date.Before(start) || tx.Date.After(end) {
				skipped++
				continue
			}
			transactions = append(transactions, tx)
		}
	}

	c.logger.Info("Fetched all transactions", "count", len(transactions), "skipped", skipped)
	return transactions, nil
}

// GetAccounts returns the IDs of every account behind the access URL.
func (c *Client) GetAccounts(ctx context.Context) ([]string, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	// balances-only skips transaction history
	set, err := c.fetchAccounts(ctx, url.Values{"balances-only": {"1"}})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(set.Accounts))
	for _, acct := range set.Accounts {
		ids = append(ids, acct.ID)
	}
	c.logger.Info("Fetched accounts", "count", len(ids))
	return ids, nil
}

func (c *Client) fetchAccounts(ctx context.Context, params url.Values) (*accountSet, error) {
	u, err := url.Parse(c.accessURL + "/accounts")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	u.RawQuery = params.Encode()

	var set accountSet
	retryErr := common.WithRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return &common.RetryableError{Err: fmt.Errorf("failed to create request: %w", err)}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to fetch accounts: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if err := statusError(resp); err != nil {
			return err
		}

		set = accountSet{}
		if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
			return &common.RetryableError{Err: fmt.Errorf("failed to decode response: %w", err)}
		}
		return nil
	}, c.retryOpts)
	if retryErr != nil {
		return nil, retryErr
	}

	for _, msg := range set.Errors {
		c.logger.Warn("SimpleFIN reported a problem", "message", msg)
	}
	return &set, nil
}

// statusError classifies non-200 responses. Rate limits and server errors
// are retried; auth and request errors are not.
func statusError(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	err := fmt.Errorf("SimpleFIN API error: %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		wait := common.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		return common.RetryAfter(fmt.Errorf("%w: %w", common.ErrRateLimit, err), wait)
	case resp.StatusCode >= 500:
		return err
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusPaymentRequired:
		return &common.RetryableError{Err: fmt.Errorf("access revoked or subscription lapsed: %w", err)}
	default:
		return &common.RetryableError{Err: err}
	}
}

// toTransaction converts a SimpleFIN row. SimpleFIN reports debits as
// negative decimal strings; anything else is rejected.
func toTransaction(acct account, raw transaction) (model.Transaction, bool, error) {
	if raw.Pending || raw.Posted == 0 {
		return model.Transaction{}, false, nil
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(raw.Amount))
	if err != nil {
		return model.Transaction{}, false, fmt.Errorf("failed to parse amount %q: %w", raw.Amount, err)
	}
	if !amount.IsNegative() {
		return model.Transaction{}, false, nil
	}

	merchant := normalizeMerchant(raw.Payee)
	if merchant == "" {
		merchant = normalizeMerchant(raw.Description)
	}
	if merchant == "" {
		return model.Transaction{}, false, nil
	}

	card := strings.TrimSpace(acct.Name)
	if card == "" {
		card = acct.ID
	}

	currency := strings.ToUpper(strings.TrimSpace(acct.Currency))
	if !slices.Contains(model.Currencies, currency) {
		currency = model.DefaultCurrency
	}

	tx := model.Transaction{
		Date:           model.Day(time.Unix(raw.Posted, 0).UTC()),
		Merchant:       merchant,
		Amount:         amount.Abs().Round(2).InexactFloat64(),
		Currency:       currency,
		Category:       model.DefaultCategory,
		CardLabel:      card,
		RawDescription: strings.TrimSpace(raw.Description),
	}
	tx.Hash = tx.GenerateHash()
	return tx, true, nil
}

// normalizeMerchant title-cases a payee and drops corporate suffixes.
func normalizeMerchant(raw string) string {
	words := strings.Fields(strings.ToLower(raw))
	for len(words) > 1 {
		last := strings.TrimSuffix(words[len(words)-1], ".")
		if last != "llc" && last != "inc" && last != "corp" && last != "ltd" {
			break
		}
		words = words[:len(words)-1]
	}
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.TrimSuffix(strings.Join(words, " "), ",")
}

func validateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
