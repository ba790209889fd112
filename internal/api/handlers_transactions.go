package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/spendwise/internal/csvimport"
	"github.com/Veraticus/spendwise/internal/model"
	"github.com/go-chi/chi/v5"
)

// transactionRequest is the writable shape of a transaction. Dates are
// calendar days in any format the CSV importer accepts.
type transactionRequest struct {
	Date           string  `json:"date"`
	Merchant       string  `json:"merchant"`
	Currency       string  `json:"currency"`
	Category       string  `json:"category"`
	CardLabel      string  `json:"cardLabel"`
	Notes          string  `json:"notes"`
	RawDescription string  `json:"rawDescription"`
	Amount         float64 `json:"amount"`
}

func (req transactionRequest) toModel() (model.Transaction, error) {
	date, ok := csvimport.ParseDate(req.Date)
	if !ok {
		return model.Transaction{}, invalid("unreadable date " + strconv.Quote(req.Date))
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency != "" && !model.IsKnownCurrency(currency) {
		return model.Transaction{}, invalid("unsupported currency " + strconv.Quote(req.Currency))
	}
	return model.Transaction{
		Date:           date,
		Merchant:       req.Merchant,
		Amount:         req.Amount,
		Currency:       currency,
		Category:       req.Category,
		CardLabel:      req.CardLabel,
		Notes:          req.Notes,
		RawDescription: req.RawDescription,
	}, nil
}

// importResult reports what an import stored.
type importResult struct {
	IDs      []string `json:"ids"`
	Warnings []string `json:"warnings,omitempty"`
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	txns, err := s.store.ListTransactions(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, txns)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	txn, err := s.store.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, txn)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	txn, err := req.toModel()
	if err != nil {
		respondError(w, r, err)
		return
	}

	id, err := s.store.AddTransaction(r.Context(), &txn)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.publish(r.Context(), "api", []string{id})
	respondJSON(w, http.StatusCreated, txn)
}

func (s *Server) handleBulkTransactions(w http.ResponseWriter, r *http.Request) {
	var reqs []transactionRequest
	if err := decodeJSON(r, &reqs); err != nil {
		respondError(w, r, err)
		return
	}

	txns := make([]model.Transaction, 0, len(reqs))
	for i, req := range reqs {
		txn, err := req.toModel()
		if err != nil {
			respondError(w, r, invalid("transaction "+strconv.Itoa(i)+": "+err.Error()))
			return
		}
		txns = append(txns, txn)
	}

	s.storeBatch(w, r, "api-bulk", txns, nil)
}

// storeBatch saves txns with duplicate detection and reports the outcome.
func (s *Server) storeBatch(w http.ResponseWriter, r *http.Request, source string, txns []model.Transaction, warnings []string) {
	ids, err := s.saveBatch(r, source, txns)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondImported(w, txns, ids, warnings)
}

// saveBatch stores txns and announces the inserted IDs.
func (s *Server) saveBatch(r *http.Request, source string, txns []model.Transaction) ([]string, error) {
	ids, err := s.store.BulkAddTransactions(r.Context(), txns)
	if err != nil {
		return nil, err
	}
	s.publish(r.Context(), source, ids)
	return ids, nil
}

func respondImported(w http.ResponseWriter, txns []model.Transaction, ids, warnings []string) {
	respondJSON(w, http.StatusCreated, importResult{
		IDs:      ids,
		Warnings: warnings,
		Imported: len(ids),
		Skipped:  len(txns) - len(ids),
	})
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	txn, err := req.toModel()
	if err != nil {
		respondError(w, r, err)
		return
	}
	txn.ID = chi.URLParam(r, "id")

	if err := s.store.UpdateTransaction(r.Context(), &txn); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, txn)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTransaction(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	labels, err := s.store.CardLabels(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, labels)
}

// publish announces stored transactions. Failures are logged, never returned:
// the data is already committed.
func (s *Server) publish(ctx context.Context, source string, ids []string) {
	if len(ids) == 0 {
		return
	}
	if err := s.publisher.PublishTransactionsImported(ctx, source, ids); err != nil {
		s.logger.Warn("Failed to publish import event", "source", source, "count", len(ids), "error", err)
	}
}

func parseFilter(r *http.Request) (model.TransactionFilter, error) {
	q := r.URL.Query()
	filter := model.TransactionFilter{
		Merchant:  q.Get("merchant"),
		Category:  q.Get("category"),
		CardLabel: q.Get("card"),
	}

	var err error
	if filter.DateFrom, err = optionalDate(q.Get("from")); err != nil {
		return filter, err
	}
	if filter.DateTo, err = optionalDate(q.Get("to")); err != nil {
		return filter, err
	}
	if filter.Limit, err = optionalInt(q.Get("limit"), "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = optionalInt(q.Get("offset"), "offset"); err != nil {
		return filter, err
	}
	return filter, nil
}

func optionalDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	d, err := time.Parse(model.DateLayout, value)
	if err != nil {
		return nil, invalid("dates must be YYYY-MM-DD, got " + strconv.Quote(value))
	}
	return &d, nil
}

func optionalInt(value, name string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, invalid(name + " must be a non-negative integer")
	}
	return n, nil
}
