package api

import (
	"net/http"

	"github.com/Veraticus/spendwise/internal/model"
	"github.com/Veraticus/spendwise/internal/pattern"
)

type activeRequest struct {
	Active bool `json:"active"`
}

// handleListRules returns stored rules. builtin=true appends the built-in set.
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.store.ListCategoryRules(r.Context(), r.URL.Query().Get("active") == "true")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if r.URL.Query().Get("builtin") == "true" {
		rules = append(rules, pattern.DefaultRules()...)
	}
	if rules == nil {
		rules = []model.CategoryRule{}
	}
	respondJSON(w, http.StatusOK, rules)
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	rule := model.CategoryRule{IsActive: true}
	if err := decodeJSON(r, &rule); err != nil {
		respondError(w, r, err)
		return
	}
	rule.ID, rule.UseCount = 0, 0

	id, err := s.store.AddCategoryRule(r.Context(), &rule)
	if err != nil {
		respondError(w, r, err)
		return
	}
	rule.ID = id
	respondJSON(w, http.StatusCreated, rule)
}

func (s *Server) handleSetRuleActive(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req activeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.store.SetCategoryRuleActive(r.Context(), id, req.Active); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.store.DeleteCategoryRule(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSuggestRules proposes rules from stored transactions. min sets how
// many consistently filed transactions a merchant needs; 0 uses the default.
func (s *Server) handleSuggestRules(w http.ResponseWriter, r *http.Request) {
	minCount, err := optionalInt(r.URL.Query().Get("min"), "min")
	if err != nil {
		respondError(w, r, err)
		return
	}

	txns, err := s.store.ListTransactions(r.Context(), model.TransactionFilter{})
	if err != nil {
		respondError(w, r, err)
		return
	}
	rules, err := s.store.ListCategoryRules(r.Context(), true)
	if err != nil {
		respondError(w, r, err)
		return
	}

	suggestions := pattern.Suggest(txns, rules, minCount)
	if suggestions == nil {
		suggestions = []pattern.Suggestion{}
	}
	respondJSON(w, http.StatusOK, suggestions)
}
