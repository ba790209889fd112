package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Veraticus/spendwise/internal/analytics"
	"github.com/Veraticus/spendwise/internal/model"
)

func (s *Server) dateRange(r *http.Request) (time.Time, time.Time, error) {
	from, to := analytics.LastMonths(s.now(), analytics.DefaultRangeMonths)

	q := r.URL.Query()
	if d, err := optionalDate(q.Get("from")); err != nil {
		return from, to, err
	} else if d != nil {
		from = *d
	}
	if d, err := optionalDate(q.Get("to")); err != nil {
		return from, to, err
	} else if d != nil {
		to = *d
	}
	if to.Before(from) {
		return from, to, invalid("from must not be after to")
	}
	return from, to, nil
}

func (s *Server) rangeTransactions(r *http.Request) ([]model.Transaction, time.Time, time.Time, error) {
	from, to, err := s.dateRange(r)
	if err != nil {
		return nil, from, to, err
	}
	txns, err := s.store.ListTransactions(r.Context(), model.TransactionFilter{DateFrom: &from, DateTo: &to})
	return txns, from, to, err
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	txns, from, to, err := s.rangeTransactions(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, analytics.ComputeAnalytics(txns, from, to))
}

func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	txns, from, to, err := s.rangeTransactions(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	rates, err := s.store.GetEarningRates(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, analytics.EstimatePointsEarned(txns, rates, from, to))
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.GetAdvisorySettings(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	threshold := settings.LowValueThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		threshold, err = strconv.ParseFloat(raw, 64)
		if err != nil || !model.IsFinite(threshold) {
			respondError(w, r, invalid("threshold must be a number"))
			return
		}
		override := model.AdvisorySettings{LowValueThreshold: threshold}
		override.Normalize()
		threshold = override.LowValueThreshold
	}

	profiles, err := s.store.GetRewardProfiles(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, analytics.RecommendProfiles(profiles, threshold))
}
