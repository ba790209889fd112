package api

import (
	"net/http"

	"github.com/Veraticus/spendwise/internal/model"
)

func (s *Server) handleGetRates(w http.ResponseWriter, r *http.Request) {
	rates, err := s.store.GetEarningRates(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rates)
}

func (s *Server) handleSaveRates(w http.ResponseWriter, r *http.Request) {
	var rates model.EarningRates
	if err := decodeJSON(r, &rates); err != nil {
		respondError(w, r, err)
		return
	}
	if rates.CategoryRates == nil {
		rates.CategoryRates = map[string]float64{}
	}
	if rates.CardOverrides == nil {
		rates.CardOverrides = map[string]map[string]float64{}
	}
	if err := s.store.SaveEarningRates(r.Context(), rates); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rates)
}

func (s *Server) handleGetAdvisory(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.GetAdvisorySettings(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

func (s *Server) handleSaveAdvisory(w http.ResponseWriter, r *http.Request) {
	var settings model.AdvisorySettings
	if err := decodeJSON(r, &settings); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.store.SaveAdvisorySettings(r.Context(), settings); err != nil {
		respondError(w, r, err)
		return
	}
	settings.Normalize()
	respondJSON(w, http.StatusOK, settings)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.store.GetUserProfile(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	var profile model.UserProfile
	if err := decodeJSON(r, &profile); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.store.SaveUserProfile(r.Context(), &profile); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}
