package api

import (
	"net/http"
	"strconv"

	"github.com/Veraticus/spendwise/internal/model"
	"github.com/go-chi/chi/v5"
)

type rewardRequest struct {
	Name    string                   `json:"name"`
	Options []model.RedemptionOption `json:"options"`
	Balance int64                    `json:"balance"`
}

type balanceRequest struct {
	Balance int64 `json:"balance"`
}

func (s *Server) handleListRewards(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.store.GetRewardProfiles(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, profiles)
}

func (s *Server) handleGetReward(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	profile, err := s.store.GetRewardProfile(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

func (s *Server) handleCreateReward(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	id, err := s.store.AddRewardProfile(r.Context(), req.Name, req.Balance, req.Options)
	if err != nil {
		respondError(w, r, err)
		return
	}
	profile, err := s.store.GetRewardProfile(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, profile)
}

func (s *Server) handleUpdateBalance(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req balanceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.store.UpdateRewardBalance(r.Context(), id, req.Balance); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteReward(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.store.DeleteRewardProfile(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddOption(w http.ResponseWriter, r *http.Request) {
	profileID, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var option model.RedemptionOption
	if err := decodeJSON(r, &option); err != nil {
		respondError(w, r, err)
		return
	}
	if _, err := s.store.AddRedemptionOption(r.Context(), profileID, &option); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, option)
}

func (s *Server) handleUpdateOption(w http.ResponseWriter, r *http.Request) {
	optionID, err := idParam(r, "optionID")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var option model.RedemptionOption
	if err := decodeJSON(r, &option); err != nil {
		respondError(w, r, err)
		return
	}
	option.ID = optionID
	if err := s.store.UpdateRedemptionOption(r.Context(), &option); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, option)
}

func (s *Server) handleDeleteOption(w http.ResponseWriter, r *http.Request) {
	optionID, err := idParam(r, "optionID")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.store.DeleteRedemptionOption(r.Context(), optionID); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func idParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid(name + " must be a positive integer")
	}
	return id, nil
}
