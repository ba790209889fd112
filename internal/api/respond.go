package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/csvimport"
	"github.com/Veraticus/spendwise/internal/storage"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// respondJSON writes v as JSON. A value that cannot be encoded is answered
// with a 500.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	if v == nil {
		w.WriteHeader(status)
		return
	}
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal","message":"internal server error"}` + "\n"))
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// respondError logs err and writes it as an ErrorResponse. The status code
// follows from the error kind.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)

	logger := common.LoggerFrom(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err, "path", r.URL.Path)
	} else {
		logger.Debug("request rejected", "error", err, "path", r.URL.Path)
	}

	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = "internal server error"
	}
	var userErr *common.UserError
	if errors.As(err, &userErr) {
		message = userErr.UserMessage
	}
	respondJSON(w, status, ErrorResponse{Error: code, Message: message})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrNotFound),
		errors.Is(err, storage.ErrBackupNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, common.ErrInvalidInput),
		errors.Is(err, common.ErrNoTransactions),
		errors.Is(err, csvimport.ErrIncompleteMapping),
		errors.Is(err, storage.ErrInvalidTransaction),
		errors.Is(err, storage.ErrInvalidReward),
		errors.Is(err, storage.ErrInvalidRule),
		errors.Is(err, storage.ErrInvalidSettings),
		errors.Is(err, storage.ErrInvalidID),
		errors.Is(err, storage.ErrEmptyString),
		errors.Is(err, storage.ErrNilParameter):
		return http.StatusBadRequest, "invalid_input"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func invalid(message string) error {
	return common.NewUserError(message, common.ErrInvalidInput)
}

// decodeJSON reads a JSON request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return common.NewUserError("malformed JSON body: "+err.Error(), common.ErrInvalidInput)
	}
	return nil
}
