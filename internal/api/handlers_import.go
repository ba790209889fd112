package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/csvimport"
	"github.com/Veraticus/spendwise/internal/pattern"
)

// csvPreview is returned by a dry-run import.
type csvPreview struct {
	Mapping      csvimport.ColumnMapping `json:"mapping"`
	Headers      []string                `json:"headers"`
	Warnings     []string                `json:"warnings"`
	Transactions int                     `json:"transactions"`
	Categorized  int                     `json:"categorized"`
}

// handleImportCSV accepts a CSV file as the "file" field of a multipart form
// or as the raw request body. Column names come from the date, merchant,
// amount, category and card query parameters; unset columns are guessed from
// the headers. Uncategorized rows are filed by the category rules unless
// rules=false. With dry_run=true nothing is stored.
func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)

	text, err := readUpload(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	parsed := csvimport.ParseCSV(text)
	if len(parsed.Headers) == 0 {
		respondError(w, r, common.NewUserError("CSV has no header row", common.ErrNoTransactions))
		return
	}

	mapping := mappingFromQuery(r, parsed.Headers)
	if err := mapping.ValidateHeaders(parsed.Headers); err != nil {
		respondError(w, r, invalid(err.Error()))
		return
	}

	txns, warnings, err := csvimport.MapRows(parsed, mapping)
	if err != nil {
		respondError(w, r, err)
		return
	}
	warnings = append(parsed.Warnings, warnings...)

	useRules := r.URL.Query().Get("rules") != "false"

	if r.URL.Query().Get("dry_run") == "true" {
		preview := csvPreview{
			Mapping:      mapping,
			Headers:      parsed.Headers,
			Warnings:     warnings,
			Transactions: len(txns),
		}
		if useRules {
			matcher, err := pattern.LoadMatcher(r.Context(), s.store, true)
			if err != nil {
				respondError(w, r, err)
				return
			}
			preview.Categorized = matcher.Categorize(txns).Categorized
		}
		respondJSON(w, http.StatusOK, preview)
		return
	}

	var ruled pattern.Result
	if useRules {
		matcher, err := pattern.LoadMatcher(r.Context(), s.store, true)
		if err != nil {
			respondError(w, r, err)
			return
		}
		ruled = matcher.Categorize(txns)
	}

	ids, err := s.saveBatch(r, "csv", txns)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := pattern.RecordStoredUses(r.Context(), s.store, ruled, txns, ids); err != nil {
		common.LoggerFrom(r.Context()).Warn("failed to record category rule use", "error", err)
	}
	respondImported(w, txns, ids, warnings)
}

func readUpload(r *http.Request) (string, error) {
	if r.ContentLength > MaxUploadSize {
		return "", errUploadTooLarge()
	}

	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return "", errUploadTooLarge()
			}
			return "", invalid("multipart upload needs a \"file\" field")
		}
		defer func() { _ = file.Close() }()
		src = file
	}

	data, err := io.ReadAll(src)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", errUploadTooLarge()
		}
		return "", err
	}
	return string(data), nil
}

func errUploadTooLarge() error {
	return invalid(fmt.Sprintf("upload exceeds the %d MB size limit", MaxUploadSize>>20))
}

func mappingFromQuery(r *http.Request, headers []string) csvimport.ColumnMapping {
	mapping := csvimport.SuggestMapping(headers)
	q := r.URL.Query()
	for key, field := range map[string]*string{
		"date":     &mapping.Date,
		"merchant": &mapping.Merchant,
		"amount":   &mapping.Amount,
		"category": &mapping.Category,
		"card":     &mapping.CardLabel,
	} {
		if v := q.Get(key); v != "" {
			*field = v
		}
	}
	return mapping
}
