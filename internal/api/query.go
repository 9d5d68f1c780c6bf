package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sqlagent/sqlagent/internal/database"
	"github.com/sqlagent/sqlagent/internal/nl2sql"
)

type queryRequest struct {
	Query string `json:"query"`
}

type translateRequest struct {
	Prompt string `json:"prompt"`
}

type translateResponse struct {
	SQL      string `json:"sql"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// handleQuery answers with the tool envelope. Refusals and execution errors
// are envelopes with status 200; only an unreachable database maps to 503.
func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Query == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query service is not configured", false, nil)
		return
	}

	var request queryRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	if strings.TrimSpace(request.Query) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_REQUIRED", "query is required", false, nil)
		return
	}

	envelope, err := deps.Query.ExecuteSQLQuery(r.Context(), request.Query)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, envelope)
		return
	}
	writeJSON(w, http.StatusOK, envelope)
}

func handleTranslate(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Query == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query service is not configured", false, nil)
		return
	}

	var request translateRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	if strings.TrimSpace(request.Prompt) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "PROMPT_REQUIRED", "prompt is required", false, nil)
		return
	}

	result, err := deps.Query.Translate(r.Context(), request.Prompt)
	if err != nil {
		var connErr *database.ConnectionError
		switch {
		case errors.Is(err, nl2sql.ErrUnavailable):
			writeError(r.Context(), w, http.StatusNotImplemented, "TRANSLATOR_NOT_CONFIGURED", "natural language translation is not configured", false, nil)
		case errors.As(err, &connErr):
			writeError(r.Context(), w, http.StatusServiceUnavailable, "DATABASE_UNAVAILABLE", "database is unavailable", true, nil)
		default:
			logFailure(deps, r, "translation failed", err)
			writeError(r.Context(), w, http.StatusBadGateway, "TRANSLATION_FAILED", "failed to translate prompt", nl2sql.IsRetryable(err), nil)
		}
		return
	}

	writeJSON(w, http.StatusOK, translateResponse{SQL: result.SQL, Provider: result.Provider, Model: result.Model})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid request body", false, map[string]any{"details": err.Error()})
		return false
	}
	return true
}
