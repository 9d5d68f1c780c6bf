package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sqlagent/sqlagent/internal/database"
	"github.com/sqlagent/sqlagent/internal/storage"
)

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Query == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "query service is not configured", false, nil)
		return
	}

	snapshot, err := deps.Query.Schema(r.Context())
	if err != nil {
		var connErr *database.ConnectionError
		if errors.As(err, &connErr) {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "DATABASE_UNAVAILABLE", "database is unavailable", true, nil)
			return
		}
		logFailure(deps, r, "schema fetch failed", err)
		writeError(r.Context(), w, http.StatusInternalServerError, "SCHEMA_FETCH_FAILED", "failed to load schema", true, nil)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func handleInvalidateSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Query == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "query service is not configured", false, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invalidated": deps.Query.InvalidateSchema()})
}

func handleArchivedResult(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Archive == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ARCHIVE_NOT_CONFIGURED", "result archive is not configured", false, nil)
		return
	}

	day, err := storage.ParseResultDate(r.PathValue("date"))
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_DATE", "date must be YYYY-MM-DD", false, nil)
		return
	}
	traceID := strings.TrimSpace(r.PathValue("trace_id"))
	if _, err := storage.BuildResultPath(traceID, day); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_TRACE_ID", err.Error(), false, nil)
		return
	}

	rows, err := deps.Archive.Load(r.Context(), traceID, day)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "RESULT_NOT_FOUND", "archived result was not found", false, map[string]any{"trace_id": traceID})
			return
		}
		logFailure(deps, r, "archived result read failed", err)
		writeError(r.Context(), w, http.StatusInternalServerError, "ARCHIVE_READ_FAILED", "failed to read archived result", true, map[string]any{"trace_id": traceID})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trace_id": traceID, "rows": rows, "row_count": len(rows)})
}
