package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/camden-git/attendancebackend/apperrors"
	"github.com/camden-git/attendancebackend/database"
	"github.com/camden-git/attendancebackend/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type HistoryHandler struct {
	History *services.HistoryService
}

type exportRequest struct {
	SessionIDs []int64 `json:"session_ids" validate:"required,min=1,dive,gte=1"`
}

func (hh *HistoryHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	summaries, err := hh.History.ListSessions()
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if summaries == nil {
		summaries = []database.SessionSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (hh *HistoryHandler) SessionEvents(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseSessionID(w, r)
	if !ok {
		return
	}
	events, err := hh.History.Events(sessionID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if events == nil {
		events = []database.EventRow{}
	}
	writeJSON(w, http.StatusOK, events)
}

// DeleteSession purges a session's history. The caller must pass
// confirm=true.
func (hh *HistoryHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseSessionID(w, r)
	if !ok {
		return
	}
	if confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm")); !confirmed {
		WriteAPIError(w, http.StatusBadRequest, CodeConfirmationRequired,
			"deleting session history is permanent; repeat the request with confirm=true")
		return
	}
	if err := hh.History.DeleteSession(sessionID); err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// ExportSessions streams an xlsx workbook of the selected sessions.
func (hh *HistoryHandler) ExportSessions(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	// build in memory so a failure still produces a JSON error response
	var buf bytes.Buffer
	if err := hh.History.Export(req.SessionIDs, &buf); err != nil {
		WriteError(w, r, err)
		return
	}

	filename := fmt.Sprintf("attendance-%s.xlsx", uuid.NewString()[:8])
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		zap.S().Warnf("Error streaming export %s: %v", filename, err)
	}
}

func parseSessionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "session_id")
	sessionID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || sessionID <= 0 {
		WriteError(w, r, apperrors.Validation("session_id", "invalid session ID format"))
		return 0, false
	}
	return sessionID, true
}
