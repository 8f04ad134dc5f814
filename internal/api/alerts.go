package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/norian27/Smart-Greenhouse-System/internal/sensorunit"
)

// handleListAlerts returns alerts, newest first.
//
// Query parameters:
//   - unit_id: return the full alert history for one sensor unit
//     (default is open alerts across all units)
func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if unitID := r.URL.Query().Get("unit_id"); unitID != "" {
		alerts, err := s.sensors.ListAlertsByUnit(ctx, unitID)
		if err != nil {
			writeInternalError(w, "failed to list alerts")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts, "count": len(alerts)})
		return
	}

	alerts, err := s.sensors.ListOpenAlerts(ctx)
	if err != nil {
		writeInternalError(w, "failed to list alerts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts, "count": len(alerts)})
}

// handleResolveAlert closes an open alert by ID.
func (s *Server) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeBadRequest(w, "alert id must be an integer")
		return
	}

	if err := s.sensors.ResolveAlert(r.Context(), id, time.Now().UTC()); err != nil {
		if errors.Is(err, sensorunit.ErrAlertNotFound) {
			writeNotFound(w, "alert not found or already resolved")
			return
		}
		writeInternalError(w, "failed to resolve alert")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "resolved": true})
}
