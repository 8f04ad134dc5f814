package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/norian27/Smart-Greenhouse-System/internal/sensorunit"
)

// handleListSensors returns all sensor units, with an optional
// greenhouse_id query filter.
func (s *Server) handleListSensors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if greenhouseID := r.URL.Query().Get("greenhouse_id"); greenhouseID != "" {
		units, err := s.sensors.ListByGreenhouse(ctx, greenhouseID)
		if err != nil {
			writeInternalError(w, "failed to list sensor units")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sensors": units, "count": len(units)})
		return
	}

	units, err := s.sensors.List(ctx)
	if err != nil {
		writeInternalError(w, "failed to list sensor units")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sensors": units, "count": len(units)})
}

// handleGetSensor returns a single sensor unit by ID.
func (s *Server) handleGetSensor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	unit, err := s.sensors.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sensorunit.ErrNotFound) {
			writeNotFound(w, "sensor unit not found")
			return
		}
		writeInternalError(w, "failed to get sensor unit")
		return
	}

	writeJSON(w, http.StatusOK, unit)
}

// handleCreateSensor registers a new sensor unit record.
func (s *Server) handleCreateSensor(w http.ResponseWriter, r *http.Request) {
	var unit sensorunit.SensorUnit
	if err := json.NewDecoder(r.Body).Decode(&unit); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if unit.DataFrequency == 0 {
		unit.DataFrequency = sensorunit.DefaultDataFrequency
	}

	if err := s.sensors.Create(r.Context(), &unit); err != nil {
		switch {
		case errors.Is(err, sensorunit.ErrExists):
			writeConflict(w, "sensor unit already exists")
		case errors.Is(err, sensorunit.ErrInvalidID), errors.Is(err, sensorunit.ErrInvalidFrequency):
			writeBadRequest(w, err.Error())
		default:
			writeInternalError(w, "failed to create sensor unit")
		}
		return
	}

	writeJSON(w, http.StatusCreated, unit)
}

// handleUpdateSensor partially updates a sensor unit.
func (s *Server) handleUpdateSensor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := s.sensors.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sensorunit.ErrNotFound) {
			writeNotFound(w, "sensor unit not found")
			return
		}
		writeInternalError(w, "failed to get sensor unit")
		return
	}

	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.ID = id // Ensure ID cannot be changed

	if err := s.sensors.Update(r.Context(), existing); err != nil {
		if errors.Is(err, sensorunit.ErrInvalidFrequency) {
			writeBadRequest(w, err.Error())
			return
		}
		writeInternalError(w, "failed to update sensor unit")
		return
	}

	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteSensor removes a sensor unit by ID.
func (s *Server) handleDeleteSensor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.sensors.Delete(r.Context(), id); err != nil {
		if errors.Is(err, sensorunit.ErrNotFound) {
			writeNotFound(w, "sensor unit not found")
			return
		}
		writeInternalError(w, "failed to delete sensor unit")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// FrequencyRequest is the body of PUT /sensors/{id}/frequency.
type FrequencyRequest struct {
	DataFrequency int `json:"data_frequency"`
}

// handleSetSensorFrequency updates the unit's reporting interval and
// republishes the retained settings message so the device picks up the
// new value on its next settings fetch, or immediately if connected.
func (s *Server) handleSetSensorFrequency(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req FrequencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.sensors.SetDataFrequency(r.Context(), id, req.DataFrequency); err != nil {
		switch {
		case errors.Is(err, sensorunit.ErrNotFound):
			writeNotFound(w, "sensor unit not found")
		case errors.Is(err, sensorunit.ErrInvalidFrequency):
			writeBadRequest(w, err.Error())
		default:
			writeInternalError(w, "failed to update data frequency")
		}
		return
	}

	if s.controller != nil {
		if err := s.controller.PublishSettings(r.Context(), id); err != nil {
			s.logger.Warn("failed to republish settings", "unit_id", id, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":             id,
		"data_frequency": req.DataFrequency,
	})
}
