package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/norian27/Smart-Greenhouse-System/internal/actuator"
	"github.com/norian27/Smart-Greenhouse-System/internal/sensorunit"
)

// handleListEnrollments returns all devices awaiting operator
// confirmation, oldest first.
func (s *Server) handleListEnrollments(w http.ResponseWriter, r *http.Request) {
	pending, err := s.sensors.ListPending(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list enrollments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"enrollments": pending, "count": len(pending)})
}

// ConfirmEnrollmentRequest is the body of POST /enrollments/{id}/confirm.
//
// Kind and GreenhouseID apply to actuator enrolments; DataFrequency to
// sensor enrolments. Unset fields fall back to defaults.
type ConfirmEnrollmentRequest struct {
	Name          string  `json:"name"`
	GreenhouseID  string  `json:"greenhouse_id"`
	Kind          string  `json:"kind,omitempty"`
	TargetValue   float64 `json:"target_value,omitempty"`
	DataFrequency int     `json:"data_frequency,omitempty"`
}

// handleConfirmEnrollment promotes a pending registration into a real
// device record. Until this happens the device's check channel keeps
// answering "not registered" and the device keeps waiting.
func (s *Server) handleConfirmEnrollment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	reg, err := s.sensors.GetPending(ctx, id)
	if err != nil {
		if errors.Is(err, sensorunit.ErrNotFound) {
			writeNotFound(w, "no pending enrollment for device")
			return
		}
		writeInternalError(w, "failed to load enrollment")
		return
	}

	var req ConfirmEnrollmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var created any
	switch reg.DeviceType {
	case sensorunit.DeviceActuator:
		kind := actuator.Kind(req.Kind)
		if !kind.Valid() {
			writeBadRequest(w, "actuator enrollment requires a valid kind")
			return
		}
		act := &actuator.Actuator{
			ID:           reg.DeviceID,
			Name:         req.Name,
			Kind:         kind,
			GreenhouseID: req.GreenhouseID,
			Status:       actuator.StatusIdle,
			TargetValue:  req.TargetValue,
		}
		if err := s.actuators.Create(ctx, act); err != nil {
			if errors.Is(err, actuator.ErrExists) {
				writeConflict(w, "actuator already exists")
				return
			}
			writeInternalError(w, "failed to create actuator")
			return
		}
		created = act

	case sensorunit.DeviceSensor:
		freq := req.DataFrequency
		if freq == 0 {
			freq = sensorunit.DefaultDataFrequency
		}
		unit := &sensorunit.SensorUnit{
			ID:            reg.DeviceID,
			Name:          req.Name,
			GreenhouseID:  req.GreenhouseID,
			DataFrequency: freq,
		}
		if err := s.sensors.Create(ctx, unit); err != nil {
			if errors.Is(err, sensorunit.ErrExists) {
				writeConflict(w, "sensor unit already exists")
				return
			}
			writeInternalError(w, "failed to create sensor unit")
			return
		}
		created = unit

	default:
		writeInternalError(w, "enrollment has unknown device type")
		return
	}

	if err := s.sensors.DeletePending(ctx, id); err != nil {
		// The device record exists; a stale pending row is harmless and
		// the next confirm attempt will report a conflict.
		s.logger.Warn("failed to remove pending enrollment", "device_id", id, "error", err)
	}

	s.logger.Info("enrollment confirmed", "device_id", id, "device_type", reg.DeviceType)
	writeJSON(w, http.StatusCreated, created)
}

// handleRejectEnrollment discards a pending registration without
// creating a device. The device keeps polling and re-enrolling; reject
// is for clearing requests from decommissioned or unknown hardware.
func (s *Server) handleRejectEnrollment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.sensors.GetPending(r.Context(), id); err != nil {
		if errors.Is(err, sensorunit.ErrNotFound) {
			writeNotFound(w, "no pending enrollment for device")
			return
		}
		writeInternalError(w, "failed to load enrollment")
		return
	}

	if err := s.sensors.DeletePending(r.Context(), id); err != nil {
		writeInternalError(w, "failed to reject enrollment")
		return
	}

	s.logger.Info("enrollment rejected", "device_id", id)
	w.WriteHeader(http.StatusNoContent)
}
