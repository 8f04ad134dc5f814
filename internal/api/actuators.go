package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/norian27/Smart-Greenhouse-System/internal/actuator"
	"github.com/norian27/Smart-Greenhouse-System/internal/controller"
)

// handleListActuators returns all actuators, with optional query filters.
//
// Query parameters:
//   - kind: filter by actuator kind (cooling, heating, sprinkler, window)
//   - greenhouse_id: filter by greenhouse
func (s *Server) handleListActuators(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if kindStr := r.URL.Query().Get("kind"); kindStr != "" {
		kind := actuator.Kind(kindStr)
		if !kind.Valid() {
			writeBadRequest(w, "unknown actuator kind: "+kindStr)
			return
		}
		acts, err := s.actuators.ListByKind(ctx, kind)
		if err != nil {
			writeInternalError(w, "failed to list actuators")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"actuators": acts, "count": len(acts)})
		return
	}

	if greenhouseID := r.URL.Query().Get("greenhouse_id"); greenhouseID != "" {
		acts, err := s.actuators.ListByGreenhouse(ctx, greenhouseID)
		if err != nil {
			writeInternalError(w, "failed to list actuators")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"actuators": acts, "count": len(acts)})
		return
	}

	acts, err := s.actuators.List(ctx)
	if err != nil {
		writeInternalError(w, "failed to list actuators")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"actuators": acts, "count": len(acts)})
}

// handleGetActuator returns a single actuator by ID.
func (s *Server) handleGetActuator(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	act, err := s.actuators.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, actuator.ErrNotFound) {
			writeNotFound(w, "actuator not found")
			return
		}
		writeInternalError(w, "failed to get actuator")
		return
	}

	writeJSON(w, http.StatusOK, act)
}

// handleCreateActuator registers a new actuator record.
func (s *Server) handleCreateActuator(w http.ResponseWriter, r *http.Request) {
	var act actuator.Actuator
	if err := json.NewDecoder(r.Body).Decode(&act); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.actuators.Create(r.Context(), &act); err != nil {
		switch {
		case errors.Is(err, actuator.ErrExists):
			writeConflict(w, "actuator already exists")
		case isValidationError(err):
			writeBadRequest(w, err.Error())
		default:
			writeInternalError(w, "failed to create actuator")
		}
		return
	}

	writeJSON(w, http.StatusCreated, act)
}

// handleUpdateActuator partially updates an actuator.
func (s *Server) handleUpdateActuator(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := s.actuators.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, actuator.ErrNotFound) {
			writeNotFound(w, "actuator not found")
			return
		}
		writeInternalError(w, "failed to get actuator")
		return
	}

	// Decode partial update onto the existing record
	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.ID = id // Ensure ID cannot be changed

	if err := s.actuators.Update(r.Context(), existing); err != nil {
		if isValidationError(err) {
			writeBadRequest(w, err.Error())
			return
		}
		writeInternalError(w, "failed to update actuator")
		return
	}

	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteActuator removes an actuator by ID.
func (s *Server) handleDeleteActuator(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.actuators.Delete(r.Context(), id); err != nil {
		if errors.Is(err, actuator.ErrNotFound) {
			writeNotFound(w, "actuator not found")
			return
		}
		writeInternalError(w, "failed to delete actuator")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CommandRequest is the body of POST /actuators/{id}/command.
type CommandRequest struct {
	Action string `json:"action"`
	Angle  int    `json:"angle,omitempty"`
}

// handleActuatorCommand dispatches a control command to the field device.
//
// The response is 202 Accepted: the command was published, and the
// outcome arrives asynchronously over the control response channel (and
// the actuator state WebSocket channel).
func (s *Server) handleActuatorCommand(w http.ResponseWriter, r *http.Request) {
	if s.controller == nil {
		writeInternalError(w, "command dispatch is not available")
		return
	}

	id := chi.URLParam(r, "id")

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	action := controller.Action(req.Action)
	if !action.Valid() {
		writeBadRequest(w, "unknown action: "+req.Action)
		return
	}

	err := s.controller.Dispatcher().Issue(r.Context(), id, action, req.Angle)
	if err != nil {
		switch {
		case errors.Is(err, actuator.ErrNotFound):
			writeNotFound(w, "actuator not found")
		case errors.Is(err, controller.ErrUnknownAction):
			writeBadRequest(w, "unknown action: "+req.Action)
		default:
			s.logger.Error("command dispatch failed", "actuator_id", id, "action", req.Action, "error", err)
			writeInternalError(w, "failed to dispatch command")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"actuator_id": id,
		"action":      req.Action,
		"dispatched":  true,
	})
}

// isValidationError reports whether err is one of the actuator
// validation sentinels.
func isValidationError(err error) bool {
	return errors.Is(err, actuator.ErrInvalidID) ||
		errors.Is(err, actuator.ErrInvalidKind) ||
		errors.Is(err, actuator.ErrInvalidStatus) ||
		errors.Is(err, actuator.ErrInvalidAngle)
}
