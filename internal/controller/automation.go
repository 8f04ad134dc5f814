package controller

import (
	"context"

	"github.com/norian27/Smart-Greenhouse-System/internal/actuator"
)

// Automation control bands. Hysteresis keeps climate actuators from
// chattering around their target; the moisture tolerance plays the
// same role for irrigation.
const (
	// climateHysteresis is the band, in degrees, around an actuator's
	// target temperature.
	climateHysteresis = 1.0

	// moistureTolerance is the band, in percent, around an actuator's
	// target soil moisture.
	moistureTolerance = 0.5

	// windowOpenAngle is the angle commanded when ventilation kicks in.
	windowOpenAngle = actuator.MaxAngle
)

// Sensor types the automation reacts to.
const (
	sensorTemperature  = "temperature"
	sensorSoilMoisture = "soil_moisture"
)

// Automation drives actuators from sensor readings using a fixed
// per-kind policy against each actuator's persisted target value.
// It only nudges actuators that are settled: anything with a command
// in flight (waiting) or already in the desired state is left alone.
type Automation struct {
	repo       actuator.Repository
	dispatcher *Dispatcher
	logger     Logger
}

// NewAutomation creates an automation engine.
func NewAutomation(repo actuator.Repository, dispatcher *Dispatcher, logger Logger) *Automation {
	return &Automation{
		repo:       repo,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Evaluate runs one automation pass over a greenhouse's actuators for
// a fresh set of readings. Dispatch failures are logged and skipped;
// the next report triggers another pass.
func (a *Automation) Evaluate(ctx context.Context, greenhouseID string, readings map[string]float64) {
	acts, err := a.repo.ListByGreenhouse(ctx, greenhouseID)
	if err != nil {
		a.logger.Error("listing actuators for automation",
			"greenhouse_id", greenhouseID, "error", err)
		return
	}

	for i := range acts {
		act := &acts[i]
		if act.Status == actuator.StatusWaiting {
			continue
		}

		action, angle, ok := a.decide(act, readings)
		if !ok {
			continue
		}

		if err := a.dispatcher.Issue(ctx, act.ID, action, angle); err != nil {
			a.logger.Error("automation dispatch failed",
				"actuator_id", act.ID, "action", action, "error", err)
		}
	}
}

// decide picks the action for one actuator, or reports none is needed.
func (a *Automation) decide(act *actuator.Actuator, readings map[string]float64) (Action, int, bool) {
	switch act.Kind {
	case actuator.KindCooling:
		temp, ok := readings[sensorTemperature]
		if !ok {
			return "", 0, false
		}
		if !act.IsActive && temp > act.TargetValue+climateHysteresis {
			return ActionActivate, 0, true
		}
		if act.IsActive && temp <= act.TargetValue {
			return ActionDeactivate, 0, true
		}

	case actuator.KindHeating:
		temp, ok := readings[sensorTemperature]
		if !ok {
			return "", 0, false
		}
		if !act.IsActive && temp < act.TargetValue-climateHysteresis {
			return ActionActivate, 0, true
		}
		if act.IsActive && temp >= act.TargetValue {
			return ActionDeactivate, 0, true
		}

	case actuator.KindSprinkler:
		moisture, ok := readings[sensorSoilMoisture]
		if !ok {
			return "", 0, false
		}
		if !act.IsActive && moisture < act.TargetValue-moistureTolerance {
			return ActionActivate, 0, true
		}
		if act.IsActive && moisture >= act.TargetValue {
			return ActionDeactivate, 0, true
		}

	case actuator.KindWindow:
		temp, ok := readings[sensorTemperature]
		if !ok {
			return "", 0, false
		}
		if !act.IsActive && temp > act.TargetValue+climateHysteresis {
			return ActionActivate, windowOpenAngle, true
		}
		if act.IsActive && temp <= act.TargetValue {
			return ActionDeactivate, 0, true
		}
	}

	return "", 0, false
}
