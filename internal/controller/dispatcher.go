package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/norian27/Smart-Greenhouse-System/internal/actuator"
	"github.com/norian27/Smart-Greenhouse-System/internal/infrastructure/mqtt"
)

// commandQoS is the delivery quality for actuator commands.
// At-least-once: a lost command would strand the actuator in waiting.
const commandQoS = 1

// Dispatcher issues commands to actuator devices. The device is the
// source of truth for refusal, so the dispatcher never second-guesses
// an activation server-side; it always sends and lets the device
// answer refused when its ledger is exhausted.
type Dispatcher struct {
	repo    actuator.Repository
	bus     MessageBus
	tracker *Tracker
	topics  mqtt.Topics
	logger  Logger
}

// NewDispatcher creates a command dispatcher.
func NewDispatcher(repo actuator.Repository, bus MessageBus, tracker *Tracker, logger Logger) *Dispatcher {
	return &Dispatcher{
		repo:    repo,
		bus:     bus,
		tracker: tracker,
		logger:  logger,
	}
}

// Issue sends a command to an actuator and arms the confirmation
// deadline. For window actuators the commanded angle rides along on
// activate and adjust; other kinds ignore it.
//
// If the publish fails the error is returned and the actuator record is
// left untouched: no waiting transition, no armed deadline.
func (d *Dispatcher) Issue(ctx context.Context, actuatorID string, action Action, angle int) error {
	if !action.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	act, err := d.repo.GetByID(ctx, actuatorID)
	if err != nil {
		return fmt.Errorf("loading actuator %s: %w", actuatorID, err)
	}

	cmd := CommandMessage{
		UniqueIdentifier: act.ID,
		Action:           action,
	}
	carriesAngle := act.Kind.Angled() && (action == ActionActivate || action == ActionAdjust)
	if carriesAngle {
		angle = actuator.ClampAngle(angle)
		cmd.Angle = &angle
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encoding command: %w", err)
	}

	topic := d.topics.ControlCommand(act.ID)
	if err := d.bus.Publish(topic, payload, commandQoS, false); err != nil {
		return fmt.Errorf("publishing command to %s: %w", topic, err)
	}

	// Reset is fire-and-forget: the device emits no response, so there
	// is nothing to wait for and no status transition.
	if action == ActionReset {
		d.logger.Info("reset command issued", "actuator_id", act.ID)
		return nil
	}

	if carriesAngle {
		if err := d.repo.UpdateAngle(ctx, act.ID, angle); err != nil {
			return fmt.Errorf("persisting window angle: %w", err)
		}
	}
	if err := d.repo.UpdateStatus(ctx, act.ID, actuator.StatusWaiting, act.IsActive); err != nil {
		return fmt.Errorf("marking actuator waiting: %w", err)
	}
	if action == ActionActivate || action == ActionAdjust {
		if err := d.repo.MarkActivated(ctx, act.ID, time.Now().UTC()); err != nil {
			d.logger.Error("recording activation time", "actuator_id", act.ID, "error", err)
		}
	}

	d.tracker.Arm(act.ID)
	d.logger.Info("command issued",
		"actuator_id", act.ID, "action", action, "topic", topic)
	return nil
}
