package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/norian27/Smart-Greenhouse-System/internal/actuator"
)

// Tracker watches issued commands for confirmation. Every command gets
// a deadline; a device response cancels it, and an expired deadline
// marks the actuator unreachable.
//
// The pending table is the only state shared between the inbound
// dispatch path and the timer goroutines. A single mutex guards it, so
// cancellation and expiry are mutually exclusive per actuator:
// whichever observes the pending entry first wins and the other is a
// no-op.
type Tracker struct {
	repo        actuator.Repository
	broadcaster Broadcaster
	logger      Logger
	timeout     time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewTracker creates a confirmation tracker. broadcaster may be nil.
func NewTracker(repo actuator.Repository, broadcaster Broadcaster, logger Logger, timeout time.Duration) *Tracker {
	return &Tracker{
		repo:        repo,
		broadcaster: broadcaster,
		logger:      logger,
		timeout:     timeout,
		pending:     make(map[string]*time.Timer),
	}
}

// Arm starts the confirmation deadline for an actuator. Re-arming an
// actuator with a command already in flight replaces the old deadline.
func (t *Tracker) Arm(actuatorID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if timer, ok := t.pending[actuatorID]; ok {
		timer.Stop()
	}
	// The closure captures its own timer so a fired deadline can tell
	// whether the entry it finds is still the one it was armed for.
	// Stop() cannot unqueue an AfterFunc that already fired; without
	// the identity check such a stale expiry would consume a re-armed
	// command's entry.
	var timer *time.Timer
	timer = time.AfterFunc(t.timeout, func() {
		t.expire(actuatorID, timer)
	})
	t.pending[actuatorID] = timer
}

// Pending reports whether a confirmation is outstanding for an actuator.
func (t *Tracker) Pending(actuatorID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[actuatorID]
	return ok
}

// cancel removes the pending entry and stops its timer, if present.
// Returns whether an entry existed.
func (t *Tracker) cancel(actuatorID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	timer, ok := t.pending[actuatorID]
	if !ok {
		return false
	}
	timer.Stop()
	delete(t.pending, actuatorID)
	return true
}

// expire runs on the timer goroutine when a deadline passes. If a
// response already claimed the entry, or the actuator was re-armed for
// a newer command, this is a no-op.
func (t *Tracker) expire(actuatorID string, timer *time.Timer) {
	t.mu.Lock()
	if t.pending[actuatorID] != timer {
		t.mu.Unlock()
		return
	}
	delete(t.pending, actuatorID)
	t.mu.Unlock()

	ctx, cancelCtx := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelCtx()

	if err := t.repo.UpdateStatus(ctx, actuatorID, actuator.StatusUnreachable, false); err != nil {
		t.logger.Error("marking actuator unreachable", "actuator_id", actuatorID, "error", err)
		return
	}
	t.logger.Warn("no confirmation from actuator within deadline",
		"actuator_id", actuatorID, "timeout", t.timeout)
	t.broadcast(ctx, actuatorID)
}

// HandleResponse applies a device's command outcome. It is called from
// the inbound dispatch path. Responses arriving after the actuator was
// declared unreachable are still applied; a real answer carries more
// information than a timeout.
func (t *Tracker) HandleResponse(ctx context.Context, actuatorID string, resp ResponseMessage) error {
	t.cancel(actuatorID)

	switch resp.Status {
	case ResponseStarted:
		if err := t.repo.UpdateStatus(ctx, actuatorID, actuator.StatusStarted, true); err != nil {
			return fmt.Errorf("recording started response: %w", err)
		}
	case ResponseCompleted:
		if err := t.repo.UpdateResult(ctx, actuatorID, actuator.StatusCompleted, false, resp.Data); err != nil {
			return fmt.Errorf("recording completed response: %w", err)
		}
	case ResponseRefused:
		if err := t.repo.UpdateResult(ctx, actuatorID, actuator.StatusRefused, false, resp.Data); err != nil {
			return fmt.Errorf("recording refused response: %w", err)
		}
	default:
		t.logger.Warn("dropping response with unknown status",
			"actuator_id", actuatorID, "status", resp.Status)
		return nil
	}

	t.broadcast(ctx, actuatorID)
	return nil
}

// broadcast notifies observers of an actuator's new state. Failures
// are logged and dropped; observers never block protocol processing.
func (t *Tracker) broadcast(ctx context.Context, actuatorID string) {
	if t.broadcaster == nil {
		return
	}
	act, err := t.repo.GetByID(ctx, actuatorID)
	if err != nil {
		t.logger.Error("loading actuator for broadcast", "actuator_id", actuatorID, "error", err)
		return
	}
	t.broadcaster.ActuatorChanged(act)
}

// ResultPayload is the mirrored ledger state inside terminal sprinkler
// responses.
type ResultPayload struct {
	RemainingPercent int   `json:"remaining_percent"`
	PulsesFolded     int64 `json:"pulses_folded,omitempty"`
}

// ParseResultPayload decodes the opaque data of a terminal response.
func ParseResultPayload(data json.RawMessage) (*ResultPayload, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var p ResultPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing result payload: %w", err)
	}
	return &p, nil
}
