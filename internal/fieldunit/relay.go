package fieldunit

import (
	"fmt"
	"sync"

	"github.com/norian27/Smart-Greenhouse-System/internal/actuator"
)

// Pin abstracts one digital output line.
type Pin interface {
	Set(high bool) error
}

// ServoPin abstracts an angle-settable output.
type ServoPin interface {
	Move(degrees int) error
}

// Driver is the actuator hardware surface the control handler uses.
// All mutations are synchronous: they complete, or fail, before the
// caller reports any status.
type Driver interface {
	// SetOn drives the relay. Setting the current state is a no-op
	// that touches no hardware.
	SetOn(on bool) error

	// On reports the last driven relay state.
	On() bool

	// SetAngle positions an angle-capable actuator, clamping to
	// [0,90], and returns the angle actually driven. Drivers without
	// a servo return ErrNoServo.
	SetAngle(degrees int) (int, error)
}

// Relay drives a plain on/off actuator through one pin. A mutex makes
// it safe to share between the control handler and the watchdog.
type Relay struct {
	mu  sync.Mutex
	pin Pin
	on  bool
}

// NewRelay creates a relay driver. The relay starts off.
func NewRelay(pin Pin) *Relay {
	return &Relay{pin: pin}
}

// SetOn drives the relay, idempotently.
func (r *Relay) SetOn(on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.on == on {
		return nil
	}
	if err := r.pin.Set(on); err != nil {
		return fmt.Errorf("driving relay: %w", err)
	}
	r.on = on
	return nil
}

// On reports the last driven relay state.
func (r *Relay) On() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.on
}

// SetAngle always fails: a bare relay has no servo.
func (r *Relay) SetAngle(int) (int, error) {
	return 0, ErrNoServo
}

// WindowDrive is a relay paired with a servo for the window opener.
type WindowDrive struct {
	Relay
	servo ServoPin
	angle int
}

// NewWindowDrive creates a window driver. The window starts closed.
func NewWindowDrive(pin Pin, servo ServoPin) *WindowDrive {
	return &WindowDrive{Relay: Relay{pin: pin}, servo: servo}
}

// SetAngle positions the window, clamping to the mechanical range.
func (w *WindowDrive) SetAngle(degrees int) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	degrees = actuator.ClampAngle(degrees)
	if degrees == w.angle {
		return degrees, nil
	}
	if err := w.servo.Move(degrees); err != nil {
		return w.angle, fmt.Errorf("driving servo: %w", err)
	}
	w.angle = degrees
	return degrees, nil
}

// Angle reports the last driven angle.
func (w *WindowDrive) Angle() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.angle
}
