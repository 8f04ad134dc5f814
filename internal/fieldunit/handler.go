package fieldunit

import (
	"encoding/json"

	"github.com/norian27/Smart-Greenhouse-System/internal/actuator"
)

// Logger is the logging surface used on the device. Satisfied by
// *logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Handler interprets inbound control commands for one actuator. It is
// single-threaded: the transport delivers commands sequentially, and
// each command runs to completion before the next.
type Handler struct {
	kind     actuator.Kind
	driver   Driver
	counter  *PulseCounter
	store    *Store
	emit     func(responseMessage)
	logger   Logger
	watchdog func() // starts a monitoring run; swapped out in tests
}

// NewHandler creates a control handler. emit publishes a response on
// the device's control response channel.
func NewHandler(kind actuator.Kind, driver Driver, counter *PulseCounter, store *Store, emit func(responseMessage), logger Logger) *Handler {
	h := &Handler{
		kind:    kind,
		driver:  driver,
		counter: counter,
		store:   store,
		emit:    emit,
		logger:  logger,
	}
	h.watchdog = func() {
		active := func() bool { return store.Get().Accounting }
		go NewWatchdog(store, counter, driver, emit, active, logger).Run()
	}
	return h
}

// HandleCommand processes one inbound command payload. Malformed
// payloads and unknown actions are logged and dropped without a
// response; answering them would only amplify noise on the bus.
func (h *Handler) HandleCommand(payload []byte) {
	var cmd commandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		h.logger.Warn("dropping malformed command", "error", err)
		return
	}

	switch cmd.Action {
	case actionActivate, actionAdjust:
		h.activate(cmd)
	case actionDeactivate:
		h.deactivate()
	case actionReset:
		h.reset()
	default:
		h.logger.Warn("dropping unknown command", "action", cmd.Action)
	}
}

// activate starts a cycle. For windows the angle is driven before the
// started response goes out; for metered kinds an exhausted ledger
// refuses the command without touching the relay.
func (h *Handler) activate(cmd commandMessage) {
	st := h.store.Get()

	if h.kind.Angled() && cmd.Angle != nil {
		driven, err := h.driver.SetAngle(*cmd.Angle)
		if err != nil {
			h.logger.Error("driving angle failed", "angle", *cmd.Angle, "error", err)
			return
		}
		if err := h.store.Update(func(s *State) { s.Angle = driven }); err != nil {
			h.logger.Error("persisting angle failed", "error", err)
		}
	}

	if h.kind.Metered() && LedgerExhausted(st.UsedUnits, st.CapacityUnits) {
		h.logger.Warn("activation refused, ledger exhausted",
			"used_units", st.UsedUnits, "capacity_units", st.CapacityUnits)
		h.emit(responseMessage{
			UniqueIdentifier: st.UniqueID,
			Status:           statusRefused,
			Data: &resultData{
				RemainingPercent: RemainingPercent(st.UsedUnits, st.CapacityUnits),
			},
		})
		return
	}

	if err := h.driver.SetOn(true); err != nil {
		h.logger.Error("driving relay on failed", "error", err)
		return
	}

	h.emit(responseMessage{UniqueIdentifier: st.UniqueID, Status: statusStarted})

	if h.kind.Metered() {
		if err := h.store.Update(func(s *State) { s.Accounting = true }); err != nil {
			h.logger.Error("enabling accounting failed", "error", err)
		}
		h.watchdog()
	}

	h.logger.Info("cycle started", "action", cmd.Action)
}

// deactivate stops a cycle unconditionally. The accounting flag is
// captured before any mutation: if the watchdog disabled it a moment
// ago the final pulses were already folded, and folding again would
// double-count.
func (h *Handler) deactivate() {
	accounting := h.store.Get().Accounting

	if err := h.driver.SetOn(false); err != nil {
		h.logger.Error("driving relay off failed", "error", err)
		return
	}

	pulses := h.counter.ReadAndReset()

	var st State
	err := h.store.Update(func(s *State) {
		if accounting {
			s.UsedUnits += pulses
			s.Accounting = false
		}
		st = *s
	})
	if err != nil {
		h.logger.Error("folding ledger failed", "error", err)
		return
	}

	resp := responseMessage{UniqueIdentifier: st.UniqueID, Status: statusCompleted}
	if h.kind.Metered() {
		folded := pulses
		if !accounting {
			folded = 0
		}
		resp.Data = &resultData{
			RemainingPercent: RemainingPercent(st.UsedUnits, st.CapacityUnits),
			PulsesFolded:     folded,
		}
	}
	h.emit(resp)
	h.logger.Info("cycle completed", "pulses_folded", pulses)
}

// reset zeroes the ledger. Fire-and-forget: no response is emitted.
func (h *Handler) reset() {
	if !h.kind.Metered() {
		h.logger.Warn("dropping reset for non-metered actuator", "kind", h.kind)
		return
	}
	if err := h.store.Update(func(s *State) { s.UsedUnits = 0 }); err != nil {
		h.logger.Error("resetting ledger failed", "error", err)
		return
	}
	h.logger.Info("ledger reset")
}
