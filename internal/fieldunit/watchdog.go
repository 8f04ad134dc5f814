package fieldunit

import "time"

// watchdogInterval is how often the flow watchdog re-checks the ledger
// while a metered cycle runs.
const watchdogInterval = 3 * time.Second

// Watchdog cuts a metered cycle off when the ledger empties mid-run.
// It has two states, idle and monitoring; Run is the monitoring state
// and returning from it is the transition back to idle.
//
// There is no cancellation signal: the transport offers no reliable
// push-cancel, so the watchdog polls an injected activity check each
// tick and exits silently once it reports the cycle over. The handler
// wires that check to the persisted accounting flag, which an external
// deactivate clears. Correctness rests on bounded-latency self-checks,
// not external cancellation.
type Watchdog struct {
	store    *Store
	counter  *PulseCounter
	driver   Driver
	emit     func(responseMessage)
	active   func() bool
	logger   Logger
	interval time.Duration
}

// NewWatchdog creates a flow watchdog. active answers whether the
// cycle it monitors is still running; the caller injects it rather
// than the watchdog deciding for itself, so the continue-or-exit rule
// can be tested apart from the ticker.
func NewWatchdog(store *Store, counter *PulseCounter, driver Driver, emit func(responseMessage), active func() bool, logger Logger) *Watchdog {
	return &Watchdog{
		store:    store,
		counter:  counter,
		driver:   driver,
		emit:     emit,
		active:   active,
		logger:   logger,
		interval: watchdogInterval,
	}
}

// Run monitors the ledger until the cycle ends. Call it on its own
// goroutine after a metered activation.
func (w *Watchdog) Run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for range ticker.C {
		if done := w.tick(); done {
			return
		}
	}
}

// tick performs one ledger check. Returns true when monitoring ends.
func (w *Watchdog) tick() bool {
	// An external deactivate already folded the pulses and turned the
	// relay off; exit without emitting.
	if !w.active() {
		return true
	}

	st := w.store.Get()

	pending := w.counter.Count()
	if st.UsedUnits+pending < st.CapacityUnits {
		return false
	}

	// Capacity exhausted mid-run: cut the relay, fold the final burst
	// and report the auto-stop as a refusal.
	if err := w.driver.SetOn(false); err != nil {
		w.logger.Error("watchdog relay cutoff failed", "error", err)
	}
	pulses := w.counter.ReadAndReset()

	var remaining int
	err := w.store.Update(func(s *State) {
		s.UsedUnits += pulses
		s.Accounting = false
		remaining = RemainingPercent(s.UsedUnits, s.CapacityUnits)
	})
	if err != nil {
		w.logger.Error("watchdog ledger fold failed", "error", err)
		return true
	}

	w.logger.Warn("water capacity exhausted, cycle stopped",
		"pulses_folded", pulses, "remaining_percent", remaining)
	w.emit(responseMessage{
		UniqueIdentifier: st.UniqueID,
		Status:           statusRefused,
		Data:             &resultData{RemainingPercent: remaining, PulsesFolded: pulses},
	})
	return true
}
