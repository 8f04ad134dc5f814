package fieldunit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/norian27/Smart-Greenhouse-System/internal/actuator"
)

type watchdogFixture struct {
	watchdog  *Watchdog
	driver    *loggingDriver
	counter   *PulseCounter
	store     *Store
	responses *[]responseMessage
}

func newWatchdogFixture(t *testing.T) *watchdogFixture {
	t.Helper()

	store, err := OpenStore(filepath.Join(t.TempDir(), "state.json"), "act-1")
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}

	log := &eventLog{}
	driver := &loggingDriver{log: log, on: true}
	counter := NewPulseCounter()
	now := time.Now()
	counter.now = func() time.Time {
		now = now.Add(20 * time.Millisecond)
		return now
	}

	responses := &[]responseMessage{}
	emit := func(resp responseMessage) {
		*responses = append(*responses, resp)
	}

	active := func() bool { return store.Get().Accounting }
	return &watchdogFixture{
		watchdog:  NewWatchdog(store, counter, driver, emit, active, nopLogger{}),
		driver:    driver,
		counter:   counter,
		store:     store,
		responses: responses,
	}
}

func TestWatchdog_ContinuesWithCapacityLeft(t *testing.T) {
	f := newWatchdogFixture(t)
	if err := f.store.Update(func(s *State) { s.Accounting = true }); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 100; i++ {
		f.counter.OnEdge()
	}

	if done := f.watchdog.tick(); done {
		t.Error("tick() = done with capacity left")
	}
	if len(*f.responses) != 0 {
		t.Error("watchdog emitted while capacity remained")
	}
	if !f.driver.On() {
		t.Error("watchdog cut the relay with capacity left")
	}
}

func TestWatchdog_ExitsSilentlyAfterExternalDeactivate(t *testing.T) {
	f := newWatchdogFixture(t)
	// Accounting off: a deactivate command already ended the cycle.

	if done := f.watchdog.tick(); !done {
		t.Error("tick() = keep running after external deactivate")
	}
	if len(*f.responses) != 0 {
		t.Error("watchdog emitted after external deactivate")
	}
}

// The continue-or-exit decision comes from the injected check alone,
// not from the watchdog peeking at the ledger: even with an exhausted
// ledger in the store, a check reporting "cycle over" wins.
func TestWatchdog_InjectedCheckDecidesExit(t *testing.T) {
	f := newWatchdogFixture(t)
	if err := f.store.Update(func(s *State) {
		s.Accounting = true
		s.UsedUnits = s.CapacityUnits + 100
	}); err != nil {
		t.Fatal(err)
	}

	f.watchdog.active = func() bool { return false }

	if done := f.watchdog.tick(); !done {
		t.Error("tick() = keep running against inactive check")
	}
	if len(*f.responses) != 0 {
		t.Error("watchdog emitted after check reported cycle over")
	}
	if !f.driver.On() {
		t.Error("watchdog touched the relay after check reported cycle over")
	}
}

func TestWatchdog_CutsOffAtCapacity(t *testing.T) {
	f := newWatchdogFixture(t)
	if err := f.store.Update(func(s *State) {
		s.Accounting = true
		s.UsedUnits = s.CapacityUnits - 50
	}); err != nil {
		t.Fatal(err)
	}

	// Pending pulses push the projection past capacity.
	for i := 0; i < 60; i++ {
		f.counter.OnEdge()
	}

	if done := f.watchdog.tick(); !done {
		t.Fatal("tick() = keep running at capacity")
	}

	if f.driver.On() {
		t.Error("relay still on after cutoff")
	}

	st := f.store.Get()
	if st.Accounting {
		t.Error("accounting still enabled after cutoff")
	}
	if want := st.CapacityUnits + 10; st.UsedUnits != want {
		t.Errorf("UsedUnits = %d, want %d (final burst folded)", st.UsedUnits, want)
	}
	if f.counter.Count() != 0 {
		t.Error("counter not reset by cutoff")
	}

	if len(*f.responses) != 1 {
		t.Fatalf("responses = %d, want 1 refusal", len(*f.responses))
	}
	resp := (*f.responses)[0]
	if resp.Status != statusRefused {
		t.Errorf("Status = %q, want refused", resp.Status)
	}
	if resp.Data == nil || resp.Data.RemainingPercent != 0 {
		t.Errorf("Data = %+v, want remaining 0", resp.Data)
	}
	if resp.Data.PulsesFolded != 60 {
		t.Errorf("PulsesFolded = %d, want 60", resp.Data.PulsesFolded)
	}
}

func TestWatchdog_RunStopsAfterCutoff(t *testing.T) {
	f := newWatchdogFixture(t)
	f.watchdog.interval = 5 * time.Millisecond
	if err := f.store.Update(func(s *State) {
		s.Accounting = true
		s.UsedUnits = s.CapacityUnits
	}); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		f.watchdog.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not terminate after cutoff")
	}
}

// The full race the accounting flag exists for: the watchdog cuts off
// at capacity, then a deactivate command lands. The deactivate must
// not fold a second time.
func TestWatchdog_ThenDeactivateNoDoubleFold(t *testing.T) {
	f := newWatchdogFixture(t)
	if err := f.store.Update(func(s *State) {
		s.Accounting = true
		s.UsedUnits = s.CapacityUnits - 10
	}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		f.counter.OnEdge()
	}

	if done := f.watchdog.tick(); !done {
		t.Fatal("tick() = keep running at capacity")
	}
	usedAfterCutoff := f.store.Get().UsedUnits

	handler := NewHandler(actuator.KindSprinkler, f.driver, f.counter, f.store,
		func(resp responseMessage) { *f.responses = append(*f.responses, resp) }, nopLogger{})
	handler.watchdog = func() {}
	handler.HandleCommand([]byte(`{"unique_identifier":"act-1","action":"deactivate"}`))

	if got := f.store.Get().UsedUnits; got != usedAfterCutoff {
		t.Errorf("UsedUnits = %d, want %d unchanged by late deactivate", got, usedAfterCutoff)
	}
}
