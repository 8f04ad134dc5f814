package fieldunit

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/norian27/Smart-Greenhouse-System/internal/actuator"
)

// eventLog records driver calls and emitted responses in order, so
// tests can assert sequencing (angle before started, relay untouched
// on refusal).
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// loggingDriver wraps driver calls into the event log.
type loggingDriver struct {
	log  *eventLog
	on   bool
	fail bool
}

func (d *loggingDriver) SetOn(on bool) error {
	if d.fail {
		return fmt.Errorf("hardware fault")
	}
	if d.on != on {
		d.log.add("relay:%v", on)
	}
	d.on = on
	return nil
}

func (d *loggingDriver) On() bool { return d.on }

func (d *loggingDriver) SetAngle(degrees int) (int, error) {
	degrees = actuator.ClampAngle(degrees)
	d.log.add("servo:%d", degrees)
	return degrees, nil
}

type handlerFixture struct {
	handler   *Handler
	driver    *loggingDriver
	counter   *PulseCounter
	store     *Store
	log       *eventLog
	responses *[]responseMessage
}

func newHandlerFixture(t *testing.T, kind actuator.Kind) *handlerFixture {
	t.Helper()

	store, err := OpenStore(filepath.Join(t.TempDir(), "state.json"), "act-1")
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}

	log := &eventLog{}
	driver := &loggingDriver{log: log}
	counter := NewPulseCounter()
	now := time.Now()
	counter.now = func() time.Time {
		now = now.Add(20 * time.Millisecond)
		return now
	}

	responses := &[]responseMessage{}
	emit := func(resp responseMessage) {
		log.add("emit:%s", resp.Status)
		*responses = append(*responses, resp)
	}

	h := NewHandler(kind, driver, counter, store, emit, nopLogger{})
	h.watchdog = func() {} // monitored separately in watchdog tests

	return &handlerFixture{
		handler:   h,
		driver:    driver,
		counter:   counter,
		store:     store,
		log:       log,
		responses: responses,
	}
}

// nopLogger discards everything.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func (f *handlerFixture) pulse(n int) {
	for i := 0; i < n; i++ {
		f.counter.OnEdge()
	}
}

func (f *handlerFixture) lastResponse(t *testing.T) responseMessage {
	t.Helper()
	if len(*f.responses) == 0 {
		t.Fatal("no response emitted")
	}
	return (*f.responses)[len(*f.responses)-1]
}

// Sprinkler cycle: activate with a fresh ledger, run one liter through
// the meter, deactivate, and land at half capacity.
func TestHandler_SprinklerFullCycle(t *testing.T) {
	f := newHandlerFixture(t, actuator.KindSprinkler)

	f.handler.HandleCommand([]byte(`{"unique_identifier":"act-1","action":"activate"}`))

	resp := f.lastResponse(t)
	if resp.Status != statusStarted {
		t.Fatalf("activate response = %q, want started", resp.Status)
	}
	if !f.driver.On() {
		t.Fatal("relay not driven on")
	}
	if !f.store.Get().Accounting {
		t.Fatal("accounting not enabled after metered activate")
	}

	f.pulse(9844) // one liter

	f.handler.HandleCommand([]byte(`{"unique_identifier":"act-1","action":"deactivate"}`))

	resp = f.lastResponse(t)
	if resp.Status != statusCompleted {
		t.Fatalf("deactivate response = %q, want completed", resp.Status)
	}
	if resp.Data == nil {
		t.Fatal("completed response carries no ledger data")
	}
	if resp.Data.RemainingPercent != 50 {
		t.Errorf("RemainingPercent = %d, want 50", resp.Data.RemainingPercent)
	}
	if resp.Data.PulsesFolded != 9844 {
		t.Errorf("PulsesFolded = %d, want 9844", resp.Data.PulsesFolded)
	}

	st := f.store.Get()
	if st.UsedUnits != 9844 {
		t.Errorf("UsedUnits = %d, want 9844", st.UsedUnits)
	}
	if st.Accounting {
		t.Error("accounting still enabled after deactivate")
	}
	if f.driver.On() {
		t.Error("relay still on after deactivate")
	}
}

// An exhausted ledger refuses activation without touching the relay.
func TestHandler_ExhaustedLedgerRefusesUntouched(t *testing.T) {
	f := newHandlerFixture(t, actuator.KindSprinkler)
	if err := f.store.Update(func(s *State) { s.UsedUnits = s.CapacityUnits }); err != nil {
		t.Fatal(err)
	}

	f.handler.HandleCommand([]byte(`{"unique_identifier":"act-1","action":"activate"}`))

	resp := f.lastResponse(t)
	if resp.Status != statusRefused {
		t.Fatalf("response = %q, want refused", resp.Status)
	}
	if resp.Data == nil || resp.Data.RemainingPercent != 0 {
		t.Errorf("refusal data = %+v, want remaining 0", resp.Data)
	}
	for _, ev := range f.log.all() {
		if ev == "relay:true" {
			t.Fatal("relay driven during refusal")
		}
	}
	if f.store.Get().Accounting {
		t.Error("accounting enabled during refusal")
	}
}

// Non-metered kinds skip the capacity check entirely.
func TestHandler_CoolingIgnoresLedger(t *testing.T) {
	f := newHandlerFixture(t, actuator.KindCooling)
	if err := f.store.Update(func(s *State) { s.UsedUnits = s.CapacityUnits }); err != nil {
		t.Fatal(err)
	}

	f.handler.HandleCommand([]byte(`{"unique_identifier":"act-1","action":"activate"}`))

	if resp := f.lastResponse(t); resp.Status != statusStarted {
		t.Errorf("response = %q, want started despite full ledger", resp.Status)
	}
}

// Window activation drives the angle before the started response.
func TestHandler_WindowAngleBeforeStarted(t *testing.T) {
	f := newHandlerFixture(t, actuator.KindWindow)

	f.handler.HandleCommand([]byte(`{"unique_identifier":"act-1","action":"activate","angle":90}`))

	events := f.log.all()
	var servoIdx, startedIdx = -1, -1
	for i, ev := range events {
		switch ev {
		case "servo:90":
			servoIdx = i
		case "emit:started":
			startedIdx = i
		}
	}
	if servoIdx < 0 || startedIdx < 0 {
		t.Fatalf("events = %v, want servo:90 and emit:started", events)
	}
	if servoIdx > startedIdx {
		t.Errorf("events = %v: angle driven after started response", events)
	}
	if f.store.Get().Angle != 90 {
		t.Errorf("persisted angle = %d, want 90", f.store.Get().Angle)
	}
}

// Deactivating twice folds the pulses exactly once.
func TestHandler_DeactivateIdempotent(t *testing.T) {
	f := newHandlerFixture(t, actuator.KindSprinkler)

	f.handler.HandleCommand([]byte(`{"unique_identifier":"act-1","action":"activate"}`))
	f.pulse(100)
	f.handler.HandleCommand([]byte(`{"unique_identifier":"act-1","action":"deactivate"}`))
	f.handler.HandleCommand([]byte(`{"unique_identifier":"act-1","action":"deactivate"}`))

	st := f.store.Get()
	if st.UsedUnits != 100 {
		t.Errorf("UsedUnits = %d, want 100 (no double fold)", st.UsedUnits)
	}

	// Both deactivations answer completed; the second folds nothing.
	resp := f.lastResponse(t)
	if resp.Status != statusCompleted {
		t.Errorf("second deactivate response = %q, want completed", resp.Status)
	}
	if resp.Data == nil || resp.Data.PulsesFolded != 0 {
		t.Errorf("second deactivate folded %+v, want 0", resp.Data)
	}
}

// Pulses counted while accounting is off (watchdog already stopped the
// cycle) are discarded, not folded.
func TestHandler_DeactivateAfterWatchdogCutoff(t *testing.T) {
	f := newHandlerFixture(t, actuator.KindSprinkler)

	f.handler.HandleCommand([]byte(`{"unique_identifier":"act-1","action":"activate"}`))
	// Watchdog raced in: folded everything and disabled accounting.
	if err := f.store.Update(func(s *State) {
		s.UsedUnits = 500
		s.Accounting = false
	}); err != nil {
		t.Fatal(err)
	}
	f.pulse(30) // residual edges after cutoff

	f.handler.HandleCommand([]byte(`{"unique_identifier":"act-1","action":"deactivate"}`))

	if st := f.store.Get(); st.UsedUnits != 500 {
		t.Errorf("UsedUnits = %d, want 500 (residual pulses not folded)", st.UsedUnits)
	}
}

func TestHandler_ResetZeroesLedger(t *testing.T) {
	f := newHandlerFixture(t, actuator.KindSprinkler)
	if err := f.store.Update(func(s *State) { s.UsedUnits = 15000 }); err != nil {
		t.Fatal(err)
	}

	f.handler.HandleCommand([]byte(`{"unique_identifier":"act-1","action":"reset"}`))

	if st := f.store.Get(); st.UsedUnits != 0 {
		t.Errorf("UsedUnits = %d, want 0 after reset", st.UsedUnits)
	}
	// Fire-and-forget: no response.
	if len(*f.responses) != 0 {
		t.Errorf("reset emitted %d responses, want 0", len(*f.responses))
	}
}

func TestHandler_UnknownActionSilentlyDropped(t *testing.T) {
	f := newHandlerFixture(t, actuator.KindSprinkler)

	f.handler.HandleCommand([]byte(`{"unique_identifier":"act-1","action":"self_destruct"}`))

	if len(*f.responses) != 0 {
		t.Errorf("unknown action emitted %d responses, want silence", len(*f.responses))
	}
	if len(f.log.all()) != 0 {
		t.Errorf("unknown action produced events: %v", f.log.all())
	}
}

func TestHandler_MalformedPayloadDropped(t *testing.T) {
	f := newHandlerFixture(t, actuator.KindSprinkler)

	f.handler.HandleCommand([]byte(`{{{`))

	if len(*f.responses) != 0 {
		t.Error("malformed payload acknowledged")
	}
}
