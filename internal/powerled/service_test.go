package powerled

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/powerled/internal/events"
	"github.com/smazurov/powerled/internal/led"
	"github.com/smazurov/powerled/internal/postcode"
	"github.com/smazurov/powerled/internal/tracker"
)

var (
	startRef = postcode.Code{0x01, 0x10, 0x00}
	endRef   = postcode.Code{0x01, 0x20, 0x00}

	testGroups = led.Groups{Booted: "bmc_booted", PostActive: "post_active", PoweredOn: "power_on"}
)

// recordingController remembers the last requested state of every group
// and counts the Set calls.
type recordingController struct {
	mu     sync.Mutex
	state  map[string]bool
	calls  int
	failOn string
}

func newRecordingController() *recordingController {
	return &recordingController{state: make(map[string]bool)}
}

func (c *recordingController) Set(group string, asserted bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if group == c.failOn {
		return errors.New("bus unavailable")
	}
	c.state[group] = asserted
	return nil
}

func (c *recordingController) Available() []string { return nil }

func (c *recordingController) asserted() map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]bool, len(c.state))
	for k, v := range c.state {
		out[k] = v
	}
	return out
}

func (c *recordingController) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// fakeSource is a Source driven directly by the test. Events emitted
// after Subscribe and before Watch are queued like bus signals.
type fakeSource struct {
	powered      bool
	powerErr     error
	history      []postcode.Entry
	historyErr   error
	subscribeErr error
	watchErr     error

	// duringHistory runs inside PostCodes, after the history was captured.
	duringHistory func(f *fakeSource)

	calls      []string
	subscribed bool
	queued     []tracker.Event
	handle     func(tracker.Event)
}

func (f *fakeSource) Subscribe(_ context.Context) error {
	f.calls = append(f.calls, "subscribe")
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.subscribed = true
	return nil
}

func (f *fakeSource) HostPowered(_ context.Context) (bool, error) {
	f.calls = append(f.calls, "power")
	return f.powered, f.powerErr
}

func (f *fakeSource) PostCodes(_ context.Context) ([]postcode.Entry, error) {
	f.calls = append(f.calls, "history")
	history, err := f.history, f.historyErr
	if f.duringHistory != nil {
		f.duringHistory(f)
	}
	return history, err
}

func (f *fakeSource) Watch(_ context.Context, handle func(tracker.Event)) error {
	f.calls = append(f.calls, "watch")
	if f.watchErr != nil {
		return f.watchErr
	}
	f.handle = handle
	for _, ev := range f.queued {
		handle(ev)
	}
	f.queued = nil
	return nil
}

// emit delivers ev, or queues it while the source is subscribed but not
// yet watched. Events before Subscribe are lost, as on the bus.
func (f *fakeSource) emit(ev tracker.Event) {
	switch {
	case f.handle != nil:
		f.handle(ev)
	case f.subscribed:
		f.queued = append(f.queued, ev)
	}
}

func entry(secondary ...byte) postcode.Entry {
	return postcode.Entry{Primary: 0, Secondary: postcode.Code(secondary)}
}

func newTestService(t *testing.T, requireHistory bool) (*Service, *recordingController, *led.Manager) {
	t.Helper()
	ctrl := newRecordingController()
	leds := led.NewManager(ctrl, testGroups, nil, nil)
	svc := New(Options{
		References:     tracker.References{Start: startRef, End: endRef},
		LEDs:           leds,
		RequireHistory: requireHistory,
	})
	return svc, ctrl, leds
}

func assertPresentation(t *testing.T, leds *led.Manager, ctrl *recordingController, want led.Presentation) {
	t.Helper()
	got, ok := leds.Current()
	if !ok {
		t.Fatal("no presentation applied")
	}
	if got != want {
		t.Fatalf("presentation = %s, want %s", got, want)
	}

	expected := map[string]bool{
		testGroups.Booted:     want == led.Standby,
		testGroups.PostActive: want == led.PostActive,
		testGroups.PoweredOn:  want == led.PoweredOnComplete,
	}
	asserted := ctrl.asserted()
	for group, on := range expected {
		if asserted[group] != on {
			t.Errorf("group %s asserted = %v, want %v", group, asserted[group], on)
		}
	}
}

func TestService_ScenarioA_StartupPoweredOff(t *testing.T) {
	svc, ctrl, leds := newTestService(t, false)
	src := &fakeSource{powered: false}

	if err := svc.Start(context.Background(), src); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	assertPresentation(t, leds, ctrl, led.Standby)
	if src.handle == nil {
		t.Fatal("Start did not subscribe to events")
	}
}

func TestService_ScenariosBtoD(t *testing.T) {
	svc, ctrl, leds := newTestService(t, false)
	src := &fakeSource{powered: false}
	if err := svc.Start(context.Background(), src); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// B: power on, then the start code.
	src.handle(tracker.PowerChanged{On: true})
	assertPresentation(t, leds, ctrl, led.Standby)
	src.handle(tracker.CodesObserved{Codes: []postcode.Entry{entry(0x01, 0x10, 0x07)}})
	assertPresentation(t, leds, ctrl, led.PostActive)

	// C: the end code.
	src.handle(tracker.CodesObserved{Codes: []postcode.Entry{entry(0x01, 0x20, 0x03)}})
	assertPresentation(t, leds, ctrl, led.PoweredOnComplete)

	// D: power off resets the boot flags.
	src.handle(tracker.PowerChanged{On: false})
	assertPresentation(t, leds, ctrl, led.Standby)

	status, err := svc.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if status.State.BootStarted || status.State.BootEnded {
		t.Errorf("boot flags not reset after power off: %+v", status.State)
	}
}

func TestService_BatchRecomputesOnce(t *testing.T) {
	svc, ctrl, leds := newTestService(t, false)
	src := &fakeSource{powered: true}
	if err := svc.Start(context.Background(), src); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	before := ctrl.callCount()

	src.handle(tracker.CodesObserved{Codes: []postcode.Entry{
		entry(0x7f, 0x00),
		entry(0x01, 0x10, 0x00),
		entry(0x01, 0x20, 0x00),
	}})

	if got := ctrl.callCount() - before; got != 3 {
		t.Errorf("Set called %d times, want 3 (one recomputation)", got)
	}
	assertPresentation(t, leds, ctrl, led.PoweredOnComplete)
}

func TestService_NoChangeNoActuation(t *testing.T) {
	svc, ctrl, _ := newTestService(t, false)
	src := &fakeSource{powered: true}
	if err := svc.Start(context.Background(), src); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	before := ctrl.callCount()

	src.handle(tracker.PowerChanged{On: true})
	src.handle(tracker.CodesObserved{Codes: []postcode.Entry{entry(0x42, 0x00)}})

	if got := ctrl.callCount(); got != before {
		t.Errorf("Set called %d more times, want none", got-before)
	}
}

func TestService_ReconcilesHistory(t *testing.T) {
	svc, ctrl, leds := newTestService(t, false)
	src := &fakeSource{
		powered: true,
		history: []postcode.Entry{entry(0x00, 0x01), entry(0x01, 0x10, 0x00)},
	}
	if err := svc.Start(context.Background(), src); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	assertPresentation(t, leds, ctrl, led.PostActive)
}

func TestService_EventDuringReconciliation(t *testing.T) {
	svc, ctrl, leds := newTestService(t, false)
	src := &fakeSource{
		powered: true,
		history: []postcode.Entry{entry(0x01, 0x10, 0x00)},
		duringHistory: func(f *fakeSource) {
			f.emit(tracker.PowerChanged{On: false})
		},
	}

	if err := svc.Start(context.Background(), src); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	assertPresentation(t, leds, ctrl, led.Standby)
	status, err := svc.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if status.State != (tracker.State{}) {
		t.Errorf("state = %+v, want host off with boot flags cleared", status.State)
	}
}

func TestService_SubscribesBeforeQueries(t *testing.T) {
	svc, _, _ := newTestService(t, false)
	src := &fakeSource{powered: true}
	if err := svc.Start(context.Background(), src); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	want := []string{"subscribe", "power", "history", "watch"}
	if len(src.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", src.calls, want)
	}
	for i := range want {
		if src.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", src.calls, want)
		}
	}
}

func TestService_SubscribeFailure(t *testing.T) {
	svc, ctrl, _ := newTestService(t, false)
	subErr := errors.New("match rule rejected")
	src := &fakeSource{powered: true, subscribeErr: subErr}

	if err := svc.Start(context.Background(), src); !errors.Is(err, subErr) {
		t.Fatalf("Start() error = %v, want %v", err, subErr)
	}
	if ctrl.callCount() != 0 {
		t.Error("LED groups set despite failed subscription")
	}
	if len(src.calls) != 1 {
		t.Errorf("queried the host after a failed subscription: %v", src.calls)
	}
}

func TestService_HistoryFailure(t *testing.T) {
	t.Run("degrades to empty history", func(t *testing.T) {
		svc, ctrl, leds := newTestService(t, false)
		src := &fakeSource{powered: true, historyErr: errors.New("no such service")}
		if err := svc.Start(context.Background(), src); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		assertPresentation(t, leds, ctrl, led.Standby)
	})

	t.Run("fatal when required", func(t *testing.T) {
		svc, ctrl, _ := newTestService(t, true)
		historyErr := errors.New("no such service")
		src := &fakeSource{powered: true, historyErr: historyErr}
		if err := svc.Start(context.Background(), src); !errors.Is(err, historyErr) {
			t.Fatalf("Start() error = %v, want %v", err, historyErr)
		}
		if ctrl.callCount() != 0 {
			t.Error("LED groups set despite failed startup")
		}
	})
}

func TestService_PowerQueryFailureIsFatal(t *testing.T) {
	svc, ctrl, _ := newTestService(t, false)
	powerErr := errors.New("host state unavailable")
	src := &fakeSource{powerErr: powerErr}

	if err := svc.Start(context.Background(), src); !errors.Is(err, powerErr) {
		t.Fatalf("Start() error = %v, want %v", err, powerErr)
	}
	if ctrl.callCount() != 0 {
		t.Error("LED groups set despite failed startup")
	}
	if _, err := svc.Snapshot(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Snapshot() error = %v, want ErrNotStarted", err)
	}
}

func TestService_WatchFailure(t *testing.T) {
	svc, _, _ := newTestService(t, false)
	watchErr := errors.New("match rule rejected")
	src := &fakeSource{watchErr: watchErr}

	if err := svc.Start(context.Background(), src); !errors.Is(err, watchErr) {
		t.Fatalf("Start() error = %v, want %v", err, watchErr)
	}
}

func TestService_ActuationFailureKeepsState(t *testing.T) {
	svc, ctrl, _ := newTestService(t, false)
	ctrl.failOn = testGroups.PostActive
	src := &fakeSource{powered: true}
	if err := svc.Start(context.Background(), src); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	src.handle(tracker.CodesObserved{Codes: []postcode.Entry{entry(0x01, 0x10, 0x00)}})

	status, err := svc.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if !status.State.BootStarted {
		t.Error("BootStarted rolled back after actuation failure")
	}
	if status.Presentation != led.PostActive {
		t.Errorf("presentation = %s, want post_active", status.Presentation)
	}
}

func TestService_Reapply(t *testing.T) {
	svc, ctrl, leds := newTestService(t, false)
	if err := svc.Reapply(); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("Reapply() before Start error = %v, want ErrNotStarted", err)
	}

	src := &fakeSource{powered: true, history: []postcode.Entry{entry(0x01, 0x10, 0x00)}}
	if err := svc.Start(context.Background(), src); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	before := ctrl.callCount()

	if err := svc.Reapply(); err != nil {
		t.Fatalf("Reapply failed: %v", err)
	}
	if got := ctrl.callCount() - before; got != 3 {
		t.Errorf("Set called %d times, want 3", got)
	}
	assertPresentation(t, leds, ctrl, led.PostActive)
}

func TestService_HandleBeforeStart(t *testing.T) {
	svc, ctrl, _ := newTestService(t, false)
	svc.Handle(tracker.PowerChanged{On: true})
	if ctrl.callCount() != 0 {
		t.Error("event handled before startup")
	}
}

func TestService_PublishesBootState(t *testing.T) {
	bus := events.New()
	received := make(chan events.BootStateChangedEvent, 4)
	unsub := bus.Subscribe(func(e events.BootStateChangedEvent) {
		received <- e
	})
	defer unsub()

	ctrl := newRecordingController()
	svc := New(Options{
		References: tracker.References{Start: startRef, End: endRef},
		LEDs:       led.NewManager(ctrl, testGroups, bus, nil),
		EventBus:   bus,
	})
	src := &fakeSource{powered: false}
	if err := svc.Start(context.Background(), src); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	src.handle(tracker.PowerChanged{On: true})

	for _, want := range []string{CauseStartup, CausePower} {
		select {
		case ev := <-received:
			if ev.Cause != want {
				t.Errorf("cause = %q, want %q", ev.Cause, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s event", want)
		}
	}
}
