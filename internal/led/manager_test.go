package led

import (
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/powerled/internal/events"
)

// Mock controller for testing
type mockController struct {
	mu       sync.Mutex
	setCalls []Assignment
	failOn   string
}

func (m *mockController) Set(group string, asserted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls = append(m.setCalls, Assignment{Group: group, Asserted: asserted})
	if group == m.failOn {
		return errors.New("bus unavailable")
	}
	return nil
}

func (m *mockController) Available() []string {
	return []string{"bmc_booted", "post_active", "power_on"}
}

func (m *mockController) calls() []Assignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Assignment(nil), m.setCalls...)
}

var testGroups = Groups{Booted: "bmc_booted", PostActive: "post_active", PoweredOn: "power_on"}

func TestManager_Apply(t *testing.T) {
	ctrl := &mockController{}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	mgr := NewManager(ctrl, testGroups, nil, logger)

	if _, ok := mgr.Current(); ok {
		t.Fatal("Current() reported a presentation before Apply")
	}

	mgr.Apply(PostActive)

	calls := ctrl.calls()
	if len(calls) != 3 {
		t.Fatalf("Apply() made %d LED calls, want 3", len(calls))
	}
	for _, c := range calls {
		if c.Asserted != (c.Group == "post_active") {
			t.Errorf("group %s asserted = %v", c.Group, c.Asserted)
		}
	}

	if p, ok := mgr.Current(); !ok || p != PostActive {
		t.Errorf("Current() = %v, %v, want post_active", p, ok)
	}
}

func TestManager_ApplyPublishesEvents(t *testing.T) {
	ctrl := &mockController{failOn: "bmc_booted"}
	eventBus := events.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	presentations := make(chan events.PresentationChangedEvent, 2)
	failures := make(chan events.ActuationFailedEvent, 2)
	defer eventBus.Subscribe(func(e events.PresentationChangedEvent) { presentations <- e })()
	defer eventBus.Subscribe(func(e events.ActuationFailedEvent) { failures <- e })()

	mgr := NewManager(ctrl, testGroups, eventBus, logger)
	mgr.Apply(Standby)
	mgr.Apply(PostActive)

	first := receive(t, presentations)
	if first.Presentation != "standby" || first.Previous != "" {
		t.Errorf("first event = %+v", first)
	}
	second := receive(t, presentations)
	if second.Presentation != "post_active" || second.Previous != "standby" {
		t.Errorf("second event = %+v", second)
	}

	// The booted group fails on both applies; the other groups are still set.
	failure := receive(t, failures)
	if failure.Group != "bmc_booted" || !failure.Asserted {
		t.Errorf("failure event = %+v", failure)
	}
	if n := len(ctrl.calls()); n != 6 {
		t.Errorf("got %d LED calls, want 6", n)
	}
}

func TestManager_GetController(t *testing.T) {
	ctrl := &mockController{}
	mgr := NewManager(ctrl, testGroups, nil, nil)

	if got := mgr.GetController(); got != ctrl {
		t.Error("GetController() did not return the wrapped controller")
	}
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
	var zero T
	return zero
}
