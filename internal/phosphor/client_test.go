package phosphor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/smazurov/powerled/internal/tracker"
)

// fakeBus records match and signal channel registrations.
type fakeBus struct {
	mu          sync.Mutex
	matches     int
	removed     int
	failAddAt   int
	channels    []chan<- *dbus.Signal
	removedChan int
}

func (b *fakeBus) Object(string, dbus.ObjectPath) dbus.BusObject { return nil }

func (b *fakeBus) AddMatchSignal(...dbus.MatchOption) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failAddAt > 0 && b.matches+1 == b.failAddAt {
		return errors.New("match rule rejected")
	}
	b.matches++
	return nil
}

func (b *fakeBus) RemoveMatchSignal(...dbus.MatchOption) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removed++
	return nil
}

func (b *fakeBus) Signal(ch chan<- *dbus.Signal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.channels = append(b.channels, ch)
}

func (b *fakeBus) RemoveSignal(chan<- *dbus.Signal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removedChan++
}

func (b *fakeBus) Close() error { return nil }

func (b *fakeBus) emit(sig *dbus.Signal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.channels {
		ch <- sig
	}
}

func (b *fakeBus) counts() (matches, removed, removedChan int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.matches, b.removed, b.removedChan
}

func TestClient_SignalsQueuedBeforeWatch(t *testing.T) {
	bus := &fakeBus{}
	paths := PathsFor(0)
	client := newClient(bus, paths, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := client.Subscribe(ctx); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if matches, _, _ := bus.counts(); matches != 2 {
		t.Fatalf("registered %d matches, want 2", matches)
	}

	// Emitted while the startup queries would be running.
	bus.emit(hostSignal(paths, "Off"))

	events := make(chan tracker.Event, 4)
	if err := client.Watch(ctx, func(ev tracker.Event) { events <- ev }); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if matches, _, _ := bus.counts(); matches != 2 {
		t.Errorf("Watch registered the matches again: %d", matches)
	}

	select {
	case ev := <-events:
		if ev != (tracker.PowerChanged{On: false}) {
			t.Errorf("event = %#v, want power off", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("signal emitted before Watch was not delivered")
	}
}

func TestClient_CancelRemovesMatches(t *testing.T) {
	bus := &fakeBus{}
	client := newClient(bus, PathsFor(0), nil)

	ctx, cancel := context.WithCancel(context.Background())
	if err := client.Watch(ctx, func(tracker.Event) {}); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	cancel()

	deadline := time.Now().Add(time.Second)
	for {
		_, removed, removedChan := bus.counts()
		if removed == 2 && removedChan == 1 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("after cancel: %d matches and %d channels removed, want 2 and 1", removed, removedChan)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestClient_SubscribeFailureRollsBack(t *testing.T) {
	bus := &fakeBus{failAddAt: 2}
	client := newClient(bus, PathsFor(0), nil)

	if err := client.Subscribe(context.Background()); err == nil {
		t.Fatal("Subscribe should fail when a match is rejected")
	}
	matches, removed, _ := bus.counts()
	if matches != 1 || removed != 1 {
		t.Errorf("matches added/removed = %d/%d, want 1/1", matches, removed)
	}
	if len(bus.channels) != 0 {
		t.Error("signal channel registered despite failure")
	}
}
