package powerled

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/powerled/internal/events"
	"github.com/smazurov/powerled/internal/led"
	"github.com/smazurov/powerled/internal/postcode"
	"github.com/smazurov/powerled/internal/tracker"
)

// Change causes reported in BootStateChangedEvent.
const (
	CauseStartup  = "startup"
	CausePower    = "power"
	CausePostCode = "postcode"
)

// ErrNotStarted is returned before startup reconciliation ran.
var ErrNotStarted = errors.New("service not started")

// Source provides host power state and POST codes for one host.
// Subscribe starts queueing live events; Watch delivers them, including
// those queued in between.
type Source interface {
	Subscribe(ctx context.Context) error
	HostPowered(ctx context.Context) (bool, error)
	PostCodes(ctx context.Context) ([]postcode.Entry, error)
	Watch(ctx context.Context, handle func(tracker.Event)) error
}

// Options configures a Service.
type Options struct {
	References tracker.References
	LEDs       *led.Manager
	EventBus   *events.Bus // optional
	Logger     *slog.Logger

	// RequireHistory makes a failed POST code history query fatal instead
	// of reconciling from an empty history.
	RequireHistory bool
}

// Status is a consistent view of the tracked state and LED presentation.
type Status struct {
	State        tracker.State
	Presentation led.Presentation
}

// Service owns the tracker and keeps the LED groups in step with it.
type Service struct {
	refs           tracker.References
	leds           *led.Manager
	eventBus       *events.Bus
	logger         *slog.Logger
	requireHistory bool

	mu      sync.Mutex
	tracker *tracker.Tracker
}

// New creates a service. Start must be called before events are handled.
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		refs:           opts.References,
		leds:           opts.LEDs,
		eventBus:       opts.EventBus,
		logger:         logger,
		requireHistory: opts.RequireHistory,
	}
}

// Start subscribes to live events from src, reconciles with the current
// host state and POST code history, applies the resulting presentation
// once, and only then handles the events queued since subscribing.
func (s *Service) Start(ctx context.Context, src Source) error {
	if err := src.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to host events: %w", err)
	}

	powered, err := src.HostPowered(ctx)
	if err != nil {
		return fmt.Errorf("failed to query host power state: %w", err)
	}

	history, err := src.PostCodes(ctx)
	if err != nil {
		if s.requireHistory {
			return fmt.Errorf("failed to query POST code history: %w", err)
		}
		s.logger.Warn("POST code history unavailable, assuming none", "error", err)
		history = nil
	}

	s.mu.Lock()
	s.tracker = tracker.New(s.refs, powered, s.logger)
	if len(history) > 0 {
		s.tracker.OnCodesObserved(history)
	}
	state := s.tracker.State()
	s.leds.Apply(led.Resolve(state))
	s.mu.Unlock()

	s.logger.Info("Reconciled boot state",
		"host_power_on", state.HostPowerOn,
		"boot_started", state.BootStarted,
		"boot_ended", state.BootEnded,
		"history_codes", len(history))
	s.publish(state, CauseStartup)

	if err := src.Watch(ctx, s.Handle); err != nil {
		return fmt.Errorf("failed to watch host events: %w", err)
	}
	return nil
}

// Handle applies one live event and refreshes the LED groups when the
// tracked state changed. Events that arrive before Start are dropped.
func (s *Service) Handle(ev tracker.Event) {
	s.mu.Lock()
	if s.tracker == nil {
		s.mu.Unlock()
		s.logger.Warn("Dropping event received before startup", "event", fmt.Sprintf("%T", ev))
		return
	}
	if !s.tracker.Dispatch(ev) {
		s.mu.Unlock()
		return
	}
	state := s.tracker.State()
	s.leds.Apply(led.Resolve(state))
	s.mu.Unlock()

	cause := CausePostCode
	if _, ok := ev.(tracker.PowerChanged); ok {
		cause = CausePower
	}
	s.logger.Debug("Boot state changed",
		"cause", cause,
		"host_power_on", state.HostPowerOn,
		"boot_started", state.BootStarted,
		"boot_ended", state.BootEnded)
	s.publish(state, cause)
}

// Reapply sends the current presentation to the LED groups again, for
// instance after the LED service restarted and lost its state.
func (s *Service) Reapply() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker == nil {
		return ErrNotStarted
	}
	s.leds.Apply(led.Resolve(s.tracker.State()))
	return nil
}

// Snapshot returns the current state and the presentation last applied.
func (s *Service) Snapshot() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker == nil {
		return Status{}, ErrNotStarted
	}
	p, _ := s.leds.Current()
	return Status{State: s.tracker.State(), Presentation: p}, nil
}

func (s *Service) publish(state tracker.State, cause string) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(events.BootStateChangedEvent{
		HostPowerOn: state.HostPowerOn,
		BootStarted: state.BootStarted,
		BootEnded:   state.BootEnded,
		Cause:       cause,
		Timestamp:   time.Now().Format(time.RFC3339),
	})
}
