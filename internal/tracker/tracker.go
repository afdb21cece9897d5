package tracker

import (
	"log/slog"

	"github.com/smazurov/powerled/internal/postcode"
)

// State is the fused boot/power state of the host.
type State struct {
	HostPowerOn bool `json:"host_power_on" doc:"Whether the host is powered on"`
	BootStarted bool `json:"boot_started" doc:"Whether the POST start code was seen this boot cycle"`
	BootEnded   bool `json:"boot_ended" doc:"Whether the POST end code was seen this boot cycle"`
}

// References holds the two reference codes the tracker watches for.
type References struct {
	Start postcode.Code
	End   postcode.Code
}

// Tracker applies power and POST code events to a State.
// It is not safe for concurrent use; callers serialize access.
type Tracker struct {
	state  State
	refs   References
	logger *slog.Logger
}

// New creates a tracker seeded with the host power state.
func New(refs References, hostPowerOn bool, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		state:  State{HostPowerOn: hostPowerOn},
		refs:   refs,
		logger: logger,
	}
}

// State returns a copy of the current state.
func (t *Tracker) State() State {
	return t.state
}

// Dispatch applies a single event and reports whether the state changed.
func (t *Tracker) Dispatch(ev Event) bool {
	switch e := ev.(type) {
	case PowerChanged:
		return t.OnPowerChanged(e.On)
	case CodesObserved:
		return t.OnCodesObserved(e.Codes)
	default:
		t.logger.Warn("Ignoring unknown event", "event", ev)
		return false
	}
}

// OnPowerChanged records a host power transition.
// Powering off invalidates any boot progress seen so far.
func (t *Tracker) OnPowerChanged(isOn bool) bool {
	if t.state.HostPowerOn == isOn {
		return false
	}

	if !isOn {
		t.logger.Info("Host powering off, resetting boot progress")
		t.state.BootStarted = false
		t.state.BootEnded = false
	}
	t.state.HostPowerOn = isOn
	return true
}

// OnCodesObserved applies a batch of POST codes in order.
// Every code is examined even after a change so that out-of-order batches
// settle on the same state.
func (t *Tracker) OnCodesObserved(codes []postcode.Entry) bool {
	changed := false
	for _, entry := range codes {
		code := entry.Secondary
		codesObserved.Inc()

		if err := code.Validate(); err != nil {
			t.logger.Warn("Skipping POST code", "code", code.String(), "error", err)
			codeErrors.Inc()
			continue
		}

		if !t.state.BootStarted && t.matches(code, t.refs.Start, "start") {
			t.logger.Info("POST start code observed", "code", code.String())
			t.state.BootStarted = true
			t.state.BootEnded = false
			changed = true
		} else if !t.state.BootEnded && t.matches(code, t.refs.End, "end") {
			t.logger.Info("POST end code observed", "code", code.String())
			t.state.BootEnded = true
			changed = true
		}
	}
	return changed
}

// matches wraps postcode.Match, logging and rejecting malformed codes.
func (t *Tracker) matches(code, reference postcode.Code, which string) bool {
	ok, err := postcode.Match(code, reference)
	if err != nil {
		t.logger.Warn("Skipping POST code",
			"reference", which,
			"code", code.String(),
			"error", err)
		codeErrors.Inc()
		return false
	}
	return ok
}
