package events

// Event type constants for kelindar/event.
const (
	TypeBootStateChanged uint32 = iota + 1
	TypePresentationChanged
	TypeActuationFailed
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// BootStateChangedEvent is published whenever a power or POST code event
// changes the tracked boot/power state.
type BootStateChangedEvent struct {
	HostPowerOn bool   `json:"host_power_on" example:"true" doc:"Whether the host is powered on"`
	BootStarted bool   `json:"boot_started" example:"true" doc:"Whether POST has started"`
	BootEnded   bool   `json:"boot_ended" example:"false" doc:"Whether POST has completed"`
	Cause       string `json:"cause" example:"postcode" doc:"What caused the change: startup, power, postcode"`
	Timestamp   string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for BootStateChangedEvent.
func (e BootStateChangedEvent) Type() uint32 { return TypeBootStateChanged }

// PresentationChangedEvent is published every time the LED groups are
// (re)applied. Previous equals Presentation when a state change did not
// alter what the LED shows.
type PresentationChangedEvent struct {
	Presentation string `json:"presentation" example:"post_active" doc:"Current LED presentation"`
	Previous     string `json:"previous,omitempty" example:"standby" doc:"Presentation before this update"`
	Timestamp    string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PresentationChangedEvent.
func (e PresentationChangedEvent) Type() uint32 { return TypePresentationChanged }

// ActuationFailedEvent reports an LED group request that could not be sent.
type ActuationFailedEvent struct {
	Group     string `json:"group" example:"power_on" doc:"LED group name"`
	Asserted  bool   `json:"asserted" doc:"Requested state"`
	Error     string `json:"error" doc:"Failure description"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ActuationFailedEvent.
func (e ActuationFailedEvent) Type() uint32 { return TypeActuationFailed }
