package nats

import (
	"encoding/json"
	"fmt"
)

// SubjectPrefix is the root of every subject the daemon uses.
const SubjectPrefix = "powerled"

// ActionReapply asks the daemon to send the current presentation to the
// LED groups again.
const ActionReapply = "reapply"

// SubjectPresentation returns the subject for LED presentation changes of a host.
func SubjectPresentation(host int) string {
	return fmt.Sprintf("%s.host%d.presentation", SubjectPrefix, host)
}

// SubjectState returns the subject for boot state changes of a host.
func SubjectState(host int) string {
	return fmt.Sprintf("%s.host%d.state", SubjectPrefix, host)
}

// SubjectControl returns the subject the daemon of a host listens on for commands.
func SubjectControl(host int) string {
	return fmt.Sprintf("%s.host%d.control", SubjectPrefix, host)
}

// PresentationMessage announces the LED presentation just applied.
type PresentationMessage struct {
	Host         int    `json:"host"`
	Presentation string `json:"presentation"`
	Previous     string `json:"previous,omitempty"`
	Timestamp    string `json:"timestamp"`
}

// Marshal serializes the message to JSON.
func (m PresentationMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// StateMessage announces a change of the tracked boot state.
type StateMessage struct {
	Host        int    `json:"host"`
	HostPowerOn bool   `json:"host_power_on"`
	BootStarted bool   `json:"boot_started"`
	BootEnded   bool   `json:"boot_ended"`
	Cause       string `json:"cause"` // startup, power, postcode
	Timestamp   string `json:"timestamp"`
}

// Marshal serializes the message to JSON.
func (m StateMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// ControlMessage is a command sent to a running daemon.
type ControlMessage struct {
	Action    string `json:"action"`
	Host      int    `json:"host"`
	Timestamp string `json:"timestamp"`
	Reason    string `json:"reason,omitempty"`
}

// Marshal serializes the message to JSON.
func (m ControlMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalPresentation deserializes a presentation message.
func UnmarshalPresentation(data []byte) (PresentationMessage, error) {
	var m PresentationMessage
	err := json.Unmarshal(data, &m)
	return m, err
}

// UnmarshalState deserializes a state message.
func UnmarshalState(data []byte) (StateMessage, error) {
	var m StateMessage
	err := json.Unmarshal(data, &m)
	return m, err
}

// UnmarshalControl deserializes a control message.
func UnmarshalControl(data []byte) (ControlMessage, error) {
	var m ControlMessage
	err := json.Unmarshal(data, &m)
	return m, err
}
