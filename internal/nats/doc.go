// Package nats announces boot progress and LED presentation changes over
// core NATS (fire-and-forget, no JetStream) and accepts control commands.
//
// # Subjects
//
//	powerled.host{N}.state          # BootStateChanged (daemon → consumers)
//	powerled.host{N}.presentation   # PresentationChanged (daemon → consumers)
//	powerled.host{N}.control        # commands (consumers → daemon)
//
// The publisher degrades gracefully when the broker is unavailable. An
// embedded server can be started in-process when no external broker exists.
//
// # Debugging with nats CLI
//
//	nats sub "powerled.>"
//	nats sub "powerled.host0.presentation" | jq .
//	nats pub "powerled.host0.control" '{"action":"reapply","host":0,"reason":"manual"}'
//
// # Message Formats
//
// StateMessage (powerled.host{N}.state):
//
//	{
//	  "host": 0,
//	  "host_power_on": true,
//	  "boot_started": true,
//	  "boot_ended": false,
//	  "cause": "postcode",
//	  "timestamp": "2025-01-27T10:30:00Z"
//	}
//
// PresentationMessage (powerled.host{N}.presentation):
//
//	{
//	  "host": 0,
//	  "presentation": "post_active",
//	  "previous": "standby",
//	  "timestamp": "2025-01-27T10:30:00Z"
//	}
//
// ControlMessage (powerled.host{N}.control):
//
//	{
//	  "action": "reapply",
//	  "host": 0,
//	  "timestamp": "2025-01-27T10:30:00Z",
//	  "reason": "group manager restarted"
//	}
package nats
