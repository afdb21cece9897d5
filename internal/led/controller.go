package led

// Controller asserts and deasserts named LED groups.
// Implementations exist for the OpenBMC LED GroupManager, Linux sysfs LEDs
// and systems without LED support.
type Controller interface {
	// Set requests that the named group be asserted (lit) or deasserted.
	// Implementations may apply the request asynchronously; a nil error
	// only means the request was accepted.
	Set(group string, asserted bool) error

	// Available returns the group names this controller knows about.
	// An empty list means any name is accepted.
	Available() []string
}
