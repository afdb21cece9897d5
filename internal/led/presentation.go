package led

import "github.com/smazurov/powerled/internal/tracker"

// Presentation is what the power LED currently shows.
type Presentation int

const (
	// Standby lights only the BMC booted group: host off or POST not started.
	Standby Presentation = iota
	// PostActive lights only the POST active group.
	PostActive
	// PoweredOnComplete lights only the fully powered on group.
	PoweredOnComplete
)

func (p Presentation) String() string {
	switch p {
	case Standby:
		return "standby"
	case PostActive:
		return "post_active"
	case PoweredOnComplete:
		return "powered_on"
	default:
		return "unknown"
	}
}

// Resolve maps the boot/power state to a presentation. Rules are checked in
// priority order and cover every flag combination.
func Resolve(s tracker.State) Presentation {
	switch {
	case !s.HostPowerOn || !s.BootStarted:
		return Standby
	case !s.BootEnded:
		return PostActive
	default:
		return PoweredOnComplete
	}
}

// Groups names the three LED groups driven by the presentation.
type Groups struct {
	Booted     string
	PostActive string
	PoweredOn  string
}

// Assignment is a single LED group state request.
type Assignment struct {
	Group    string
	Asserted bool
}

// Assignments returns one explicit request per group for p. Groups being
// deasserted come first so two groups are never lit together.
func (g Groups) Assignments(p Presentation) []Assignment {
	all := []Assignment{
		{Group: g.Booted, Asserted: p == Standby},
		{Group: g.PostActive, Asserted: p == PostActive},
		{Group: g.PoweredOn, Asserted: p == PoweredOnComplete},
	}

	ordered := make([]Assignment, 0, len(all))
	for _, a := range all {
		if !a.Asserted {
			ordered = append(ordered, a)
		}
	}
	for _, a := range all {
		if a.Asserted {
			ordered = append(ordered, a)
		}
	}
	return ordered
}
