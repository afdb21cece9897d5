package tracker

import "github.com/smazurov/powerled/internal/postcode"

// Event is an input to the tracker. The set is closed: PowerChanged and
// CodesObserved are the only implementations.
type Event interface {
	trackerEvent()
}

// PowerChanged reports the host power state.
type PowerChanged struct {
	On bool
}

// CodesObserved carries one or more POST codes in arrival order.
type CodesObserved struct {
	Codes []postcode.Entry
}

func (PowerChanged) trackerEvent()  {}
func (CodesObserved) trackerEvent() {}
