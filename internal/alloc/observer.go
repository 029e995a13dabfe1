package alloc

import (
	"log"
	"time"
)

// Event is one structured progress notification from an allocator run.
// Allocators stay pure functions of their inputs plus the observer; all
// narration goes through here instead of return values.
type Event struct {
	Stage         string // model_built | solve_started | solve_finished | assignment
	Algorithm     string
	Status        string
	Vars          int
	Constraints   int
	FeasibleTrips int
	Agency        int     // assignment only: receiving agency index
	Ratio         float64 // assignment only: agency lbs-per-person after the pick
	Elapsed       time.Duration
}

// Observer consumes allocator events.
type Observer interface {
	Event(e Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(e Event)

func (f ObserverFunc) Event(e Event) { f(e) }

// NopObserver drops all events.
var NopObserver Observer = ObserverFunc(func(Event) {})

// LogObserver writes events to the standard logger.
var LogObserver Observer = ObserverFunc(func(e Event) {
	switch e.Stage {
	case "model_built":
		log.Printf("[ALLOC] %s model built: %d vars, %d constraints, %d feasible trips", e.Algorithm, e.Vars, e.Constraints, e.FeasibleTrips)
	case "solve_finished":
		log.Printf("[ALLOC] %s solve finished: status=%s elapsed=%v", e.Algorithm, e.Status, e.Elapsed)
	case "assignment":
		log.Printf("[ALLOC] %s assignment: agency=%d ratio=%.3f", e.Algorithm, e.Agency, e.Ratio)
	default:
		log.Printf("[ALLOC] %s %s", e.Algorithm, e.Stage)
	}
})
