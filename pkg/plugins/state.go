package plugins

import "fmt"

// State is a registry entry's position in the plugin lifecycle:
//
//	Discovered -> Loaded -> Healthy | Unhealthy -> Evicted
//
// A candidate that cannot be loaded goes straight from Discovered to
// Unhealthy. Healthy and Unhealthy entries may be re-probed and move
// between each other. Evicted is terminal.
type State int

const (
	StateDiscovered State = iota
	StateLoaded
	StateHealthy
	StateUnhealthy
	StateEvicted
)

var stateNames = map[State]string{
	StateDiscovered: "discovered",
	StateLoaded:     "loaded",
	StateHealthy:    "healthy",
	StateUnhealthy:  "unhealthy",
	StateEvicted:    "evicted",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var transitions = map[State][]State{
	StateDiscovered: {StateLoaded, StateUnhealthy, StateEvicted},
	StateLoaded:     {StateHealthy, StateUnhealthy, StateEvicted},
	StateHealthy:    {StateHealthy, StateUnhealthy, StateEvicted},
	StateUnhealthy:  {StateHealthy, StateUnhealthy, StateEvicted},
}

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// transition returns next, or ErrInvalidTransition.
func (s State) transition(next State) (State, error) {
	if !s.CanTransition(next) {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return next, nil
}
