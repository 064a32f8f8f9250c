package workflows

// StateMachine enforces status transitions over a closed set of states.
// States with no outgoing edges are terminal.
type StateMachine[S comparable] struct {
	allowedTransitions map[S][]S
}

// NewStateMachine creates a new state machine with allowed transitions.
// Every state, terminal ones included, must appear as a key.
func NewStateMachine[S comparable](transitions map[S][]S) *StateMachine[S] {
	allowed := make(map[S][]S, len(transitions))
	for from, to := range transitions {
		allowed[from] = append([]S(nil), to...)
	}
	return &StateMachine[S]{allowedTransitions: allowed}
}

// Knows reports whether the state is part of the machine.
func (sm *StateMachine[S]) Knows(state S) bool {
	_, ok := sm.allowedTransitions[state]
	return ok
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine[S]) CanTransition(from, to S) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// GetAllowedTransitions returns the allowed next statuses for a given status
func (sm *StateMachine[S]) GetAllowedTransitions(from S) []S {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []S{}
	}
	return append([]S(nil), allowed...)
}

// IsTerminal reports whether a known state has no outgoing edges.
func (sm *StateMachine[S]) IsTerminal(state S) bool {
	allowed, exists := sm.allowedTransitions[state]
	return exists && len(allowed) == 0
}

// Reachable returns every state reachable from start, start included.
func (sm *StateMachine[S]) Reachable(start S) map[S]bool {
	seen := map[S]bool{start: true}
	queue := []S{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range sm.allowedTransitions[current] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return seen
}
