package cartitem

import "slices"

// transitions is the complete adjacency map. Final states map to an empty set.
// It is never mutated after package initialization, so concurrent reads are safe.
var transitions = map[State]map[State]struct{}{
	Active: {
		Locked:    {},
		Expired:   {},
		Cancelled: {},
		Purchased: {},
		Abandoned: {},
	},
	Locked: {
		Active:    {},
		Expired:   {},
		Cancelled: {},
		Purchased: {},
	},
	Purchased: {},
	Cancelled: {},
	Expired:   {},
	Abandoned: {},
}

// purchasable and mutable intentionally hold the same states.
var (
	purchasable = map[State]struct{}{Active: {}, Locked: {}}
	mutable     = map[State]struct{}{Active: {}, Locked: {}}
)

// States returns every known state in declaration order.
func States() []State {
	return []State{Active, Locked, Purchased, Cancelled, Expired, Abandoned}
}

// Transitions returns the states reachable from `from` in one step, sorted by name.
// The returned slice is a copy; it is empty for final and unknown states.
func Transitions(from State) []State {
	targets := make([]State, 0, len(transitions[from]))
	for to := range transitions[from] {
		targets = append(targets, to)
	}
	slices.Sort(targets)
	return targets
}

// IsValidTransition reports whether (from, to) is an edge of the transition graph.
func IsValidTransition(from, to State) bool {
	_, ok := transitions[from][to]
	return ok
}

func IsPurchasable(s State) bool {
	_, ok := purchasable[s]
	return ok
}

func IsMutable(s State) bool {
	_, ok := mutable[s]
	return ok
}

// IsFinal reports whether s is terminal. Unknown states are not final.
func IsFinal(s State) bool {
	targets, ok := transitions[s]
	return ok && len(targets) == 0
}
