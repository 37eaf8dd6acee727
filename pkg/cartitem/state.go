package cartitem

// State is the lifecycle state of a cart line item.
type State string

const (
	Active    State = "active"
	Locked    State = "locked"
	Purchased State = "purchased"
	Cancelled State = "cancelled"
	Expired   State = "expired"
	Abandoned State = "abandoned"
)

func (s State) String() string {
	return string(s)
}

// Valid reports whether s is one of the known lifecycle states.
func (s State) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// ParseState converts a raw value (e.g. a database column) into a State.
func ParseState(raw string) (State, error) {
	s := State(raw)
	if !s.Valid() {
		return "", NewErrUnknownState(raw)
	}
	return s, nil
}
