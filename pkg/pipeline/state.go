package pipeline

// State is a step of the per-request state machine:
//
//	Received -> Authenticated -> (Normalized | RejectedEmpty) -> Forwarded -> Relayed
//
// with Failed reachable from any step.
type State int

const (
	Received State = iota
	Authenticated
	Normalized
	RejectedEmpty
	Forwarded
	Relayed
	Failed
)

var stateNames = [...]string{
	Received:      "received",
	Authenticated: "authenticated",
	Normalized:    "normalized",
	RejectedEmpty: "rejected_empty",
	Forwarded:     "forwarded",
	Relayed:       "relayed",
	Failed:        "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether s ends a request.
func (s State) Terminal() bool {
	return s == RejectedEmpty || s == Relayed || s == Failed
}

// next reports whether the machine may move from s to to.
func (s State) next(to State) bool {
	if to == Failed {
		return !s.Terminal()
	}
	switch s {
	case Received:
		return to == Authenticated
	case Authenticated:
		return to == Normalized || to == RejectedEmpty || to == Forwarded
	case Normalized:
		return to == Forwarded
	case Forwarded:
		return to == Relayed
	}
	return false
}
