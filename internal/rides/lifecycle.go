package rides

import "github.com/swiftride/dispatch/pkg/common"

// transitions is the ride state machine. Cancellation is reachable from
// every non-terminal status; everything else moves strictly forward.
var transitions = map[Status][]Status{
	StatusRequested:      {StatusSearching, StatusCancelled},
	StatusSearching:      {StatusDriverAssigned, StatusCancelled},
	StatusDriverAssigned: {StatusDriverArriving, StatusCancelled},
	StatusDriverArriving: {StatusDriverArrived, StatusCancelled},
	StatusDriverArrived:  {StatusInProgress, StatusCancelled},
	StatusInProgress:     {StatusCompleted, StatusCancelled},
	StatusCompleted:      {},
	StatusCancelled:      {},
}

// ValidStatus reports whether s is a known ride status.
func ValidStatus(s Status) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether the state machine allows from → to.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CheckTransition returns a typed error naming source and target when the
// transition is not allowed. Callers must not mutate any state on error.
func CheckTransition(from, to Status) error {
	if !ValidStatus(to) {
		return common.NewInvalidInputError("unknown ride status: " + string(to))
	}
	if !CanTransition(from, to) {
		return common.NewInvalidTransitionError(string(from), string(to))
	}
	return nil
}
