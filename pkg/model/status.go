package model

// Status is the reservation lifecycle state, persisted as a string.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// AllowedTransitions is the full transition table. Terminal states map
// to an empty slice on purpose: adding a state forces this table to be
// revisited.
var AllowedTransitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// CanTransition reports whether from -> to is a legal transition.
// Same-state requests are not transitions and unknown statuses never
// transition anywhere.
func CanTransition(from, to Status) bool {
	allowed, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s has no outgoing transitions.
func (s Status) IsTerminal() bool {
	allowed, ok := AllowedTransitions[s]
	return ok && len(allowed) == 0
}

// IsValid reports whether s is a known reservation status.
func (s Status) IsValid() bool {
	_, ok := AllowedTransitions[s]
	return ok
}

// Statuses lists every known status, for validation messages.
func Statuses() []Status {
	return []Status{
		StatusPending,
		StatusConfirmed,
		StatusInProgress,
		StatusCompleted,
		StatusCancelled,
	}
}
