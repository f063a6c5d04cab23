package tracking

import (
	"errors"
	"fmt"

	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/models"
)

// ErrInvalidTransition is returned when a status change violates the
// partial order. The attempted transition is rejected and logged, never
// silently coerced.
var ErrInvalidTransition = errors.New("tracking: invalid status transition")

// ErrRoomNotFound is returned for operations against a nonexistent or
// expired alert room.
var ErrRoomNotFound = errors.New("tracking: room not found")

// transitions is the fixed partial order of rescue statuses. cancelled
// is reachable from every non-terminal state; the terminal states admit
// nothing.
var transitions = map[models.Status][]models.Status{
	models.StatusConnecting: {models.StatusDispatched, models.StatusCancelled},
	models.StatusDispatched: {models.StatusTracking, models.StatusCancelled},
	models.StatusTracking:   {models.StatusArrived, models.StatusCancelled},
	models.StatusArrived:    {models.StatusCompleted},
	models.StatusCompleted:  {},
	models.StatusCancelled:  {},
}

// canTransition reports whether from → to is a permitted step.
func canTransition(from, to models.Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// checkTransition returns a descriptive ErrInvalidTransition when the
// step is not permitted.
func checkTransition(from, to models.Status) error {
	if !canTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
