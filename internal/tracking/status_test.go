package tracking

import (
	"errors"
	"testing"

	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/models"
)

func TestTransitionOrder(t *testing.T) {
	steps := []struct {
		from, to models.Status
		ok       bool
	}{
		{models.StatusConnecting, models.StatusDispatched, true},
		{models.StatusDispatched, models.StatusTracking, true},
		{models.StatusTracking, models.StatusArrived, true},
		{models.StatusArrived, models.StatusCompleted, true},

		// No skipping forward
		{models.StatusConnecting, models.StatusTracking, false},
		{models.StatusConnecting, models.StatusArrived, false},
		{models.StatusDispatched, models.StatusArrived, false},
		{models.StatusTracking, models.StatusCompleted, false},

		// No moving backward
		{models.StatusTracking, models.StatusDispatched, false},
		{models.StatusArrived, models.StatusTracking, false},

		// Cancellation from any non-terminal state
		{models.StatusConnecting, models.StatusCancelled, true},
		{models.StatusDispatched, models.StatusCancelled, true},
		{models.StatusTracking, models.StatusCancelled, true},

		// Arrived responders finish the job, they do not cancel
		{models.StatusArrived, models.StatusCancelled, false},
	}

	for _, s := range steps {
		if got := canTransition(s.from, s.to); got != s.ok {
			t.Errorf("%s -> %s: got %v, want %v", s.from, s.to, got, s.ok)
		}
	}
}

func TestTerminalStatesAdmitNothing(t *testing.T) {
	all := []models.Status{
		models.StatusConnecting, models.StatusDispatched, models.StatusTracking,
		models.StatusArrived, models.StatusCompleted, models.StatusCancelled,
	}
	for _, terminal := range []models.Status{models.StatusCompleted, models.StatusCancelled} {
		for _, to := range all {
			if canTransition(terminal, to) {
				t.Errorf("%s -> %s should be rejected", terminal, to)
			}
		}
	}
}

func TestCheckTransitionError(t *testing.T) {
	if err := checkTransition(models.StatusConnecting, models.StatusDispatched); err != nil {
		t.Fatal(err)
	}

	err := checkTransition(models.StatusCompleted, models.StatusTracking)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}
