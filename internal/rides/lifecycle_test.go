package rides

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftride/dispatch/pkg/common"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusRequested, StatusSearching},
		{StatusRequested, StatusCancelled},
		{StatusSearching, StatusDriverAssigned},
		{StatusSearching, StatusCancelled},
		{StatusDriverAssigned, StatusDriverArriving},
		{StatusDriverAssigned, StatusCancelled},
		{StatusDriverArriving, StatusDriverArrived},
		{StatusDriverArriving, StatusCancelled},
		{StatusDriverArrived, StatusInProgress},
		{StatusDriverArrived, StatusCancelled},
		{StatusInProgress, StatusCompleted},
		{StatusInProgress, StatusCancelled},
	}
	for _, tt := range allowed {
		assert.True(t, CanTransition(tt.from, tt.to), "%s -> %s should be allowed", tt.from, tt.to)
	}

	denied := []struct{ from, to Status }{
		{StatusRequested, StatusDriverAssigned},
		{StatusRequested, StatusCompleted},
		{StatusSearching, StatusInProgress},
		{StatusDriverAssigned, StatusDriverArrived},
		{StatusDriverAssigned, StatusCompleted},
		{StatusInProgress, StatusDriverArrived},
		{StatusCompleted, StatusCancelled},
		{StatusCancelled, StatusSearching},
		{StatusCancelled, StatusCancelled},
		{StatusCompleted, StatusCompleted},
		// No backwards moves.
		{StatusDriverArrived, StatusDriverArriving},
		{StatusInProgress, StatusSearching},
	}
	for _, tt := range denied {
		assert.False(t, CanTransition(tt.from, tt.to), "%s -> %s should be denied", tt.from, tt.to)
	}
}

func TestCheckTransition(t *testing.T) {
	t.Run("allowed transition passes", func(t *testing.T) {
		require.NoError(t, CheckTransition(StatusSearching, StatusDriverAssigned))
	})

	t.Run("denied transition names source and target", func(t *testing.T) {
		err := CheckTransition(StatusCompleted, StatusInProgress)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrInvalidTransition)
		assert.Contains(t, err.Error(), "completed")
		assert.Contains(t, err.Error(), "in_progress")
	})

	t.Run("unknown target rejected as input error", func(t *testing.T) {
		err := CheckTransition(StatusRequested, "teleported")
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrInvalidInput)
	})
}

func TestTerminal(t *testing.T) {
	assert.True(t, (&Ride{Status: StatusCompleted}).Terminal())
	assert.True(t, (&Ride{Status: StatusCancelled}).Terminal())
	for _, s := range []Status{StatusRequested, StatusSearching, StatusDriverAssigned, StatusDriverArriving, StatusDriverArrived, StatusInProgress} {
		assert.False(t, (&Ride{Status: s}).Terminal(), "%s is not terminal", s)
	}
}
