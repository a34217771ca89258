package rewards

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCycleManagerGenesis(t *testing.T) {
	manager := NewCycleManager(10, 100)
	require.Equal(t, uint64(0), manager.Current())
	require.Equal(t, uint64(110), manager.NextBoundary())
}

func TestCycleManagerTriggerTooEarly(t *testing.T) {
	manager := NewCycleManager(10, 100)
	_, err := manager.Trigger(109)
	require.ErrorIs(t, err, ErrTooEarly)
	require.Equal(t, uint64(0), manager.Current())
	require.Equal(t, uint64(110), manager.NextBoundary())
}

func TestCycleManagerTriggerAdvances(t *testing.T) {
	manager := NewCycleManager(10, 100)

	id, err := manager.Trigger(110)
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)
	require.Equal(t, uint64(120), manager.NextBoundary())

	// A late trigger recomputes the boundary from the observed height, not
	// from the previous boundary.
	id, err = manager.Trigger(135)
	require.NoError(t, err)
	require.Equal(t, uint64(2), id)
	require.Equal(t, uint64(145), manager.NextBoundary())
}
