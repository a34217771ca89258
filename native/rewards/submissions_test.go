package rewards

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTryRegisterIncrementsUntilCap(t *testing.T) {
	ledger := NewSubmissionLedger()

	count, err := ledger.TryRegister(1, "0xActor1", 2)
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)

	count, err = ledger.TryRegister(1, "0xactor1", 2)
	require.NoError(t, err)
	require.Equal(t, uint64(2), count)

	_, err = ledger.TryRegister(1, "0xACTOR1", 2)
	require.ErrorIs(t, err, ErrCapExceeded)
	require.Equal(t, uint64(2), ledger.Count(1, "0xactor1"))
}

func TestTryRegisterScopesCountsByCycle(t *testing.T) {
	ledger := NewSubmissionLedger()

	_, err := ledger.TryRegister(1, "0xactor1", 2)
	require.NoError(t, err)
	_, err = ledger.TryRegister(1, "0xactor1", 2)
	require.NoError(t, err)

	// A new cycle starts counting from zero without erasing history.
	count, err := ledger.TryRegister(2, "0xactor1", 2)
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)
	require.Equal(t, uint64(2), ledger.Count(1, "0xactor1"))
	require.Equal(t, uint64(0), ledger.Count(3, "0xactor1"))
}

func TestTryRegisterLoweredCapBlocksFurtherSubmissions(t *testing.T) {
	ledger := NewSubmissionLedger()
	for i := 0; i < 5; i++ {
		_, err := ledger.TryRegister(1, "0xactor1", 10)
		require.NoError(t, err)
	}

	// A cap lowered below the existing count rejects without decrementing.
	_, err := ledger.TryRegister(1, "0xactor1", 3)
	require.ErrorIs(t, err, ErrCapExceeded)
	require.Equal(t, uint64(5), ledger.Count(1, "0xactor1"))
}

func TestTryRegisterRejectsEmptyActor(t *testing.T) {
	ledger := NewSubmissionLedger()
	_, err := ledger.TryRegister(1, "  ", 2)
	require.ErrorIs(t, err, ErrInvalidActor)
}

func TestTotalAcrossActors(t *testing.T) {
	ledger := NewSubmissionLedger()
	for _, actor := range []string{"0xa", "0xb", "0xa", "0xc"} {
		_, err := ledger.TryRegister(1, actor, 10)
		require.NoError(t, err)
	}
	require.Equal(t, uint64(4), ledger.Total(1))
	require.Equal(t, uint64(0), ledger.Total(2))
}
