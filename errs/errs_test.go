package errs_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredb-io/kernel/errs"
)

func TestWrapIsMatchesSentinel(t *testing.T) {
	cause := errors.New("boom")
	wrapped := errs.Wrap(errs.TxConflict, cause, "commit of %s", "tx1")

	require.True(t, errors.Is(wrapped, errs.ErrTxConflict))
	require.False(t, errors.Is(wrapped, errs.ErrTxFinished))

	kind, ok := errs.Of(wrapped)
	require.True(t, ok)
	require.Equal(t, errs.TxConflict, kind)
}

func TestAbortsTransaction(t *testing.T) {
	require.True(t, errs.TxConflict.AbortsTransaction())
	require.True(t, errs.TxFinished.AbortsTransaction())
	require.False(t, errs.SchemaError.AbortsTransaction())
	require.False(t, errs.QueryTimedout.AbortsTransaction())
}

func TestRecoverable(t *testing.T) {
	require.True(t, errs.TxConflict.Recoverable())
	require.False(t, errs.Internal.Recoverable())
}
