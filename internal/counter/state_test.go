package counter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitialIsLoading(t *testing.T) {
	t.Parallel()

	s := Initial()
	require.Equal(t, Loading, s.Phase)
	require.False(t, s.ShowCount())
	require.False(t, s.ShowError())
}

func TestApplyTransitions(t *testing.T) {
	t.Parallel()

	failure := &TransportError{Err: errors.New("connection refused")}

	s := Initial().Apply(PollSucceeded{Count: 10})
	require.Equal(t, State{Phase: Loaded, Count: 10}, s)
	require.True(t, s.ShowCount())
	require.False(t, s.ShowError())

	s = s.Apply(PollFailed{Err: failure})
	require.Equal(t, Failed, s.Phase)
	require.Zero(t, s.Count, "a failure drops the previous count")
	require.ErrorIs(t, s.Err, failure)
	require.False(t, s.ShowCount())
	require.True(t, s.ShowError())

	s = s.Apply(PollSucceeded{Count: 3})
	require.Equal(t, State{Phase: Loaded, Count: 3}, s)
	require.NoError(t, s.Err, "a success clears the previous error")
}

func TestLoadedZeroRendersNothing(t *testing.T) {
	t.Parallel()

	s := Initial().Apply(PollSucceeded{Count: 0})
	require.Equal(t, Loaded, s.Phase)
	require.False(t, s.ShowCount())
	require.False(t, s.ShowError())
}

func TestApplyRejectsNegativeCount(t *testing.T) {
	t.Parallel()

	s := Initial().Apply(PollSucceeded{Count: -1})
	require.Equal(t, Failed, s.Phase)
	require.Equal(t, "decode", ErrorKind(s.Err))
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	require.Equal(t, "none", ErrorKind(nil))
	require.Equal(t, "transport", ErrorKind(&TransportError{Err: errors.New("x")}))
	require.Equal(t, "http_status", ErrorKind(&HTTPStatusError{StatusCode: 503}))
	require.Equal(t, "decode", ErrorKind(&DecodeError{Reason: "x"}))
	require.Equal(t, "unknown", ErrorKind(errors.New("other")))

	wrapped := errors.Join(errors.New("poll"), &HTTPStatusError{StatusCode: 404})
	require.Equal(t, "http_status", ErrorKind(wrapped))
}

func TestPhaseString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "loading", Loading.String())
	require.Equal(t, "loaded", Loaded.String())
	require.Equal(t, "failed", Failed.String())
	require.Equal(t, "unknown", Phase(9).String())
}
