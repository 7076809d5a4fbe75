package hiveerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHiveErrorIsMatchesByKindEvenWithoutWrappedSentinel(t *testing.T) {
	err := New("session.EnsureSessionExists", KindSessionNotFound, "s1", errors.New("required session directory missing"))
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.False(t, errors.Is(err, ErrValidation))
}

func TestHiveErrorUnwrapStillMatchesDirectlyWrappedSentinel(t *testing.T) {
	err := New("session.CreateSession", KindProtocolViolation, "s1", ErrSessionExists)
	assert.ErrorIs(t, err, ErrSessionExists)
}

func TestRateLimitedErrorUnwrapsToSentinel(t *testing.T) {
	err := &RateLimitedError{WaitSeconds: 4, Err: errors.New("429")}
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestTimeoutErrorUnwrapsToSentinel(t *testing.T) {
	err := &TimeoutError{TimeoutSeconds: 30, Err: errors.New("deadline exceeded")}
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestIsRetryableClassifiesModelBackendConditions(t *testing.T) {
	assert.True(t, IsRetryable(New("op", KindModelUnavailable, "", ErrModelUnavailable)))
	assert.True(t, IsRetryable(&RateLimitedError{Err: ErrRateLimited}))
	assert.False(t, IsRetryable(New("op", KindValidation, "", ErrValidation)))
	assert.False(t, IsRetryable(errors.New("some unrelated error")))
}

func TestHiveErrorMessageFormatting(t *testing.T) {
	err := New("worker.Run", KindProtocolViolation, "s1", errors.New("boom"))
	assert.Equal(t, "worker.Run [s1]: boom", err.Error())
}
