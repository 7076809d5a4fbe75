package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/hivemind-ai/queen/internal/hiveerrors"
)

// PremiumModel and DefaultModel are the §4.E substitution pair: an
// unavailable premium-tier logical model downgrades to this default
// mid-tier logical model.
const (
	PremiumModel = "custom:claude-opus-4"
	DefaultModel = "custom:max-subscription"
)

// maxAttempts is "initial + three retries" (§4.E, §8 property 8).
const maxAttempts = 4

// InvokeWithRetry retries fn up to three times (four attempts total),
// applying the §4.E substitutions: a RateLimitedError sleeps a single
// deterministic attempt*2 seconds before the next try (attempt is 1 on the
// first call, so the first rate-limited retry waits 2s per S6), and a
// ModelBackendUnavailable for a premium-tier model downgrades the model
// argument fn receives on the next attempt. The rate-limit wait is the only
// delay between attempts: the retry loop itself carries zero additional
// backoff so the manual sleep is never compounded. Exhaustion returns
// ErrMaxRetriesExceeded wrapping the last error.
func InvokeWithRetry(ctx context.Context, model string, fn func(ctx context.Context, model string) error) error {
	attemptModel := model
	attempt := 0

	operation := func() (struct{}, error) {
		attempt++
		err := fn(ctx, attemptModel)
		if err == nil {
			return struct{}{}, nil
		}

		var rl *hiveerrors.RateLimitedError
		if errors.As(err, &rl) {
			if attempt < maxAttempts {
				sleepCtx(ctx, time.Duration(attempt)*2*time.Second)
			}
			return struct{}{}, err
		}

		if errors.Is(err, hiveerrors.ErrModelUnavailable) && attemptModel == PremiumModel {
			attemptModel = DefaultModel
		}

		if !hiveerrors.IsRetryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(0)),
		backoff.WithMaxTries(maxAttempts),
	)
	if err != nil {
		return hiveerrors.New("orchestrator.InvokeWithRetry", hiveerrors.KindModelUnavailable, model,
			errorsJoin(hiveerrors.ErrMaxRetriesExceeded, err))
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func errorsJoin(a, b error) error {
	return errors.Join(a, b)
}
