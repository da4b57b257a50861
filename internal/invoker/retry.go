package invoker

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/oukeidos/tdocs/internal/apperrors"
	"github.com/oukeidos/tdocs/internal/logger"
)

var (
	retryBase       = 1 * time.Second
	retryMaxBackoff = 20 * time.Second
	retryJitter     = 1 * time.Second
)

// Retrying repeats calls that fail with a transient or rate limit error.
// Every other failure is returned on the first attempt.
type Retrying struct {
	Translator  Translator
	MaxAttempts int
}

// WithRetry wraps t so that retryable failures are attempted up to
// maxAttempts times.
func WithRetry(t Translator, maxAttempts int) Translator {
	if maxAttempts <= 1 {
		return t
	}
	return &Retrying{Translator: t, MaxAttempts: maxAttempts}
}

func (r *Retrying) Translate(ctx context.Context, req Request) (string, error) {
	for attempt := 1; ; attempt++ {
		raw, err := r.Translator.Translate(ctx, req)
		if err == nil {
			return raw, nil
		}
		retry, backoff := retryDecision(ctx, err, attempt, r.MaxAttempts)
		if !retry {
			return "", err
		}
		logger.Warn("Translation call failed; retrying", "source", req.SourcePath, "attempt", attempt, "backoff", backoff.Round(time.Millisecond), "error", apperrors.PublicMessage(err))
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
}

func retryDecision(ctx context.Context, err error, attempt, maxAttempts int) (bool, time.Duration) {
	if err == nil || attempt >= maxAttempts {
		return false, 0
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false, 0
	}
	if !apperrors.IsRetryable(err) {
		return false, 0
	}
	backoff := retryBase << (attempt - 1)
	if apperrors.IsRateLimit(err) {
		backoff *= 2
	}
	if backoff > retryMaxBackoff {
		backoff = retryMaxBackoff
	}
	var jitter time.Duration
	if retryJitter > 0 {
		jitter = time.Duration(rand.Int63n(int64(retryJitter)))
	}
	return true, backoff + jitter
}
