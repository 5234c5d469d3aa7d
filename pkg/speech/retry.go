package speech

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// RetryOption configures WithRetry.
type RetryOption func(*retryService)

// WithBackoff sets the delay before the first retry. Each later retry
// doubles it. The default is one second.
func WithBackoff(d time.Duration) RetryOption {
	return func(s *retryService) {
		s.backoff = d
	}
}

type retryService struct {
	next       Service
	maxRetries int
	backoff    time.Duration
}

// WithRetry returns a Service that re-sends a request up to maxRetries
// times when svc fails with a retryable provider error, waiting 1s, 2s,
// 4s, ... between attempts. Other errors are returned at once.
//
// The wrapper never changes the result of a successful call, so callers see
// one logical request per Synthesize.
func WithRetry(svc Service, maxRetries int, opts ...RetryOption) Service {
	s := &retryService{
		next:       svc,
		maxRetries: maxRetries,
		backoff:    time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *retryService) Synthesize(ctx context.Context, req *Request) (*Audio, error) {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := s.backoff << uint(attempt-1)
			slog.Debug("speech: retrying", "voice", req.Voice, "attempt", attempt, "backoff", backoff, "err", lastErr)
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, lastErr
			case <-timer.C:
			}
		}

		audio, err := s.next.Synthesize(ctx, req)
		if err == nil {
			return audio, nil
		}
		lastErr = err
		if ctx.Err() != nil || !IsRetryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

type rateLimited struct {
	next    Service
	limiter *rate.Limiter
}

// WithRateLimit returns a Service that waits for limiter before every
// request to svc.
func WithRateLimit(svc Service, limiter *rate.Limiter) Service {
	return &rateLimited{next: svc, limiter: limiter}
}

// PerMinute returns a limiter allowing n requests per minute with no burst
// beyond a single request.
func PerMinute(n int) *rate.Limiter {
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
}

func (s *rateLimited) Synthesize(ctx context.Context, req *Request) (*Audio, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.next.Synthesize(ctx, req)
}

type timeoutService struct {
	next    Service
	timeout time.Duration
}

// WithTimeout returns a Service that bounds every request to svc by d.
// Wrap the provider with it before WithRateLimit and WithRetry so that
// limiter waits and backoff do not count against a request's deadline.
//
// A request that runs out of its own time fails with a retryable *Error
// coded RequestTimeout. Non-positive d returns svc unchanged.
func WithTimeout(svc Service, d time.Duration) Service {
	if d <= 0 {
		return svc
	}
	return &timeoutService{next: svc, timeout: d}
}

func (s *timeoutService) Synthesize(ctx context.Context, req *Request) (*Audio, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	audio, err := s.next.Synthesize(callCtx, req)
	if err == nil || ctx.Err() != nil || !errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return audio, err
	}
	name := "speech"
	if p, ok := s.next.(Provider); ok {
		name = p.Name()
	}
	return nil, &Error{
		Provider: name,
		Code:     "RequestTimeout",
		Message:  "no answer within " + s.timeout.String(),
		Err:      err,
	}
}
