package summarize

import (
	"context"
	"errors"
	"time"

	"github.com/scott-cmd11/ai-newsletter-automation/internal/llm"
)

// ErrMalformedOutput marks a provider response that could not be parsed as
// the expected structured format. Retryable.
var ErrMalformedOutput = errors.New("malformed model output")

// Policy is an explicit retry policy: how many attempts, how long to back
// off, and the extra cooldown applied after a rate-limit error. A zero Policy
// is usable via Default.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Cooldown is the minimum wait after a rate-limit response, for
	// providers with a fixed requests-per-minute ceiling.
	Cooldown time.Duration

	// sleep is replaceable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy mirrors the provider limits this pipeline typically runs
// under.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 2 * time.Second, Cooldown: 10 * time.Second}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 2 * time.Second
	}
	if p.sleep == nil {
		p.sleep = sleepCtx
	}
	return p
}

// Retryable reports whether an error is worth another attempt under this
// policy: malformed output, rate limits, and transient provider failures.
func (p Policy) Retryable(err error) bool {
	return errors.Is(err, ErrMalformedOutput) || llm.IsTransient(err)
}

// Do runs fn up to MaxAttempts times with exponential backoff, waiting the
// cooldown instead when the provider signalled a rate limit. The last error
// is returned after exhaustion.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	p = p.normalized()

	var err error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !p.Retryable(err) {
			return err
		}
		if attempt == p.MaxAttempts-1 {
			break
		}

		wait := p.BaseDelay << attempt
		if llm.IsRateLimit(err) && p.Cooldown > wait {
			wait = p.Cooldown
		}
		if sleepErr := p.sleep(ctx, wait); sleepErr != nil {
			return err
		}
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
