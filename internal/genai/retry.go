package genai

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/BTreeMap/DealerPipe/internal/util"
)

// KeyRing holds API keys and the index of the one in use.
type KeyRing struct {
	mu      sync.Mutex
	keys    []string
	current int
}

// NewKeyRing trims and deduplicates keys, dropping blanks.
func NewKeyRing(keys []string) *KeyRing {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return &KeyRing{keys: out}
}

// newSlotRing returns a ring of n anonymous slots, for clients built on
// injected chat services.
func newSlotRing(n int) *KeyRing {
	return &KeyRing{keys: make([]string, n)}
}

// Keys returns the keys in ring order.
func (r *KeyRing) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.keys...)
}

// Len returns the number of keys.
func (r *KeyRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}

// Current returns the index of the active key.
func (r *KeyRing) Current() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Rotate advances to the next key and returns its index.
func (r *KeyRing) Rotate() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.keys) > 0 {
		r.current = (r.current + 1) % len(r.keys)
	}
	return r.current
}

// RetryPolicy retries an operation a bounded number of times.
type RetryPolicy struct {
	MaxAttempts int
	// Backoff returns the wait before attempt n (n >= 1).
	Backoff func(n int) time.Duration
	// Retryable decides whether an error may be retried.
	Retryable func(error) bool
}

// DefaultRetryPolicy allows one retry after 300-700ms when rate limited.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 2,
		Backoff:     func(int) time.Duration { return util.Jitter(300*time.Millisecond, 400*time.Millisecond) },
		Retryable:   IsRateLimited,
	}
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err so Do stops retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs op until it succeeds, returns a Permanent error, or attempts run
// out. The returned error is unwrapped from any Permanent marker.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context, attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 && p.Backoff != nil {
			timer := time.NewTimer(p.Backoff(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		err = op(ctx, attempt)
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
	}
	return err
}
