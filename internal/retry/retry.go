// Package retry implements RetryPolicy and the RetryHandler ON_ERROR
// hook that re-invokes a leaf action's body with exponential backoff and
// deterministic per-seed jitter.
//
// The backoff/jitter shape (exponential growth, jitter derived by
// hashing a seed string to a uniform value; no maximum delay is
// applied here) is
// adapted from this codebase's own build-orchestration retry logic,
// swapped from sha256 onto blake3 and corrected to sleep the jittered
// value rather than the pre-jitter delay (see DESIGN.md's Open
// Question resolutions).
package retry

import (
	"context"
	"encoding/binary"
	"math"
	"strconv"
	"time"

	"github.com/zeebo/blake3"

	"github.com/falyx-go/falyx/internal/execctx"
	"github.com/falyx-go/falyx/internal/iface"
)

// Policy is the declarative retry configuration attached to a leaf action.
type Policy struct {
	Enabled    bool
	MaxRetries int
	Delay      time.Duration
	Backoff    float64
	Jitter     float64 // seconds; each sleep is offset by a value in [-Jitter, +Jitter]
}

// DefaultPolicy returns a disabled policy with sane defaults, mirroring
// the original's RetryPolicy(max_retries=3, delay=1.0, backoff=2.0,
// jitter=0.0, enabled=False).
func DefaultPolicy() Policy {
	return Policy{Enabled: false, MaxRetries: 3, Delay: time.Second, Backoff: 2.0, Jitter: 0.0}
}

// Enable turns the policy on, validating its numeric fields.
func (p *Policy) Enable() error {
	if p.MaxRetries < 0 {
		return iface.NewConfigurationError("retry policy: max_retries must be >= 0, got %d", p.MaxRetries)
	}
	if p.Delay < 0 {
		return iface.NewConfigurationError("retry policy: delay must be >= 0")
	}
	if p.Backoff < 1 {
		return iface.NewConfigurationError("retry policy: backoff must be >= 1, got %v", p.Backoff)
	}
	if p.Jitter < 0 {
		return iface.NewConfigurationError("retry policy: jitter must be >= 0")
	}
	p.Enabled = true
	return nil
}

// IsActive reports whether the policy is enabled and will actually retry.
func (p Policy) IsActive() bool {
	return p.Enabled && p.MaxRetries > 0
}

// Body is the retried unit: a leaf action's execution body, re-invoked
// with the context's recorded args on each attempt.
type Body func(ctx context.Context, args execctx.Args) (any, error)

// Handler applies a Policy as an ON_ERROR hook backed by a Body.
type Handler struct {
	Policy Policy
	Body   Body
	Clock  iface.Clock
}

// NewHandler builds a Handler. clock may be nil, defaulting to the
// system clock.
func NewHandler(policy Policy, body Body, clock iface.Clock) *Handler {
	if clock == nil {
		clock = iface.SystemClock
	}
	return &Handler{Policy: policy, Body: body, Clock: clock}
}

// Hook adapts the Handler into an iface-compatible ON_ERROR hook
// (context/*execctx.ExecutionContext callback), for registration on a
// hook.Manager via the same signature every other hook uses.
func (h *Handler) Hook(ctx context.Context, ec *execctx.ExecutionContext) error {
	if !h.Policy.IsActive() {
		return nil
	}
	attempt := 0
	delay := h.Policy.Delay
	var lastErr error = ec.Exception

	for attempt < h.Policy.MaxRetries {
		attempt++
		sleepFor := delay
		if h.Policy.Jitter > 0 {
			seed := ec.ID + "#" + strconv.Itoa(attempt)
			maxJitter := time.Duration(h.Policy.Jitter * float64(time.Second))
			sleepFor = delay + jitterOffset(seed, maxJitter, 1)
		}
		if sleepFor < 0 {
			sleepFor = 0
		}
		if err := h.Clock.Sleep(ctx, sleepFor); err != nil {
			lastErr = err
			break
		}

		result, err := h.Body(ctx, ec.Args)
		if err == nil {
			ec.SetResult(result)
			return nil
		}
		lastErr = err
		delay = time.Duration(float64(delay) * h.Policy.Backoff)
	}

	ec.SetException(lastErr)
	return nil
}

// jitterOffset returns a deterministic value in [-jitterFrac*base,
// +jitterFrac*base], derived from hashing seed with blake3. Same seed,
// same policy => same offset, which is what makes RetryHandler tests
// able to assert an exact delay.
func jitterOffset(seed string, base time.Duration, jitterFrac float64) time.Duration {
	sum := blake3.Sum256([]byte(seed))
	u := binary.BigEndian.Uint64(sum[:8])
	unit := float64(u) / float64(math.MaxUint64) // in [0,1)
	signed := unit*2 - 1                         // in [-1,1)
	maxOffset := float64(base) * jitterFrac
	return time.Duration(signed * maxOffset)
}
