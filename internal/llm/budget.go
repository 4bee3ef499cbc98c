package llm

import (
	"fmt"
	"sync"
	"time"

	"autodeck/internal/model"
)

// Budget counts provider requests in a fixed window. One Budget is shared by
// every Gateway talking to the same provider.
type Budget struct {
	provider    string
	maxRequests int
	window      time.Duration
	now         func() time.Time

	mu          sync.Mutex
	windowStart time.Time
	used        int
}

// NewBudget allows maxRequests calls per window. A non-positive maxRequests
// disables the limit.
func NewBudget(provider string, maxRequests int, window time.Duration) *Budget {
	return &Budget{
		provider:    provider,
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// Acquire takes one request slot, or fails with a RateLimit ProviderError
// when the current window is exhausted.
func (b *Budget) Acquire() error {
	if b == nil || b.maxRequests <= 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if b.windowStart.IsZero() || now.Sub(b.windowStart) >= b.window {
		b.windowStart = now
		b.used = 0
	}

	if b.used >= b.maxRequests {
		return model.NewProviderError(b.provider, model.ProviderRateLimit,
			fmt.Errorf("local budget of %d requests per %s exhausted", b.maxRequests, b.window))
	}
	b.used++
	return nil
}

// Used reports the requests consumed in the current window.
func (b *Budget) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}
