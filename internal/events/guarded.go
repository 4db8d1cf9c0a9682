package events

import (
	"context"

	"github.com/noah-isme/backend-electronic/internal/resilience"
)

// GuardedPublisher stops calling Next while its breaker is open, so an
// unreachable broker fails fast instead of holding requests for the full
// publish timeout.
type GuardedPublisher struct {
	Next    Publisher
	Breaker *resilience.Breaker
}

// Publish implements Publisher.
func (g GuardedPublisher) Publish(ctx context.Context, event Event) error {
	if g.Breaker == nil {
		return g.Next.Publish(ctx, event)
	}
	return g.Breaker.Do(ctx, func(ctx context.Context) error {
		return g.Next.Publish(ctx, event)
	})
}
