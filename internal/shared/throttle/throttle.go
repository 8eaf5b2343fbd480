package throttle

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/time/rate"
)

// Pacer limits the rate of writes issued by bulk maintenance jobs.
// A zero or nil Pacer never waits.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer returns a pacer allowing writesPerSecond writes. Values <= 0 disable pacing.
func NewPacer(writesPerSecond float64) *Pacer {
	if writesPerSecond <= 0 {
		return &Pacer{}
	}

	burst := int(math.Max(1, math.Ceil(writesPerSecond)))
	return &Pacer{limiter: rate.NewLimiter(rate.Limit(writesPerSecond), burst)}
}

// Wait blocks until the next write is allowed or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return ctx.Err()
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for write slot: %w", err)
	}
	return nil
}

func (p *Pacer) Unlimited() bool {
	return p == nil || p.limiter == nil
}
