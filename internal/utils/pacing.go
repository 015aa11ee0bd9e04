package utils

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Pacer inserts the pauses between requests that keep the scraping from
// looking automated.
type Pacer interface {
	Pause(ctx context.Context) error
}

// RandomPacer sleeps for a uniformly random duration in [Min, Max].
type RandomPacer struct {
	Min time.Duration
	Max time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRandomPacer(min, max time.Duration) *RandomPacer {
	if max < min {
		min, max = max, min
	}
	return &RandomPacer{
		Min: min,
		Max: max,
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns the next pause length without sleeping.
func (p *RandomPacer) Next() time.Duration {
	if p.Max <= p.Min {
		return p.Min
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rnd == nil {
		p.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return p.Min + time.Duration(p.rnd.Int63n(int64(p.Max-p.Min)+1))
}

func (p *RandomPacer) Pause(ctx context.Context) error {
	d := p.Next()
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NoPause is a Pacer that never waits.
type NoPause struct{}

func (NoPause) Pause(ctx context.Context) error {
	return ctx.Err()
}
