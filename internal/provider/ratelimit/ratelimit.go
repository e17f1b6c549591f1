package ratelimit

import (
    "context"
    "sync"
    "time"
)

// Limiter gates outbound calls. Wait blocks until the next call may proceed
// or ctx is done.
type Limiter interface {
    Wait(ctx context.Context) error
}

// Interval enforces a minimum time between calls.
// Concurrent callers queue on the gate and are released one per Every.
type Interval struct {
    Every time.Duration

    mu   sync.Mutex
    next time.Time
}

// NewInterval returns a gate that releases one call per every.
func NewInterval(every time.Duration) *Interval {
    return &Interval{Every: every}
}

func (m *Interval) Wait(ctx context.Context) error {
    if m == nil || m.Every <= 0 {
        return ctx.Err()
    }
    // reserve a slot, then sleep until it comes up
    m.mu.Lock()
    now := time.Now()
    slot := m.next
    if slot.Before(now) {
        slot = now
    }
    m.next = slot.Add(m.Every)
    m.mu.Unlock()

    wait := time.Until(slot)
    if wait <= 0 {
        return ctx.Err()
    }
    t := time.NewTimer(wait)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return ctx.Err()
    case <-t.C:
        return nil
    }
}
