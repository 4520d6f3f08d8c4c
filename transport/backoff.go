package transport

import "time"

const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 30 * time.Second
)

// ReconnectPolicy bounds the automatic reconnection after an unexpected close.
type ReconnectPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// Delay returns min(BaseDelay * 2^attempt, MaxDelay) without overflowing.
// With the defaults, attempts 1..5 wait 2s, 4s, 8s, 16s and 30s.
func (p ReconnectPolicy) Delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		if d > p.MaxDelay/2 {
			return p.MaxDelay
		}
		d *= 2
	}
	return min(d, p.MaxDelay)
}

// Exhausted reports whether attempt is past the last allowed retry.
func (p ReconnectPolicy) Exhausted(attempt int) bool {
	return attempt > p.MaxAttempts
}

func (p ReconnectPolicy) normalize() ReconnectPolicy {
	defaults := DefaultReconnectPolicy()
	if p.MaxAttempts < 0 {
		p.MaxAttempts = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaults.BaseDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = max(defaults.MaxDelay, p.BaseDelay)
	}
	return p
}
