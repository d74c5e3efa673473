package rabbitmq

import "time"

// RetryPolicy is an exponential backoff schedule
type RetryPolicy struct {
	Retries   int
	BaseDelay time.Duration
	Mult      float64
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.Retries <= 0 {
		p.Retries = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 100 * time.Millisecond
	}
	if p.Mult <= 0 {
		p.Mult = 2.0
	}
	return p
}

// Delay returns the wait before retry number attempt+1
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := float64(p.BaseDelay)
	for i := 0; i < attempt; i++ {
		d *= p.Mult
	}
	return time.Duration(d)
}
