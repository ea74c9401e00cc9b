package resilience

import "time"

// Config bounds one executor. Zero fields take the defaults.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     400 * time.Millisecond,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

// PublishConfig tunes base for event publishes, which run inside API
// requests after the commit and must give up quickly.
func PublishConfig(base Config) Config {
	c := base.normalize()
	c.RetryMaxBackoff = min(c.RetryMaxBackoff, 200*time.Millisecond)
	c.RetryInitialBackoff = min(c.RetryInitialBackoff, c.RetryMaxBackoff)
	return c
}

// DeliveryConfig tunes base for the notification gateway. The worker has
// time to wait, and a failing SMS provider needs longer to recover.
func DeliveryConfig(base Config) Config {
	c := base.normalize()
	c.RetryMaxAttempts = max(c.RetryMaxAttempts, 4)
	c.RetryMaxBackoff = max(c.RetryMaxBackoff, 2*time.Second)
	c.BreakerOpenTimeout = max(c.BreakerOpenTimeout, time.Minute)
	return c
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	orDefault := func(v, d time.Duration) time.Duration {
		if v <= 0 {
			return d
		}
		return v
	}

	if c.RetryMaxAttempts <= 0 {
		c.RetryMaxAttempts = def.RetryMaxAttempts
	}
	c.RetryInitialBackoff = orDefault(c.RetryInitialBackoff, def.RetryInitialBackoff)
	c.RetryMaxBackoff = max(orDefault(c.RetryMaxBackoff, def.RetryMaxBackoff), c.RetryInitialBackoff)
	if c.RetryMultiplier < 1.0 {
		c.RetryMultiplier = def.RetryMultiplier
	}

	if c.BreakerMinRequests == 0 {
		c.BreakerMinRequests = def.BreakerMinRequests
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		c.BreakerFailureRatio = def.BreakerFailureRatio
	}
	c.BreakerOpenTimeout = orDefault(c.BreakerOpenTimeout, def.BreakerOpenTimeout)
	if c.BreakerHalfOpenMaxCalls == 0 {
		c.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}
	return c
}
