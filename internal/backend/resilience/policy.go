package resilience

import "time"

// Policy configures retries and the circuit breaker of an Executor.
// Zero values are replaced by DefaultPolicy values.
type Policy struct {
	MaxAttempts    int           `yaml:"maxAttempts"`
	InitialBackoff time.Duration `yaml:"initialBackoff"`
	MaxBackoff     time.Duration `yaml:"maxBackoff"`
	Multiplier     float64       `yaml:"multiplier"`

	Breaker BreakerPolicy `yaml:"breaker"`
}

type BreakerPolicy struct {
	Disabled         bool          `yaml:"disabled"`
	MinRequests      uint32        `yaml:"minRequests"`
	FailureRatio     float64       `yaml:"failureRatio"`
	OpenTimeout      time.Duration `yaml:"openTimeout"`
	HalfOpenMaxCalls uint32        `yaml:"halfOpenMaxCalls"`
}

// DefaultPolicy makes a single attempt per call; retries are opt-in by
// raising MaxAttempts. The breaker is on by default.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    1,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     400 * time.Millisecond,
		Multiplier:     2.0,
		Breaker: BreakerPolicy{
			MinRequests:      10,
			FailureRatio:     0.5,
			OpenTimeout:      30 * time.Second,
			HalfOpenMaxCalls: 2,
		},
	}
}

// WithDefaults fills unset or out of range values
func (p Policy) WithDefaults() Policy {
	def := DefaultPolicy()

	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = def.InitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = def.MaxBackoff
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = p.InitialBackoff
	}
	if p.Multiplier < 1 {
		p.Multiplier = def.Multiplier
	}

	b := &p.Breaker
	if b.MinRequests == 0 {
		b.MinRequests = def.Breaker.MinRequests
	}
	if b.FailureRatio <= 0 || b.FailureRatio > 1 {
		b.FailureRatio = def.Breaker.FailureRatio
	}
	if b.OpenTimeout <= 0 {
		b.OpenTimeout = def.Breaker.OpenTimeout
	}
	if b.HalfOpenMaxCalls == 0 {
		b.HalfOpenMaxCalls = def.Breaker.HalfOpenMaxCalls
	}
	return p
}

// backoff returns the wait before the given retry (1-based)
func (p Policy) backoff(retry int) time.Duration {
	wait := p.InitialBackoff
	for i := 1; i < retry; i++ {
		wait = time.Duration(float64(wait) * p.Multiplier)
		if wait >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if wait > p.MaxBackoff {
		return p.MaxBackoff
	}
	return wait
}
