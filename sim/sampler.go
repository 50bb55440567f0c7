package sim

import (
	"math/rand"
	"time"
)

// ExponentialGate is the probabilistic emission filter of an ArrivalGenerator.
// Each attempt draws from Exp(rate) and opens when the draw is at or below the
// acceptance threshold, i.e. with probability 1 - exp(-rate*acceptance).
type ExponentialGate struct {
	rate       float64
	acceptance float64
}

// NewExponentialGate creates a gate from a class configuration.
func NewExponentialGate(cc ClassConfig) *ExponentialGate {
	return &ExponentialGate{rate: cc.Rate, acceptance: cc.Acceptance}
}

// Sample draws one value from Exp(rate). Always strictly positive.
func (g *ExponentialGate) Sample(rng *rand.Rand) float64 {
	return rng.ExpFloat64() / g.rate
}

// Open draws a sample and reports whether a client should be emitted.
func (g *ExponentialGate) Open(rng *rand.Rand) bool {
	return g.Sample(rng) <= g.acceptance
}

// ServiceSampler generates service durations for new clients.
type ServiceSampler interface {
	Sample(rng *rand.Rand) time.Duration
}

// UniformServiceSampler draws integer multiples of unit uniformly from [min, max].
type UniformServiceSampler struct {
	min, max int64
	unit     time.Duration
}

// NewUniformServiceSampler creates a sampler from a validated ServiceTimeConfig.
func NewUniformServiceSampler(st ServiceTimeConfig) *UniformServiceSampler {
	return &UniformServiceSampler{min: st.Min, max: st.Max, unit: st.Unit}
}

func (s *UniformServiceSampler) Sample(rng *rand.Rand) time.Duration {
	if s.min == s.max {
		return time.Duration(s.min) * s.unit
	}
	return time.Duration(s.min+rng.Int63n(s.max-s.min+1)) * s.unit
}
