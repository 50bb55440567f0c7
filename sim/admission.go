package sim

import (
	"fmt"
	"time"
)

// AdmissionPolicy decides, at dequeue time, whether a server serves a client.
type AdmissionPolicy interface {
	Admit(c Client, now time.Time) (admitted bool, reason string)
}

// Admission policy names accepted by NewAdmissionPolicy.
const (
	AdmissionPatience = "patience"
	AdmissionAlways   = "always"
)

// validAdmissionPolicies maps accepted admission policy names.
var validAdmissionPolicies = map[string]bool{
	AdmissionPatience: true,
	AdmissionAlways:   true,
	"":                true, // empty defaults to patience
}

// IsValidAdmissionPolicy returns true if name is a recognized admission policy.
func IsValidAdmissionPolicy(name string) bool {
	return validAdmissionPolicies[name]
}

// NewAdmissionPolicy creates the named policy for cfg.
// Panics on an unknown name; Config.Validate rejects those first.
func NewAdmissionPolicy(name string, cfg *Config) AdmissionPolicy {
	if !IsValidAdmissionPolicy(name) {
		panic(fmt.Sprintf("unknown admission policy %q", name))
	}
	switch name {
	case AdmissionAlways:
		return &AlwaysAdmit{}
	default:
		return NewPatienceAdmission(cfg)
	}
}

// AlwaysAdmit admits all clients unconditionally, ignoring patience.
type AlwaysAdmit struct{}

func (a *AlwaysAdmit) Admit(_ Client, _ time.Time) (bool, string) {
	return true, ""
}

// PatienceAdmission balks clients whose wait exceeds their class's max wait.
// A wait exactly equal to the threshold is still admitted.
type PatienceAdmission struct {
	maxWait [NumClasses]time.Duration
}

// NewPatienceAdmission builds the policy from the per-class thresholds in cfg.
func NewPatienceAdmission(cfg *Config) *PatienceAdmission {
	p := &PatienceAdmission{}
	for _, class := range Classes {
		p.maxWait[class] = cfg.MaxWait(class)
	}
	return p
}

// MaxWait returns the threshold applied to a class.
func (p *PatienceAdmission) MaxWait(class PriorityClass) time.Duration {
	return p.maxWait[class]
}

func (p *PatienceAdmission) Admit(c Client, now time.Time) (bool, string) {
	wait := c.Wait(now)
	if limit := p.maxWait[c.Class]; wait > limit {
		return false, fmt.Sprintf("waited %s, max %s", wait, limit)
	}
	return true, ""
}
