package sim

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// NoWaitLimit is an unbounded patience threshold: clients with it are never declined.
const NoWaitLimit = time.Duration(math.MaxInt64)

// ErrInvalidConfig is wrapped by every Config.Validate failure.
var ErrInvalidConfig = errors.New("invalid simulation config")

// ClassConfig groups the per-class arrival gate and patience parameters.
type ClassConfig struct {
	Rate       float64       `yaml:"rate"`       // rate parameter of the exponential gate distribution
	Acceptance float64       `yaml:"acceptance"` // emit a client when the sample is at or below this value
	MaxWait    time.Duration `yaml:"max_wait"`   // patience threshold; negative means NoWaitLimit
}

// ServiceTimeConfig describes the discrete uniform service-time range.
// A sample is an integer in [Min, Max] multiplied by Unit.
type ServiceTimeConfig struct {
	Min  int64         `yaml:"min"`
	Max  int64         `yaml:"max"`
	Unit time.Duration `yaml:"unit"`
}

// Config holds everything a Simulation needs. The zero value is not usable;
// start from DefaultConfig.
type Config struct {
	Duration    time.Duration     `yaml:"duration"`     // total run time budget
	Seed        int64             `yaml:"seed"`         // master seed for PartitionedRNG
	Servers     int               `yaml:"servers"`      // number of competing servers (>= 1)
	PacingDelay time.Duration     `yaml:"pacing_delay"` // delay between generator attempts
	MaxAttempts int64             `yaml:"max_attempts"` // per-generator attempt cap, 0 = unlimited
	EventBuffer int               `yaml:"event_buffer"` // ledger event channel capacity
	Admission   string            `yaml:"admission"`    // admission policy name, see NewAdmissionPolicy
	Regular     ClassConfig       `yaml:"regular"`
	Urgent      ClassConfig       `yaml:"urgent"`
	ServiceTime ServiceTimeConfig `yaml:"service_time"`
}

// DefaultConfig returns the reference bank configuration.
func DefaultConfig() Config {
	return Config{
		Duration:    60 * time.Second,
		Seed:        12345,
		Servers:     1,
		PacingDelay: time.Second,
		EventBuffer: 256,
		Admission:   AdmissionPatience,
		Regular: ClassConfig{
			Rate:       5,
			Acceptance: 0.3,
			MaxWait:    10 * time.Second,
		},
		Urgent: ClassConfig{
			Rate:       2,
			Acceptance: 0.3,
			MaxWait:    5 * time.Second,
		},
		ServiceTime: ServiceTimeConfig{Min: 1, Max: 4, Unit: time.Second},
	}
}

// Class returns the configuration for a priority class.
func (c *Config) Class(class PriorityClass) ClassConfig {
	if class == Urgent {
		return c.Urgent
	}
	return c.Regular
}

// MaxWait returns the effective patience threshold for a class.
func (c *Config) MaxWait(class PriorityClass) time.Duration {
	w := c.Class(class).MaxWait
	if w < 0 {
		return NoWaitLimit
	}
	return w
}

// Validate checks every field and returns an error wrapping ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %s", ErrInvalidConfig, c.Duration)
	}
	if c.Servers < 1 {
		return fmt.Errorf("%w: servers must be >= 1, got %d", ErrInvalidConfig, c.Servers)
	}
	if c.PacingDelay < 0 {
		return fmt.Errorf("%w: pacing_delay must be non-negative, got %s", ErrInvalidConfig, c.PacingDelay)
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("%w: max_attempts must be non-negative, got %d", ErrInvalidConfig, c.MaxAttempts)
	}
	if c.EventBuffer < 0 {
		return fmt.Errorf("%w: event_buffer must be non-negative, got %d", ErrInvalidConfig, c.EventBuffer)
	}
	if !IsValidAdmissionPolicy(c.Admission) {
		return fmt.Errorf("%w: unknown admission policy %q (valid: %s, %s)", ErrInvalidConfig, c.Admission, AdmissionPatience, AdmissionAlways)
	}
	for _, class := range Classes {
		cc := c.Class(class)
		if cc.Rate <= 0 || math.IsNaN(cc.Rate) || math.IsInf(cc.Rate, 0) {
			return fmt.Errorf("%w: %s.rate must be positive and finite, got %f", ErrInvalidConfig, class, cc.Rate)
		}
		if cc.Acceptance < 0 || math.IsNaN(cc.Acceptance) {
			return fmt.Errorf("%w: %s.acceptance must be non-negative, got %f", ErrInvalidConfig, class, cc.Acceptance)
		}
	}
	st := c.ServiceTime
	if st.Min < 0 || st.Max < st.Min {
		return fmt.Errorf("%w: service_time range must satisfy 0 <= min <= max, got [%d, %d]", ErrInvalidConfig, st.Min, st.Max)
	}
	if st.Unit <= 0 {
		return fmt.Errorf("%w: service_time.unit must be positive, got %s", ErrInvalidConfig, st.Unit)
	}
	if st.Max-st.Min == math.MaxInt64 {
		return fmt.Errorf("%w: service_time range [%d, %d] is too wide", ErrInvalidConfig, st.Min, st.Max)
	}
	if st.Max > math.MaxInt64/int64(st.Unit) {
		return fmt.Errorf("%w: service_time max %d x %s overflows a duration", ErrInvalidConfig, st.Max, st.Unit)
	}
	return nil
}

// LoadConfig reads a YAML configuration file on top of DefaultConfig.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}
