package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// === SimulationKey ===

// SimulationKey identifies a reproducible stream of random draws.
// Two simulations with the same SimulationKey and identical configuration
// make identical gate decisions and service-time samples.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystems ===

// SubsystemGate returns the subsystem name for a class's arrival gate.
func SubsystemGate(class PriorityClass) string {
	return fmt.Sprintf("gate/%s", class)
}

// SubsystemService returns the subsystem name for a class's service-time sampler.
func SubsystemService(class PriorityClass) string {
	return fmt.Sprintf("service/%s", class)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
// Each subsystem is seeded with masterSeed XOR fnv1a64(subsystemName), so drawing
// from one stream never shifts another.
//
// Thread-safety: NOT thread-safe. Call ForSubsystem from a single goroutine and
// hand each returned *rand.Rand to exactly one consumer.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(int64(p.key) ^ fnv1a64(name)))
	p.subsystems[name] = rng
	return rng
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
