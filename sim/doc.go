// Package sim provides the queueing and admission engine of the bank simulation.
//
// # Reading Guide
//
// Start with these files to understand a run:
//   - client.go: Client data and the Queued → {Declined | Processing → Processed} | Abandoned lifecycle
//   - generator.go: paced, gated arrival generation feeding the IntakeQueue
//   - server.go: the single-slot service loop with patience admission control
//   - simulation.go: the controller that owns the deadline and joins every task
//
// # Architecture
//
// Two ArrivalGenerators (regular, urgent) and N Servers run as independent
// goroutines sharing one IntakeQueue and one cancellation context. Generators
// serialize id allocation and enqueue through a shared creation mutex; the queue
// closes when the last generator releases its writer. Servers are competing
// consumers: each claims one client at a time.
//
// Outcome accounting is message passing: every task sends Events to the Ledger
// goroutine, which owns all counters and fans events out to EventSinks. Once the
// context is done, servers stop recording outcomes (drop-on-cancel), so clients in
// flight at the deadline are counted as abandoned.
//
// Sub-packages:
//   - sim/trace/: event trace recording, summaries and JSONL export
//   - sim/telemetry/: OpenTelemetry span helpers
//
// Randomness comes from PartitionedRNG: each class's gate and service sampler
// draws from its own seeded stream, so a fixed seed and attempt cap reproduce
// the same generated counts.
package sim
