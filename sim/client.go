// Defines the Client struct that models a single customer of the service facility.
// A Client is created by an ArrivalGenerator, travels once through the IntakeQueue
// and is claimed by exactly one Server.

package sim

import (
	"fmt"
	"time"
)

// PriorityClass is the class of a client. It selects the patience threshold,
// the arrival gate and the service-time stream, never the queue position.
type PriorityClass int

const (
	Regular PriorityClass = iota
	Urgent
)

// NumClasses is the number of priority classes; counters are indexed by PriorityClass.
const NumClasses = 2

// Classes lists every priority class in index order.
var Classes = [NumClasses]PriorityClass{Regular, Urgent}

func (c PriorityClass) String() string {
	switch c {
	case Regular:
		return "regular"
	case Urgent:
		return "urgent"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// ClientState is the lifecycle state of a client as observed by the simulation.
// It is not stored on the Client itself.
//
//	Queued -> Declined
//	Queued -> Processing -> Processed
//	Queued | Processing -> Abandoned (run cancelled)
type ClientState string

const (
	StateQueued     ClientState = "queued"
	StateProcessing ClientState = "processing"
	StateProcessed  ClientState = "processed"
	StateDeclined   ClientState = "declined"
	StateAbandoned  ClientState = "abandoned"
)

// Terminal reports whether no transition leaves the state.
func (s ClientState) Terminal() bool {
	return s == StateProcessed || s == StateDeclined || s == StateAbandoned
}

// Client is immutable once created and is passed by value through the queue.
type Client struct {
	ID              int64         // Unique within Class, monotonic per class
	Class           PriorityClass // Regular or Urgent
	ArrivalTime     time.Time     // Stamped at creation
	ServiceDuration time.Duration // Sampled at creation
}

// NewClient builds a Client stamped with the given arrival time.
func NewClient(id int64, class PriorityClass, arrival time.Time, service time.Duration) Client {
	return Client{
		ID:              id,
		Class:           class,
		ArrivalTime:     arrival,
		ServiceDuration: service,
	}
}

// Wait returns how long the client has been waiting at now.
func (c Client) Wait(now time.Time) time.Duration {
	return now.Sub(c.ArrivalTime)
}

func (c Client) String() string {
	return fmt.Sprintf("Client: (ID: %d, Class: %s, ArrivalTime: %s, ServiceDuration: %s)",
		c.ID, c.Class, c.ArrivalTime.Format(time.RFC3339Nano), c.ServiceDuration)
}
