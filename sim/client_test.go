package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClientState_Terminal(t *testing.T) {
	tests := []struct {
		state ClientState
		want  bool
	}{
		{StateQueued, false},
		{StateProcessing, false},
		{StateProcessed, true},
		{StateDeclined, true},
		{StateAbandoned, true},
	}
	for _, tt := range tests {
		if got := tt.state.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestClient_Wait(t *testing.T) {
	arrival := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	c := NewClient(3, Urgent, arrival, 2*time.Second)

	assert.Equal(t, 1500*time.Millisecond, c.Wait(arrival.Add(1500*time.Millisecond)))
	assert.Contains(t, c.String(), "ID: 3")
	assert.Contains(t, c.String(), "urgent")
}

func TestEvent_State_MatchesKind(t *testing.T) {
	tests := []struct {
		kind     EventKind
		want     ClientState
		terminal bool
	}{
		{EventCreated, StateQueued, false},
		{EventProcessed, StateProcessed, true},
		{EventDeclined, StateDeclined, true},
		{EventKind("teleported"), "", false},
	}
	for _, tt := range tests {
		got := Event{Kind: tt.kind}.State()
		assert.Equal(t, tt.want, got, "kind %s", tt.kind)
		assert.Equal(t, tt.terminal, got.Terminal(), "kind %s", tt.kind)
	}
}

func TestEvent_Source(t *testing.T) {
	assert.Equal(t, "generator", Event{Server: GeneratorSource}.Source())
	assert.Equal(t, "S2", Event{Server: 2}.Source())
	assert.Equal(t, "1s | S1 declined regular ID: 4",
		Event{Offset: time.Second, Server: 1, Kind: EventDeclined, Class: Regular, ClientID: 4}.String())
}
