package sim

import (
	"testing"
	"time"
)

func TestPatienceAdmission_Thresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Regular.MaxWait = 10 * time.Second
	cfg.Urgent.MaxWait = 2 * time.Second
	policy := NewPatienceAdmission(&cfg)
	arrival := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		class PriorityClass
		wait  time.Duration
		want  bool
	}{
		{"regular within patience", Regular, 9 * time.Second, true},
		{"regular at exact threshold", Regular, 10 * time.Second, true},
		{"regular past threshold", Regular, 10*time.Second + time.Nanosecond, false},
		{"urgent within patience", Urgent, time.Second, true},
		{"urgent past threshold", Urgent, 3 * time.Second, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(1, tt.class, arrival, time.Second)
			got, reason := policy.Admit(c, arrival.Add(tt.wait))
			if got != tt.want {
				t.Errorf("Admit() = %v (%s), want %v", got, reason, tt.want)
			}
			if !got && reason == "" {
				t.Error("expected a reason for a declined client")
			}
		})
	}
}

func TestPatienceAdmission_ZeroTolerance_DeclinesAnyWait(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Regular.MaxWait = 0
	policy := NewPatienceAdmission(&cfg)
	arrival := time.Now()

	if ok, _ := policy.Admit(NewClient(1, Regular, arrival, 0), arrival.Add(time.Nanosecond)); ok {
		t.Error("expected a 1ns wait to exceed a zero threshold")
	}
}

func TestPatienceAdmission_NegativeMaxWait_IsUnbounded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Urgent.MaxWait = -1
	policy := NewPatienceAdmission(&cfg)

	if policy.MaxWait(Urgent) != NoWaitLimit {
		t.Fatalf("MaxWait(Urgent) = %s, want NoWaitLimit", policy.MaxWait(Urgent))
	}
	arrival := time.Now()
	if ok, _ := policy.Admit(NewClient(1, Urgent, arrival, 0), arrival.Add(24*time.Hour)); !ok {
		t.Error("expected an unbounded threshold to admit a day-long wait")
	}
}

func TestNewAdmissionPolicy_ByName(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Regular.MaxWait = 0
	arrival := time.Now()
	late := NewClient(1, Regular, arrival, 0)

	tests := []struct {
		name string
		want bool
	}{
		{AdmissionPatience, false},
		{"", false},
		{AdmissionAlways, true},
	}
	for _, tt := range tests {
		policy := NewAdmissionPolicy(tt.name, &cfg)
		if ok, _ := policy.Admit(late, arrival.Add(time.Second)); ok != tt.want {
			t.Errorf("policy %q admitted=%v, want %v", tt.name, ok, tt.want)
		}
	}
}

func TestNewAdmissionPolicy_UnknownName_Panics(t *testing.T) {
	cfg := DefaultConfig()
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown policy")
		}
	}()
	NewAdmissionPolicy("vip-first", &cfg)
}

func TestAlwaysAdmit(t *testing.T) {
	var policy AdmissionPolicy = &AlwaysAdmit{}
	if ok, _ := policy.Admit(NewClient(1, Regular, time.Time{}, 0), time.Now()); !ok {
		t.Error("AlwaysAdmit declined a client")
	}
}
