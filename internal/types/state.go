package types

import "time"

// MonitoringState is the persisted bookkeeping of the monitor loop.
// LastAddress and LastChangeAt only ever change together.
type MonitoringState struct {
	LastAddress      Address
	LastChangeAt     time.Time
	StagnationBudget time.Duration
	EscalationStep   int
}

// NewMonitoringState returns the state used on first run
func NewMonitoringState() MonitoringState {
	return MonitoringState{EscalationStep: 1}
}

// Normalize enforces the state invariants on values read back from storage
func (s MonitoringState) Normalize() MonitoringState {
	if s.EscalationStep < 1 {
		s.EscalationStep = 1
	}
	if s.StagnationBudget < 0 {
		s.StagnationBudget = 0
	}
	if s.LastAddress.IsZero() {
		s.LastChangeAt = time.Time{}
	}
	return s
}

// SinceChange returns the time elapsed since LastChangeAt, never negative.
// A zero LastChangeAt (first run) yields zero.
func (s MonitoringState) SinceChange(now time.Time) time.Duration {
	if s.LastChangeAt.IsZero() || now.Before(s.LastChangeAt) {
		return 0
	}
	return now.Sub(s.LastChangeAt)
}

// AddressChange is one entry of the change history
type AddressChange struct {
	Previous  Address       `json:"previous"`
	Current   Address       `json:"current"`
	After     time.Duration `json:"after"`
	ChangedAt time.Time     `json:"changed_at"`
}
