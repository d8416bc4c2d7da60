package monitor

import (
	"time"

	"ipsentry/internal/types"
)

// Decision is the outcome of applying one successful resolution to the state
type Decision struct {
	Next    types.MonitoringState
	Event   *types.Event
	Persist bool
}

// Policy holds the fixed parameters of the change-detection state machine.
//
// The stagnation budget is counted in time, not polls: every successful tick
// that sees the same address spends TickInterval of it.
type Policy struct {
	BaseThreshold time.Duration
	TickInterval  time.Duration
}

// Step applies a successfully resolved address to prev.
// It never mutates prev and has no side effects.
func (p Policy) Step(prev types.MonitoringState, addr types.Address, now time.Time) Decision {
	prev = prev.Normalize()

	// A change always wins over an exhausted budget.
	if !addr.Equal(prev.LastAddress) {
		next := types.MonitoringState{
			LastAddress:      addr,
			LastChangeAt:     now,
			StagnationBudget: p.BaseThreshold,
			EscalationStep:   1,
		}
		return Decision{
			Next: next,
			Event: &types.Event{
				Kind:     types.EventChanged,
				Address:  addr,
				Previous: prev.LastAddress,
				Elapsed:  prev.SinceChange(now),
				Step:     1,
				At:       now,
			},
			Persist: true,
		}
	}

	next := prev
	next.StagnationBudget = saturatingSub(prev.StagnationBudget, p.TickInterval)
	if next.StagnationBudget > 0 {
		return Decision{Next: next}
	}

	next.EscalationStep = prev.EscalationStep + 1
	next.StagnationBudget = p.BaseThreshold * time.Duration(next.EscalationStep)

	return Decision{
		Next: next,
		Event: &types.Event{
			Kind:     types.EventStagnant,
			Address:  addr,
			Previous: prev.LastAddress,
			Elapsed:  prev.SinceChange(now),
			Step:     prev.EscalationStep,
			At:       now,
		},
		Persist: true,
	}
}

// saturatingSub returns a-b clamped at zero
func saturatingSub(a, b time.Duration) time.Duration {
	if b >= a {
		return 0
	}
	return a - b
}
