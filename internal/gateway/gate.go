package gateway

import (
	"fmt"
	"math"
)

type GateState int

const (
	// GateCooling: the chain has not advanced far enough since the last step.
	GateCooling GateState = iota + 1
	GateReady
)

func (s GateState) String() string {
	switch s {
	case GateCooling:
		return "cooling"
	case GateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Gate spaces step transactions at least Gap blocks apart.
type Gate struct {
	Gap uint64
}

type GateDecision struct {
	State    GateState
	Current  uint64
	LastStep uint64
	Target   uint64
}

func (g Gate) Target(lastStep uint64) uint64 {
	if lastStep > math.MaxUint64-g.Gap {
		return math.MaxUint64
	}
	return lastStep + g.Gap
}

func (g Gate) Check(current, lastStep uint64) GateDecision {
	d := GateDecision{
		State:    GateReady,
		Current:  current,
		LastStep: lastStep,
		Target:   g.Target(lastStep),
	}
	if current < d.Target {
		d.State = GateCooling
	}
	return d
}

func (d GateDecision) Allowed() bool { return d.State == GateReady }

func (d GateDecision) Reason() string {
	return fmt.Sprintf("current block is %d, skipping until block %d", d.Current, d.Target)
}
