package hypervisor

import "fmt"

// PowerState is a named libvirt domain state (VIR_DOMAIN_* values).
// The hypervisor is always the source of truth for this value; it is
// never cached across calls.
type PowerState int32

const (
	StateNoState      PowerState = 0
	StateRunning      PowerState = 1
	StateBlocked      PowerState = 2
	StatePaused       PowerState = 3
	StateShuttingDown PowerState = 4
	StateShutOff      PowerState = 5
	StateCrashed      PowerState = 6
	StateSuspended    PowerState = 7
)

// String returns the human-readable state name.
func (s PowerState) String() string {
	switch s {
	case StateNoState:
		return "no state"
	case StateRunning:
		return "running"
	case StateBlocked:
		return "blocked"
	case StatePaused:
		return "paused"
	case StateShuttingDown:
		return "shutting down"
	case StateShutOff:
		return "shutoff"
	case StateCrashed:
		return "crashed"
	case StateSuspended:
		return "pmsuspended"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// Active reports whether the domain holds guest resources (anything that
// a forced power-off would interrupt).
func (s PowerState) Active() bool {
	switch s {
	case StateRunning, StateBlocked, StatePaused, StateShuttingDown:
		return true
	default:
		return false
	}
}
