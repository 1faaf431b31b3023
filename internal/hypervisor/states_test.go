package hypervisor

import "testing"

func TestPowerStateString(t *testing.T) {
	tests := []struct {
		state PowerState
		want  string
	}{
		{StateNoState, "no state"},
		{StateRunning, "running"},
		{StateBlocked, "blocked"},
		{StatePaused, "paused"},
		{StateShuttingDown, "shutting down"},
		{StateShutOff, "shutoff"},
		{StateCrashed, "crashed"},
		{StateSuspended, "pmsuspended"},
		{PowerState(42), "unknown(42)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("PowerState(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestPowerStateActive(t *testing.T) {
	active := []PowerState{StateRunning, StateBlocked, StatePaused, StateShuttingDown}
	for _, s := range active {
		if !s.Active() {
			t.Errorf("%v should be active", s)
		}
	}
	inactive := []PowerState{StateNoState, StateShutOff, StateCrashed, StateSuspended}
	for _, s := range inactive {
		if s.Active() {
			t.Errorf("%v should not be active", s)
		}
	}
}
