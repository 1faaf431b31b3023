package controller

import "github.com/codehedgehog/virtlab/internal/hypervisor"

// VM describes a created virtual machine.
type VM struct {
	Name     string `json:"name"`
	UUID     string `json:"uuid"`
	Owner    string `json:"owner,omitempty"`
	MemoryMB int    `json:"memory_mb"`
	VCPUs    int    `json:"vcpus"`
	DiskPath string `json:"disk_path"`

	// ConfigureError reports a guest configuration failure. Creation is
	// not rolled back when configuration fails; the VM exists and runs.
	ConfigureError string `json:"configure_error,omitempty"`
}

// Summary is one row of a VM listing.
type Summary struct {
	Name     string                `json:"name"`
	UUID     string                `json:"uuid"`
	State    hypervisor.PowerState `json:"state"`
	StateStr string                `json:"state_name"`
	MemoryMB uint64                `json:"memory_mb"`
	VCPUs    uint16                `json:"vcpus"`
}

// Status is a point-in-time state and resource snapshot of one VM.
// It is read from the hypervisor on every call, never cached.
type Status struct {
	Name        string                `json:"name"`
	UUID        string                `json:"uuid"`
	State       hypervisor.PowerState `json:"state"`
	StateStr    string                `json:"state_name"`
	MaxMemoryMB uint64                `json:"max_memory_mb"`
	MemoryMB    uint64                `json:"memory_mb"`
	VCPUs       uint16                `json:"vcpus"`
	CPUTimeNs   uint64                `json:"cpu_time_ns"`
}

// Target is the remote-shell endpoint of a VM, used to open terminal
// sessions.
type Target struct {
	Host    string
	Port    string
	User    string
	KeyPath string
}
