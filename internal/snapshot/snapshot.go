// Package snapshot takes best-effort disk-only snapshots of lab VMs
// around power-state transitions.
//
// Snapshots go through virsh rather than the libvirt RPC API: disk-only
// external snapshots without metadata are a single well-understood CLI
// invocation, and a failed snapshot must never break the surrounding VM
// operation anyway. Callers are expected to log and swallow errors.
package snapshot

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Manager creates and lists VM snapshots.
type Manager struct {
	// now is swappable for tests.
	now func() time.Time
}

// NewManager creates a snapshot manager.
func NewManager() *Manager {
	return &Manager{now: time.Now}
}

// Create takes a disk-only, atomic, metadata-less snapshot of the VM and
// returns the snapshot name. No guest agent is required.
func (m *Manager) Create(ctx context.Context, vmName string) (string, error) {
	name := fmt.Sprintf("%s-%s", vmName, m.now().UTC().Format("20060102-150405"))

	cmd := exec.CommandContext(ctx,
		"virsh", "snapshot-create-as",
		vmName, name,
		"--disk-only",
		"--atomic",
		"--no-metadata",
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("snapshot %s of %s failed: %w\nOutput: %s", name, vmName, err, string(output))
	}

	return name, nil
}

// List returns the snapshot names recorded for a VM.
func (m *Manager) List(ctx context.Context, vmName string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "virsh", "snapshot-list", vmName, "--name")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots for %s: %w\nOutput: %s", vmName, err, string(output))
	}

	var names []string
	for _, line := range strings.Split(string(output), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}
