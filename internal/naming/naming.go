// Package naming provides naming conventions for lab VM resources:
// disk image files, cloud-init seed ISOs, hot-pool slot names, and
// validation of libvirt domain names.
package naming

import (
	"fmt"
	"regexp"
)

// PoolSlotPrefix is the reserved namespace for hot-pool VM names.
const PoolSlotPrefix = "pool-vm-"

var (
	namePattern       = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*[a-z0-9]$`)
	singleCharPattern = regexp.MustCompile(`^[a-z0-9]$`)
)

// DiskImageName returns the qcow2 image file name for a VM.
// Format: {vmName}.qcow2
func DiskImageName(vmName string) string {
	return fmt.Sprintf("%s.qcow2", vmName)
}

// SeedISOName returns the cloud-init seed ISO file name for a VM.
// Format: {vmName}-seed.iso
func SeedISOName(vmName string) string {
	return fmt.Sprintf("%s-seed.iso", vmName)
}

// PoolSlotName returns the reserved domain name for hot-pool slot n (1-based).
// Format: pool-vm-{n}
func PoolSlotName(n int) string {
	return fmt.Sprintf("%s%d", PoolSlotPrefix, n)
}

// ValidateVMName checks that a name is usable as a libvirt domain name and
// as a path component of its disk image. Must start and end with an
// alphanumeric character and contain only lowercase alphanumerics, hyphens,
// or underscores.
func ValidateVMName(name string) error {
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) == 1 {
		if !singleCharPattern.MatchString(name) {
			return fmt.Errorf("single-character name must be alphanumeric, got %q", name)
		}
		return nil
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("name must start and end with alphanumeric characters and contain only lowercase alphanumeric, hyphens, or underscores, got %q", name)
	}
	return nil
}
