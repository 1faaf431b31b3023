// Package disk manages VM disk images: copy-on-write clones of the shared
// base image, cloud-init seed ISOs, and their removal.
//
// Images are plain files under a single storage directory, created with
// qemu-img rather than libvirt storage pools. Each VM owns exactly one
// image file for its lifetime; the image must exist iff the VM exists.
package disk

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/codehedgehog/virtlab/internal/naming"
)

var (
	// ErrBaseImageMissing indicates the shared base image is absent.
	ErrBaseImageMissing = errors.New("base image not found")

	// ErrImageExists indicates the destination image path is already taken.
	ErrImageExists = errors.New("disk image already exists")
)

// Manager handles disk image operations for VMs.
type Manager struct {
	storageBase string
	baseImage   string
}

// NewManager creates a disk manager rooted at storageBase, cloning new
// images from baseImage. The storage directory is created if missing.
func NewManager(storageBase, baseImage string) (*Manager, error) {
	if err := os.MkdirAll(storageBase, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", storageBase, err)
	}
	return &Manager{storageBase: storageBase, baseImage: baseImage}, nil
}

// ImagePath returns the qcow2 image path for a VM.
func (m *Manager) ImagePath(vmName string) string {
	return filepath.Join(m.storageBase, naming.DiskImageName(vmName))
}

// SeedISOPath returns the cloud-init seed ISO path for a VM.
func (m *Manager) SeedISOPath(vmName string) string {
	return filepath.Join(m.storageBase, naming.SeedISOName(vmName))
}

// CloneBase creates a copy-on-write overlay of the base image for the VM
// and returns its path. The base image is never modified.
//
// Returns ErrBaseImageMissing if the base image is absent and
// ErrImageExists if the destination path is already taken.
func (m *Manager) CloneBase(vmName string) (string, error) {
	if _, err := os.Stat(m.baseImage); err != nil {
		return "", fmt.Errorf("%w: %s", ErrBaseImageMissing, m.baseImage)
	}

	dest := m.ImagePath(vmName)
	if _, err := os.Stat(dest); err == nil {
		return "", fmt.Errorf("%w: %s", ErrImageExists, dest)
	}

	// Overlay with explicit backing format so qemu-img never probes.
	cmd := exec.Command(
		"qemu-img", "create",
		"-f", "qcow2",
		"-F", "qcow2",
		"-b", m.baseImage,
		dest,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("failed to clone base image to %s: %w\nOutput: %s", dest, err, string(output))
	}

	return dest, nil
}

// WriteSeedISO writes a cloud-init seed ISO for the VM and returns its path.
func (m *Manager) WriteSeedISO(vmName string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("ISO data cannot be empty")
	}

	path := m.SeedISOPath(vmName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write seed ISO %s: %w", path, err)
	}
	return path, nil
}

// Remove deletes the VM's disk image and seed ISO. A missing file is not
// an error; the caller may be cleaning up after a partial failure.
func (m *Manager) Remove(vmName string) error {
	var firstErr error
	for _, path := range []string{m.ImagePath(vmName), m.SeedISOPath(vmName)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to remove %s: %w", path, err)
			}
		}
	}
	return firstErr
}

// Exists reports whether the VM's disk image is present.
func (m *Manager) Exists(vmName string) bool {
	_, err := os.Stat(m.ImagePath(vmName))
	return err == nil
}
