package controller

import "errors"

// Error kinds returned at the controller's public boundary. Callers match
// them with errors.Is; the wrapped message carries the operation detail.
var (
	// ErrNotFound indicates the referenced VM does not exist.
	ErrNotFound = errors.New("vm not found")

	// ErrAlreadyExists indicates a create collided with an existing domain.
	ErrAlreadyExists = errors.New("vm already exists")

	// ErrConflict indicates the VM's current state forbids the operation,
	// e.g. starting a VM that is already running.
	ErrConflict = errors.New("operation conflicts with vm state")

	// ErrHypervisor indicates a define/power/undefine call failed. Fatal
	// to the operation.
	ErrHypervisor = errors.New("hypervisor operation failed")

	// ErrProvisioning indicates disk or guest provisioning failed.
	ErrProvisioning = errors.New("provisioning failed")

	// ErrResourceConflict indicates a disk image path collision.
	ErrResourceConflict = errors.New("resource conflict")

	// ErrInvalidArgument indicates a malformed VM name or resource sizing.
	ErrInvalidArgument = errors.New("invalid argument")
)
