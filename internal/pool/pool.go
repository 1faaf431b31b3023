// Package pool maintains a fixed set of pre-provisioned, shut-off VMs
// so a lab session can start instantly instead of waiting for a full
// provisioning run.
//
// Slot names are fixed (pool-vm-1..N) and the hypervisor is the only
// source of slot state: the reconciler re-derives what each slot needs
// on every pass, which makes the pool self-healing after VMs are
// deleted or left running behind its back.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/codehedgehog/virtlab/internal/controller"
	"github.com/codehedgehog/virtlab/internal/hypervisor"
	"github.com/codehedgehog/virtlab/internal/logger"
	"github.com/codehedgehog/virtlab/internal/metrics"
	"github.com/codehedgehog/virtlab/internal/naming"
)

// ErrExhausted indicates no slot was ready to hand out.
var ErrExhausted = errors.New("no pool vm available")

// poolOwner labels pool-held VMs in creation metrics.
const poolOwner = "pool"

// lifecycle is the subset of VM operations the pool drives.
//
// In production this is satisfied by *controller.Controller.
type lifecycle interface {
	Create(ctx context.Context, req controller.CreateRequest) (*controller.VM, error)
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
	GetState(ctx context.Context, name string) (*controller.Status, error)
}

// diskManager removes orphaned images before a slot is re-provisioned.
//
// In production this is satisfied by *disk.Manager.
type diskManager interface {
	Remove(vmName string) error
}

// slot is one pool position. Its mutex keeps reconciliation and
// acquisition of the same slot from overlapping.
type slot struct {
	mu   sync.Mutex
	name string
}

// SlotStatus is the externally visible state of one slot.
type SlotStatus struct {
	Name  string `json:"name"`
	State string `json:"state"`
	Ready bool   `json:"ready"`
}

// Manager reconciles and hands out pool VMs.
type Manager struct {
	vms      lifecycle
	disks    diskManager
	memoryMB int
	vcpus    int
	log      *logrus.Entry
	slots    []*slot
}

// New creates a pool manager for size slots sized memoryMB/vcpus.
func New(vms lifecycle, disks diskManager, size, memoryMB, vcpus int) *Manager {
	slots := make([]*slot, 0, size)
	for i := 1; i <= size; i++ {
		slots = append(slots, &slot{name: naming.PoolSlotName(i)})
	}
	return &Manager{
		vms:      vms,
		disks:    disks,
		memoryMB: memoryMB,
		vcpus:    vcpus,
		log:      logger.Component("pool"),
		slots:    slots,
	}
}

// ReconcileAll drives every slot toward "exists and shut off". One
// failing slot does not stop the others; the first error is returned
// after all slots were attempted.
func (m *Manager) ReconcileAll(ctx context.Context) error {
	var firstErr error
	for _, s := range m.slots {
		if err := m.reconcileSlot(ctx, s); err != nil {
			m.log.WithError(err).Warnf("reconcile %s", s.name)
			metrics.PoolReconcile("error")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		metrics.PoolReconcile("ok")
	}
	return firstErr
}

// Run reconciles in a loop until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = m.ReconcileAll(ctx)
		}
	}
}

// reconcileSlot brings one slot to the ready state. A slot that is
// already being reconciled or acquired is skipped, never waited on, so
// a slow provisioning run cannot back up the reconcile loop.
func (m *Manager) reconcileSlot(ctx context.Context, s *slot) error {
	if !s.mu.TryLock() {
		return nil
	}
	defer s.mu.Unlock()

	status, err := m.vms.GetState(ctx, s.name)
	switch {
	case errors.Is(err, controller.ErrNotFound):
		// The domain is gone but its image may not be; a leftover image
		// would make the re-create collide.
		return m.provisionSlot(ctx, s)
	case err != nil:
		return err
	case status.State == hypervisor.StateShutOff:
		return nil
	default:
		// Exists but not parked, e.g. left running by a crashed session.
		if err := m.vms.Stop(ctx, s.name); err != nil {
			return fmt.Errorf("park %s: %w", s.name, err)
		}
		m.log.Infof("slot %s parked", s.name)
		return nil
	}
}

// Acquire hands out the first slot it can bring to the ready state,
// reconciling on the spot: a missing slot is re-provisioned, a running
// one is parked. It fails only when every slot's reconciliation failed,
// which callers should treat as transient exhaustion.
func (m *Manager) Acquire(ctx context.Context) (string, error) {
	var firstErr error
	for _, s := range m.slots {
		if err := m.acquireSlot(ctx, s); err != nil {
			m.log.WithError(err).Warnf("acquire %s", s.name)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		m.log.Infof("slot %s acquired", s.name)
		return s.name, nil
	}
	if firstErr != nil {
		return "", fmt.Errorf("%w: %v", ErrExhausted, firstErr)
	}
	return "", ErrExhausted
}

// acquireSlot brings one slot to ShutOff, whatever its current state.
// Unlike the periodic reconciler it waits for the slot lock, so an
// allocation never races a reconcile pass on the same slot.
func (m *Manager) acquireSlot(ctx context.Context, s *slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, err := m.vms.GetState(ctx, s.name)
	switch {
	case errors.Is(err, controller.ErrNotFound):
		return m.provisionSlot(ctx, s)
	case err != nil:
		return err
	case status.State == hypervisor.StateShutOff:
		return nil
	default:
		return m.vms.Stop(ctx, s.name)
	}
}

// provisionSlot re-creates a missing slot VM and parks it. The slot lock
// must be held.
func (m *Manager) provisionSlot(ctx context.Context, s *slot) error {
	if err := m.disks.Remove(s.name); err != nil {
		m.log.WithError(err).Warnf("remove orphaned images for %s", s.name)
	}
	if _, err := m.vms.Create(ctx, controller.CreateRequest{
		Name:     s.name,
		MemoryMB: m.memoryMB,
		VCPUs:    m.vcpus,
		Owner:    poolOwner,
	}); err != nil {
		return fmt.Errorf("provision %s: %w", s.name, err)
	}
	if err := m.vms.Stop(ctx, s.name); err != nil {
		return fmt.Errorf("park %s: %w", s.name, err)
	}
	m.log.Infof("slot %s provisioned", s.name)
	return nil
}

// Status reports every slot. A slot whose VM does not exist is reported
// as "missing" and not ready.
func (m *Manager) Status(ctx context.Context) []SlotStatus {
	statuses := make([]SlotStatus, 0, len(m.slots))
	for _, s := range m.slots {
		st := SlotStatus{Name: s.name, State: "missing"}
		if status, err := m.vms.GetState(ctx, s.name); err == nil {
			st.State = status.StateStr
			st.Ready = status.State == hypervisor.StateShutOff
		}
		statuses = append(statuses, st)
	}
	return statuses
}
