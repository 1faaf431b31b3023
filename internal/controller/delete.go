package controller

import (
	"context"
	"fmt"

	"github.com/codehedgehog/virtlab/internal/metrics"
)

// Delete removes a VM and its disk images. A running VM is force-stopped
// first. The domain must exist before any disk I/O happens, so deleting
// an unknown name returns ErrNotFound without touching storage.
func (c *Controller) Delete(ctx context.Context, name string) error {
	unlock := c.lockName(name)
	defer unlock()

	dom, err := c.lv.DomainLookupByName(name)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	if state, err := c.domainState(dom); err == nil && state.Active() {
		if err := c.lv.DomainDestroy(dom); err != nil {
			c.log.WithError(err).Warnf("destroy %s before delete", name)
		}
	}

	undefErr := c.lv.DomainUndefine(dom)

	// Image removal is attempted even when undefine failed, so a partial
	// delete does not strand disk space.
	if err := c.disks.Remove(name); err != nil {
		c.log.WithError(err).Warnf("remove images for %s", name)
	}

	if undefErr != nil {
		return fmt.Errorf("%w: undefine %s: %v", ErrHypervisor, name, undefErr)
	}

	c.log.Infof("deleted vm %s", name)
	metrics.VMDeleted("")
	return nil
}

// Snapshots lists the disk snapshots of a VM.
func (c *Controller) Snapshots(ctx context.Context, name string) ([]string, error) {
	if _, err := c.lv.DomainLookupByName(name); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if c.snaps == nil {
		return nil, nil
	}
	names, err := c.snaps.List(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: list snapshots of %s: %v", ErrHypervisor, name, err)
	}
	return names, nil
}
