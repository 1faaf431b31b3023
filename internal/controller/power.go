package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/digitalocean/go-libvirt"

	"github.com/codehedgehog/virtlab/internal/hypervisor"
)

// Start powers on a defined VM. Starting a running VM is a conflict;
// a paused VM is resumed instead.
func (c *Controller) Start(ctx context.Context, name string) error {
	unlock := c.lockName(name)
	defer unlock()

	dom, err := c.lv.DomainLookupByName(name)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	state, err := c.domainState(dom)
	if err != nil {
		return fmt.Errorf("%w: get state of %s: %v", ErrHypervisor, name, err)
	}

	switch state {
	case hypervisor.StateRunning, hypervisor.StateBlocked:
		return fmt.Errorf("%w: %s is already running", ErrConflict, name)
	case hypervisor.StatePaused:
		if err := c.lv.DomainResume(dom); err != nil {
			return fmt.Errorf("%w: resume %s: %v", ErrHypervisor, name, err)
		}
	default:
		if err := c.lv.DomainCreate(dom); err != nil {
			return fmt.Errorf("%w: start %s: %v", ErrHypervisor, name, err)
		}
	}

	c.log.Infof("started vm %s", name)
	return nil
}

// Stop powers off a VM: take a best-effort disk snapshot, request a
// graceful shutdown, wait up to the configured timeout, then force a
// power-off. Stopping a VM that is already shut off succeeds without
// touching it, so Stop is safe to retry.
func (c *Controller) Stop(ctx context.Context, name string) error {
	unlock := c.lockName(name)
	defer unlock()

	dom, err := c.lv.DomainLookupByName(name)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	state, err := c.domainState(dom)
	if err != nil {
		return fmt.Errorf("%w: get state of %s: %v", ErrHypervisor, name, err)
	}
	if state == hypervisor.StateShutOff {
		return nil
	}

	// Snapshot before shutdown so the captured disk reflects the session.
	// Failure here never blocks the stop.
	if c.snaps != nil {
		if snap, err := c.snaps.Create(ctx, name); err != nil {
			c.log.WithError(err).Warnf("snapshot of %s failed", name)
		} else {
			c.log.Infof("snapshot %s of vm %s", snap, name)
		}
	}

	// A failed shutdown request is not fatal either; the forced power-off
	// below covers guests without ACPI handling.
	if err := c.lv.DomainShutdown(dom); err != nil {
		c.log.WithError(err).Warnf("graceful shutdown request for %s failed", name)
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.opts.StopTimeout)
	defer cancel()

	ticker := time.NewTicker(c.opts.StopPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-waitCtx.Done():
			if err := ctx.Err(); err != nil {
				return err
			}
			return c.forceStop(dom, name)
		case <-ticker.C:
			state, err := c.domainState(dom)
			if err != nil {
				// Transient read failure; keep polling until the deadline.
				continue
			}
			if state == hypervisor.StateShutOff {
				c.log.Infof("vm %s shut down gracefully", name)
				return nil
			}
		}
	}
}

// forceStop escalates after the graceful wait expired. If the guest shut
// down right at the deadline the forced power-off is skipped.
func (c *Controller) forceStop(dom libvirt.Domain, name string) error {
	if state, err := c.domainState(dom); err == nil && state == hypervisor.StateShutOff {
		return nil
	}
	c.log.Warnf("vm %s did not shut down in %s, forcing power-off", name, c.opts.StopTimeout)
	if err := c.lv.DomainDestroy(dom); err != nil {
		return fmt.Errorf("%w: forced power-off of %s: %v", ErrHypervisor, name, err)
	}
	return nil
}
