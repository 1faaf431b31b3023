package controller

import (
	"context"
	"fmt"

	"github.com/codehedgehog/virtlab/internal/hypervisor"
)

// ShellTarget resolves where a terminal session for the VM should
// connect. The guest's IP is looked up in the libvirt network's DHCP
// leases by hostname; when no lease matches, the VM name is returned as
// the host and left to external name resolution. The VM must be running.
func (c *Controller) ShellTarget(ctx context.Context, name string) (*Target, error) {
	dom, err := c.lv.DomainLookupByName(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	state, err := c.domainState(dom)
	if err != nil {
		return nil, fmt.Errorf("%w: get state of %s: %v", ErrHypervisor, name, err)
	}
	if state != hypervisor.StateRunning && state != hypervisor.StateBlocked {
		return nil, fmt.Errorf("%w: %s is not running", ErrConflict, name)
	}

	host := name
	if ip := c.leaseAddress(name); ip != "" {
		host = ip
	}

	return &Target{
		Host:    host,
		Port:    c.opts.SSHPort,
		User:    c.opts.SSHUser,
		KeyPath: c.opts.SSHKeyPath,
	}, nil
}

// leaseAddress finds the guest's DHCP lease by hostname. Lease lookup is
// best effort; any failure falls back to name-based addressing.
func (c *Controller) leaseAddress(name string) string {
	net, err := c.lv.NetworkLookupByName(c.opts.Network)
	if err != nil {
		c.log.WithError(err).Warnf("lookup network %s", c.opts.Network)
		return ""
	}

	leases, _, err := c.lv.NetworkGetDhcpLeases(net, nil, 1, 0)
	if err != nil {
		c.log.WithError(err).Warnf("dhcp leases of %s", c.opts.Network)
		return ""
	}

	for _, lease := range leases {
		for _, hostname := range lease.Hostname {
			if hostname == name && lease.Ipaddr != "" {
				return lease.Ipaddr
			}
		}
	}
	return ""
}
