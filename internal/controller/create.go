package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/codehedgehog/virtlab/internal/cloudinit"
	"github.com/codehedgehog/virtlab/internal/disk"
	"github.com/codehedgehog/virtlab/internal/hypervisor"
	"github.com/codehedgehog/virtlab/internal/metrics"
	"github.com/codehedgehog/virtlab/internal/naming"
)

// CreateRequest describes a VM to provision.
type CreateRequest struct {
	Name     string `json:"name"`
	MemoryMB int    `json:"memory_mb"`
	VCPUs    int    `json:"vcpus"`
	Owner    string `json:"owner,omitempty"`
}

// Create provisions a new VM: clone the base image, write the cloud-init
// seed, define the domain and start it. Guest configuration runs after
// the VM is up; its failure is reported on the returned VM but does not
// roll back creation. Any earlier failure removes everything already
// provisioned, so a failed create leaves no trace.
func (c *Controller) Create(ctx context.Context, req CreateRequest) (*VM, error) {
	if err := naming.ValidateVMName(req.Name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if req.MemoryMB <= 0 {
		return nil, fmt.Errorf("%w: memory_mb must be positive", ErrInvalidArgument)
	}
	if req.VCPUs <= 0 {
		return nil, fmt.Errorf("%w: vcpus must be positive", ErrInvalidArgument)
	}

	unlock := c.lockName(req.Name)
	defer unlock()

	if _, err := c.lv.DomainLookupByName(req.Name); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, req.Name)
	}

	diskPath, err := c.disks.CloneBase(req.Name)
	if err != nil {
		if errors.Is(err, disk.ErrImageExists) {
			return nil, fmt.Errorf("%w: %v", ErrResourceConflict, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrProvisioning, err)
	}

	// From here on, failure must tear down everything already provisioned.
	defined := false
	fail := func(err error) (*VM, error) {
		c.cleanupFailedCreate(req.Name, defined)
		return nil, err
	}

	seedPath := ""
	if c.opts.SSHUser != "" {
		iso, err := cloudinit.GenerateISO(cloudinit.SeedSpec{
			VMName:        req.Name,
			User:          c.opts.SSHUser,
			AuthorizedKey: c.opts.SSHAuthorizedKey,
		})
		if err != nil {
			return fail(fmt.Errorf("%w: seed iso: %v", ErrProvisioning, err))
		}
		seedPath, err = c.disks.WriteSeedISO(req.Name, iso)
		if err != nil {
			return fail(fmt.Errorf("%w: seed iso: %v", ErrProvisioning, err))
		}
	}

	vmUUID := uuid.New().String()
	xml, err := hypervisor.DomainXML(hypervisor.DomainSpec{
		Name:        req.Name,
		UUID:        vmUUID,
		MemoryMB:    req.MemoryMB,
		VCPUs:       req.VCPUs,
		DiskPath:    diskPath,
		SeedISOPath: seedPath,
		Network:     c.opts.Network,
	})
	if err != nil {
		return fail(fmt.Errorf("%w: %v", ErrHypervisor, err))
	}

	dom, err := c.lv.DomainDefineXML(xml)
	if err != nil {
		return fail(fmt.Errorf("%w: define %s: %v", ErrHypervisor, req.Name, err))
	}
	defined = true

	if err := c.lv.DomainCreate(dom); err != nil {
		return fail(fmt.Errorf("%w: start %s: %v", ErrHypervisor, req.Name, err))
	}

	c.log.Infof("created vm %s (%s)", req.Name, vmUUID)
	metrics.VMCreated(req.Owner)

	vm := &VM{
		Name:     req.Name,
		UUID:     vmUUID,
		Owner:    req.Owner,
		MemoryMB: req.MemoryMB,
		VCPUs:    req.VCPUs,
		DiskPath: diskPath,
	}

	if c.prov != nil {
		if err := c.prov.Configure(ctx, req.Name); err != nil {
			c.log.WithError(err).Warnf("guest configuration failed for %s", req.Name)
			vm.ConfigureError = err.Error()
		}
	}

	return vm, nil
}

// cleanupFailedCreate best-effort removes whatever a failed create left
// behind so the name can be reused immediately.
func (c *Controller) cleanupFailedCreate(name string, defined bool) {
	if defined {
		if dom, err := c.lv.DomainLookupByName(name); err == nil {
			if state, err := c.domainState(dom); err == nil && state.Active() {
				if err := c.lv.DomainDestroy(dom); err != nil {
					c.log.WithError(err).Warnf("cleanup: destroy %s", name)
				}
			}
			if err := c.lv.DomainUndefine(dom); err != nil {
				c.log.WithError(err).Warnf("cleanup: undefine %s", name)
			}
		}
	}
	if err := c.disks.Remove(name); err != nil {
		c.log.WithError(err).Warnf("cleanup: remove images for %s", name)
	}
}
