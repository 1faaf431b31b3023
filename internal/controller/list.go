package controller

import (
	"context"
	"fmt"
	"sort"

	"github.com/codehedgehog/virtlab/internal/hypervisor"
)

// flag value for ConnectListAllDomains: both active and inactive domains
const listAllDomainsFlags = 0

// List enumerates every domain known to the hypervisor, active or not.
// A domain whose info cannot be read is skipped rather than failing the
// whole listing.
func (c *Controller) List(ctx context.Context) ([]Summary, error) {
	domains, _, err := c.lv.ConnectListAllDomains(1, listAllDomainsFlags)
	if err != nil {
		return nil, fmt.Errorf("%w: list domains: %v", ErrHypervisor, err)
	}

	summaries := make([]Summary, 0, len(domains))
	for _, dom := range domains {
		state, _, memory, vcpus, _, err := c.lv.DomainGetInfo(dom)
		if err != nil {
			c.log.WithError(err).Warnf("skipping %s in listing", dom.Name)
			continue
		}
		ps := hypervisor.PowerState(state)
		summaries = append(summaries, Summary{
			Name:     dom.Name,
			UUID:     domainUUID(dom),
			State:    ps,
			StateStr: ps.String(),
			MemoryMB: memory / 1024,
			VCPUs:    vcpus,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Name < summaries[j].Name
	})
	return summaries, nil
}

// GetState reads the current state and resource usage of one VM directly
// from the hypervisor.
func (c *Controller) GetState(ctx context.Context, name string) (*Status, error) {
	dom, err := c.lv.DomainLookupByName(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	state, maxMem, memory, vcpus, cpuTime, err := c.lv.DomainGetInfo(dom)
	if err != nil {
		return nil, fmt.Errorf("%w: get info of %s: %v", ErrHypervisor, name, err)
	}

	ps := hypervisor.PowerState(state)
	return &Status{
		Name:        name,
		UUID:        domainUUID(dom),
		State:       ps,
		StateStr:    ps.String(),
		MaxMemoryMB: maxMem / 1024,
		MemoryMB:    memory / 1024,
		VCPUs:       vcpus,
		CPUTimeNs:   cpuTime,
	}, nil
}
