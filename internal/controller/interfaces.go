package controller

import (
	"context"

	"github.com/digitalocean/go-libvirt"
)

// libvirtClient defines the libvirt operations the controller needs.
//
// In production this is satisfied by *libvirt.Libvirt directly.
// In tests it is satisfied by mock implementations.
type libvirtClient interface {
	// DomainLookupByName looks up a domain by name
	DomainLookupByName(name string) (libvirt.Domain, error)

	// DomainDefineXML defines a domain from XML
	DomainDefineXML(xml string) (libvirt.Domain, error)

	// DomainCreate starts a domain
	DomainCreate(dom libvirt.Domain) error

	// DomainResume resumes a paused domain
	DomainResume(dom libvirt.Domain) error

	// DomainShutdown requests a graceful guest shutdown (async outcome)
	DomainShutdown(dom libvirt.Domain) error

	// DomainDestroy force-stops a domain
	DomainDestroy(dom libvirt.Domain) error

	// DomainUndefine removes a domain definition
	DomainUndefine(dom libvirt.Domain) error

	// DomainGetState gets the state of a domain
	DomainGetState(dom libvirt.Domain, flags uint32) (state int32, reason int32, err error)

	// DomainGetInfo gets state plus resource usage of a domain
	DomainGetInfo(dom libvirt.Domain) (state uint8, maxMem uint64, memory uint64, nrVirtCPU uint16, cpuTime uint64, err error)

	// ConnectListAllDomains enumerates all domains, active and inactive
	ConnectListAllDomains(needResults int32, flags libvirt.ConnectListAllDomainsFlags) ([]libvirt.Domain, uint32, error)

	// NetworkLookupByName looks up a virtual network by name
	NetworkLookupByName(name string) (libvirt.Network, error)

	// NetworkGetDhcpLeases lists active DHCP leases on a network
	NetworkGetDhcpLeases(net libvirt.Network, mac libvirt.OptString, needResults int32, flags uint32) ([]libvirt.NetworkDhcpLease, uint32, error)
}

// diskManager defines the disk image operations the controller needs.
//
// In production this is satisfied by *disk.Manager.
type diskManager interface {
	// CloneBase creates the VM's copy-on-write image and returns its path
	CloneBase(vmName string) (string, error)

	// WriteSeedISO writes the VM's cloud-init seed and returns its path
	WriteSeedISO(vmName string, data []byte) (string, error)

	// Remove deletes the VM's image and seed; missing files are not errors
	Remove(vmName string) error
}

// snapshotter defines the best-effort snapshot operations.
//
// In production this is satisfied by *snapshot.Manager.
type snapshotter interface {
	Create(ctx context.Context, vmName string) (string, error)
	List(ctx context.Context, vmName string) ([]string, error)
}

// provisioner runs guest configuration after creation.
//
// In production this is satisfied by *ansible.Runner.
type provisioner interface {
	Configure(ctx context.Context, vmName string) error
}
