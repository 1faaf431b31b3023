package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/digitalocean/go-libvirt"
)

// mockLibvirtClient is a mock implementation of the libvirtClient interface for testing.
type mockLibvirtClient struct {
	mu sync.Mutex

	// Configurable behavior
	domainLookupByNameFunc    func(name string) (libvirt.Domain, error)
	domainDefineXMLFunc       func(xml string) (libvirt.Domain, error)
	domainCreateFunc          func(dom libvirt.Domain) error
	domainResumeFunc          func(dom libvirt.Domain) error
	domainShutdownFunc        func(dom libvirt.Domain) error
	domainDestroyFunc         func(dom libvirt.Domain) error
	domainUndefineFunc        func(dom libvirt.Domain) error
	domainGetStateFunc        func(dom libvirt.Domain, flags uint32) (int32, int32, error)
	domainGetInfoFunc         func(dom libvirt.Domain) (uint8, uint64, uint64, uint16, uint64, error)
	connectListAllDomainsFunc func(needResults int32, flags libvirt.ConnectListAllDomainsFlags) ([]libvirt.Domain, uint32, error)
	networkLookupByNameFunc   func(name string) (libvirt.Network, error)
	networkGetDhcpLeasesFunc  func(net libvirt.Network, mac libvirt.OptString, needResults int32, flags uint32) ([]libvirt.NetworkDhcpLease, uint32, error)

	// Call tracking
	domainLookupByNameCalls    []string
	domainDefineXMLCalls       []string
	domainCreateCalls          []libvirt.Domain
	domainResumeCalls          []libvirt.Domain
	domainShutdownCalls        []libvirt.Domain
	domainDestroyCalls         []libvirt.Domain
	domainUndefineCalls        []libvirt.Domain
	domainGetStateCalls        []libvirt.Domain
	domainGetInfoCalls         []libvirt.Domain
	connectListAllDomainsCalls int
	networkLookupByNameCalls   []string
	networkGetDhcpLeasesCalls  int
}

// newMockLibvirtClient creates a new mock libvirt client with default behavior:
// no domains exist, every mutating call succeeds.
func newMockLibvirtClient() *mockLibvirtClient {
	m := &mockLibvirtClient{}

	m.domainLookupByNameFunc = func(name string) (libvirt.Domain, error) {
		return libvirt.Domain{}, fmt.Errorf("domain not found: %s", name)
	}
	m.domainDefineXMLFunc = func(xml string) (libvirt.Domain, error) {
		return libvirt.Domain{Name: "test-vm"}, nil
	}
	m.domainCreateFunc = func(dom libvirt.Domain) error {
		return nil
	}
	m.domainResumeFunc = func(dom libvirt.Domain) error {
		return nil
	}
	m.domainShutdownFunc = func(dom libvirt.Domain) error {
		return nil
	}
	m.domainDestroyFunc = func(dom libvirt.Domain) error {
		return nil
	}
	m.domainUndefineFunc = func(dom libvirt.Domain) error {
		return nil
	}
	// Default: domain state is running
	m.domainGetStateFunc = func(dom libvirt.Domain, flags uint32) (int32, int32, error) {
		return 1, 0, nil // VIR_DOMAIN_RUNNING = 1
	}
	m.domainGetInfoFunc = func(dom libvirt.Domain) (uint8, uint64, uint64, uint16, uint64, error) {
		return 1, 1024 * 1024, 1024 * 1024, 1, 0, nil
	}
	m.connectListAllDomainsFunc = func(needResults int32, flags libvirt.ConnectListAllDomainsFlags) ([]libvirt.Domain, uint32, error) {
		return nil, 0, nil
	}
	m.networkLookupByNameFunc = func(name string) (libvirt.Network, error) {
		return libvirt.Network{Name: name}, nil
	}
	m.networkGetDhcpLeasesFunc = func(net libvirt.Network, mac libvirt.OptString, needResults int32, flags uint32) ([]libvirt.NetworkDhcpLease, uint32, error) {
		return nil, 0, nil
	}

	return m
}

func (m *mockLibvirtClient) DomainLookupByName(name string) (libvirt.Domain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainLookupByNameCalls = append(m.domainLookupByNameCalls, name)
	return m.domainLookupByNameFunc(name)
}

func (m *mockLibvirtClient) DomainDefineXML(xml string) (libvirt.Domain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainDefineXMLCalls = append(m.domainDefineXMLCalls, xml)
	return m.domainDefineXMLFunc(xml)
}

func (m *mockLibvirtClient) DomainCreate(dom libvirt.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainCreateCalls = append(m.domainCreateCalls, dom)
	return m.domainCreateFunc(dom)
}

func (m *mockLibvirtClient) DomainResume(dom libvirt.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainResumeCalls = append(m.domainResumeCalls, dom)
	return m.domainResumeFunc(dom)
}

func (m *mockLibvirtClient) DomainShutdown(dom libvirt.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainShutdownCalls = append(m.domainShutdownCalls, dom)
	return m.domainShutdownFunc(dom)
}

func (m *mockLibvirtClient) DomainDestroy(dom libvirt.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainDestroyCalls = append(m.domainDestroyCalls, dom)
	return m.domainDestroyFunc(dom)
}

func (m *mockLibvirtClient) DomainUndefine(dom libvirt.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainUndefineCalls = append(m.domainUndefineCalls, dom)
	return m.domainUndefineFunc(dom)
}

func (m *mockLibvirtClient) DomainGetState(dom libvirt.Domain, flags uint32) (int32, int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainGetStateCalls = append(m.domainGetStateCalls, dom)
	return m.domainGetStateFunc(dom, flags)
}

func (m *mockLibvirtClient) DomainGetInfo(dom libvirt.Domain) (uint8, uint64, uint64, uint16, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainGetInfoCalls = append(m.domainGetInfoCalls, dom)
	return m.domainGetInfoFunc(dom)
}

func (m *mockLibvirtClient) ConnectListAllDomains(needResults int32, flags libvirt.ConnectListAllDomainsFlags) ([]libvirt.Domain, uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectListAllDomainsCalls++
	return m.connectListAllDomainsFunc(needResults, flags)
}

func (m *mockLibvirtClient) NetworkLookupByName(name string) (libvirt.Network, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.networkLookupByNameCalls = append(m.networkLookupByNameCalls, name)
	return m.networkLookupByNameFunc(name)
}

func (m *mockLibvirtClient) NetworkGetDhcpLeases(net libvirt.Network, mac libvirt.OptString, needResults int32, flags uint32) ([]libvirt.NetworkDhcpLease, uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.networkGetDhcpLeasesCalls++
	return m.networkGetDhcpLeasesFunc(net, mac, needResults, flags)
}

// mockDiskManager is a mock implementation of the diskManager interface for testing.
type mockDiskManager struct {
	mu sync.Mutex

	// Configurable behavior
	cloneBaseFunc    func(vmName string) (string, error)
	writeSeedISOFunc func(vmName string, data []byte) (string, error)
	removeFunc       func(vmName string) error

	// Call tracking
	cloneBaseCalls    []string
	writeSeedISOCalls []string
	removeCalls       []string
}

// newMockDiskManager creates a mock disk manager where everything succeeds.
func newMockDiskManager() *mockDiskManager {
	return &mockDiskManager{
		cloneBaseFunc: func(vmName string) (string, error) {
			return "/images/" + vmName + ".qcow2", nil
		},
		writeSeedISOFunc: func(vmName string, data []byte) (string, error) {
			return "/images/" + vmName + "-seed.iso", nil
		},
		removeFunc: func(vmName string) error {
			return nil
		},
	}
}

func (m *mockDiskManager) CloneBase(vmName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cloneBaseCalls = append(m.cloneBaseCalls, vmName)
	return m.cloneBaseFunc(vmName)
}

func (m *mockDiskManager) WriteSeedISO(vmName string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeSeedISOCalls = append(m.writeSeedISOCalls, vmName)
	return m.writeSeedISOFunc(vmName, data)
}

func (m *mockDiskManager) Remove(vmName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeCalls = append(m.removeCalls, vmName)
	return m.removeFunc(vmName)
}

// mockSnapshotter is a mock implementation of the snapshotter interface for testing.
type mockSnapshotter struct {
	mu sync.Mutex

	createFunc func(ctx context.Context, vmName string) (string, error)
	listFunc   func(ctx context.Context, vmName string) ([]string, error)

	createCalls []string
	listCalls   []string
}

func newMockSnapshotter() *mockSnapshotter {
	return &mockSnapshotter{
		createFunc: func(ctx context.Context, vmName string) (string, error) {
			return vmName + "-20260101-120000", nil
		},
		listFunc: func(ctx context.Context, vmName string) ([]string, error) {
			return nil, nil
		},
	}
}

func (m *mockSnapshotter) Create(ctx context.Context, vmName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls = append(m.createCalls, vmName)
	return m.createFunc(ctx, vmName)
}

func (m *mockSnapshotter) List(ctx context.Context, vmName string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls = append(m.listCalls, vmName)
	return m.listFunc(ctx, vmName)
}

// mockProvisioner is a mock implementation of the provisioner interface for testing.
type mockProvisioner struct {
	mu sync.Mutex

	configureFunc func(ctx context.Context, vmName string) error

	configureCalls []string
}

func newMockProvisioner() *mockProvisioner {
	return &mockProvisioner{
		configureFunc: func(ctx context.Context, vmName string) error {
			return nil
		},
	}
}

func (m *mockProvisioner) Configure(ctx context.Context, vmName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configureCalls = append(m.configureCalls, vmName)
	return m.configureFunc(ctx, vmName)
}

// newTestController wires a Controller with fast stop polling for tests.
func newTestController(lv *mockLibvirtClient, disks *mockDiskManager, snaps *mockSnapshotter, prov *mockProvisioner) *Controller {
	opts := Options{
		Network:          "default",
		StopTimeout:      50 * time.Millisecond,
		StopPollInterval: 5 * time.Millisecond,
		SSHUser:          "student",
		SSHPort:          "22",
		SSHKeyPath:       "/keys/id_ed25519",
		SSHAuthorizedKey: "ssh-ed25519 AAAA test",
	}
	if prov == nil {
		return New(lv, disks, snaps, nil, opts)
	}
	return New(lv, disks, snaps, prov, opts)
}
