// Package controller implements the VM lifecycle operations: create,
// start, stop, delete, list, status, and shell target resolution.
//
// The hypervisor is the single source of truth for domain existence and
// power state; the controller holds no persistent VM records. Every
// operation begins with a fresh lookup, which makes all operations
// idempotent under retries.
package controller

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codehedgehog/virtlab/internal/hypervisor"
	"github.com/codehedgehog/virtlab/internal/logger"

	"github.com/digitalocean/go-libvirt"
)

const (
	defaultStopTimeout      = 30 * time.Second
	defaultStopPollInterval = 500 * time.Millisecond
)

// Options carries the controller's policy knobs.
type Options struct {
	// Network is the libvirt network VM interfaces attach to and DHCP
	// leases are resolved from.
	Network string

	// StopTimeout bounds the graceful shutdown wait before escalating to
	// a forced power-off.
	StopTimeout time.Duration

	// StopPollInterval is how often the state is re-read while waiting
	// for a graceful shutdown.
	StopPollInterval time.Duration

	// SSHUser, SSHPort and SSHKeyPath describe how terminal sessions
	// reach a guest. SSHUser is also the account baked into the seed ISO.
	SSHUser    string
	SSHPort    string
	SSHKeyPath string

	// SSHAuthorizedKey is the public key (authorized_keys format) granted
	// to SSHUser via cloud-init.
	SSHAuthorizedKey string
}

// Controller performs lifecycle operations against a libvirt connection.
type Controller struct {
	lv    libvirtClient
	disks diskManager
	snaps snapshotter
	prov  provisioner
	opts  Options
	log   *logrus.Entry

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Controller. prov may be nil to disable guest
// configuration after create.
func New(lv libvirtClient, disks diskManager, snaps snapshotter, prov provisioner, opts Options) *Controller {
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = defaultStopTimeout
	}
	if opts.StopPollInterval <= 0 {
		opts.StopPollInterval = defaultStopPollInterval
	}
	if opts.Network == "" {
		opts.Network = "default"
	}
	return &Controller{
		lv:    lv,
		disks: disks,
		snaps: snaps,
		prov:  prov,
		opts:  opts,
		log:   logger.Component("controller"),
		locks: map[string]*sync.Mutex{},
	}
}

// lockName serializes operations on a single VM name. Operations on
// different names proceed concurrently. The returned func releases the
// lock.
func (c *Controller) lockName(name string) func() {
	c.mu.Lock()
	l, ok := c.locks[name]
	if !ok {
		l = &sync.Mutex{}
		c.locks[name] = l
	}
	c.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (c *Controller) domainState(dom libvirt.Domain) (hypervisor.PowerState, error) {
	state, _, err := c.lv.DomainGetState(dom, 0)
	return hypervisor.PowerState(state), err
}

func domainUUID(dom libvirt.Domain) string {
	return uuid.UUID(dom.UUID).String()
}
