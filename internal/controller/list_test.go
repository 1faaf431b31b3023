package controller

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/digitalocean/go-libvirt"

	"github.com/codehedgehog/virtlab/internal/hypervisor"
)

func TestList_SortedByName(t *testing.T) {
	ctx := context.Background()
	lv := newMockLibvirtClient()
	lv.connectListAllDomainsFunc = func(needResults int32, flags libvirt.ConnectListAllDomainsFlags) ([]libvirt.Domain, uint32, error) {
		return []libvirt.Domain{
			{Name: "pool-vm-2"},
			{Name: "lab-1"},
			{Name: "pool-vm-1"},
		}, 3, nil
	}
	c := newTestController(lv, newMockDiskManager(), newMockSnapshotter(), nil)

	summaries, err := c.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summaries) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(summaries))
	}
	want := []string{"lab-1", "pool-vm-1", "pool-vm-2"}
	for i, name := range want {
		if summaries[i].Name != name {
			t.Errorf("position %d: expected %s, got %s", i, name, summaries[i].Name)
		}
	}
}

func TestList_SkipsUnreadableDomains(t *testing.T) {
	ctx := context.Background()
	lv := newMockLibvirtClient()
	lv.connectListAllDomainsFunc = func(needResults int32, flags libvirt.ConnectListAllDomainsFlags) ([]libvirt.Domain, uint32, error) {
		return []libvirt.Domain{{Name: "lab-1"}, {Name: "ghost"}}, 2, nil
	}
	lv.domainGetInfoFunc = func(dom libvirt.Domain) (uint8, uint64, uint64, uint16, uint64, error) {
		if dom.Name == "ghost" {
			return 0, 0, 0, 0, 0, fmt.Errorf("domain disappeared")
		}
		return 1, 2 * 1024 * 1024, 2 * 1024 * 1024, 2, 0, nil
	}
	c := newTestController(lv, newMockDiskManager(), newMockSnapshotter(), nil)

	summaries, err := c.List(ctx)
	if err != nil {
		t.Fatalf("one bad domain must not fail the listing: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	if summaries[0].Name != "lab-1" {
		t.Errorf("expected lab-1, got %s", summaries[0].Name)
	}
	if summaries[0].MemoryMB != 2048 {
		t.Errorf("expected 2048 MB, got %d", summaries[0].MemoryMB)
	}
}

func TestGetState_ReportsFreshState(t *testing.T) {
	ctx := context.Background()
	lv := newMockLibvirtClient()
	existingDomain(lv, "lab-1")
	lv.domainGetInfoFunc = func(dom libvirt.Domain) (uint8, uint64, uint64, uint16, uint64, error) {
		return uint8(hypervisor.StateRunning), 4 * 1024 * 1024, 2 * 1024 * 1024, 2, 123456, nil
	}
	c := newTestController(lv, newMockDiskManager(), newMockSnapshotter(), nil)

	status, err := c.GetState(ctx, "lab-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.State != hypervisor.StateRunning {
		t.Errorf("expected running, got %s", status.State)
	}
	if status.MaxMemoryMB != 4096 || status.MemoryMB != 2048 {
		t.Errorf("unexpected memory: max=%d current=%d", status.MaxMemoryMB, status.MemoryMB)
	}
	if status.VCPUs != 2 {
		t.Errorf("expected 2 vcpus, got %d", status.VCPUs)
	}

	// Every call must re-read the hypervisor.
	before := len(lv.domainGetInfoCalls)
	if _, err := c.GetState(ctx, "lab-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lv.domainGetInfoCalls) != before+1 {
		t.Error("state must be read from the hypervisor on every call")
	}
}

func TestGetState_NotFound(t *testing.T) {
	ctx := context.Background()
	c := newTestController(newMockLibvirtClient(), newMockDiskManager(), newMockSnapshotter(), nil)

	_, err := c.GetState(ctx, "nonexistent-vm")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
