package ansible

import (
	"context"
	"testing"
)

func TestConfigure_RequiresPlaybook(t *testing.T) {
	r := NewRunner("hosts", "", nil)
	if err := r.Configure(context.Background(), "lab-1"); err == nil {
		t.Error("expected an error when no playbook is configured")
	}
}
