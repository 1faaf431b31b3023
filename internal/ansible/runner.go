package ansible

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/sirupsen/logrus"

	"github.com/codehedgehog/virtlab/internal/logger"
)

// Runner executes the configuration playbook against a single host.
type Runner struct {
	inventory string
	playbook  string
	creds     *CredentialStore
	log       *logrus.Entry
}

// NewRunner creates a playbook runner. creds may be nil if no become
// password will ever be needed (passwordless sudo on the guests).
func NewRunner(inventory, playbook string, creds *CredentialStore) *Runner {
	return &Runner{
		inventory: inventory,
		playbook:  playbook,
		creds:     creds,
		log:       logger.Component("ansible"),
	}
}

// Configure runs the playbook against vmName. A non-zero exit is returned
// as an error carrying the captured output. The become password, when set,
// is passed as an extra var and excluded from all logging.
func (r *Runner) Configure(ctx context.Context, vmName string) error {
	if r.playbook == "" {
		return fmt.Errorf("no playbook configured")
	}

	args := []string{
		"-i", r.inventory,
		r.playbook,
		"-e", "target_host=" + vmName,
	}

	// Logged before the secret is appended.
	r.log.Infof("running playbook %s for host %s", r.playbook, vmName)

	if r.creds != nil {
		if password, ok := r.creds.Get(); ok {
			args = append(args, "-e", "ansible_become_password="+password)
		}
	}

	cmd := exec.CommandContext(ctx, "ansible-playbook", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("playbook failed for %s: %w\nOutput: %s", vmName, err, string(output))
	}

	return nil
}
