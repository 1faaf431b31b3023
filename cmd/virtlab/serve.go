package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"

	"github.com/codehedgehog/virtlab/internal/ansible"
	"github.com/codehedgehog/virtlab/internal/config"
	"github.com/codehedgehog/virtlab/internal/controller"
	"github.com/codehedgehog/virtlab/internal/disk"
	"github.com/codehedgehog/virtlab/internal/hypervisor"
	"github.com/codehedgehog/virtlab/internal/logger"
	"github.com/codehedgehog/virtlab/internal/pool"
	"github.com/codehedgehog/virtlab/internal/server"
	"github.com/codehedgehog/virtlab/internal/snapshot"
	"github.com/codehedgehog/virtlab/internal/terminal"
)

const poolReconcileInterval = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the lab VM manager",
	Long: `Start the HTTP server, connect to libvirt, and reconcile the hot
pool. The server runs until SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return err
		}
		if err := logger.Init(cfg.LogLevel, cfg.LogDir); err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.Component("main")
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := hypervisor.ConnectWithContext(ctx, cfg.LibvirtSocket, 0)
	if err != nil {
		return err
	}
	defer client.Close()
	log.Infof("connected to libvirt at %s", cfg.LibvirtSocket)

	disks, err := disk.NewManager(cfg.StoragePath, cfg.BaseImagePath)
	if err != nil {
		return err
	}

	creds := ansible.NewCredentialStore()
	var prov *ansible.Runner
	if cfg.Ansible.Playbook != "" {
		prov = ansible.NewRunner(cfg.Ansible.Inventory, cfg.Ansible.Playbook, creds)
	}

	authorizedKey, err := loadAuthorizedKey(cfg.SSH.KeyPath)
	if err != nil {
		log.WithError(err).Warn("no usable ssh key; guests will be created without one")
	}

	ctrl := newController(client, disks, prov, cfg, authorizedKey)

	var poolMgr *pool.Manager
	if cfg.PoolSize > 0 {
		poolMgr = pool.New(ctrl, disks, cfg.PoolSize, cfg.DefaultMemoryMB, cfg.DefaultVCPUs)
		if err := poolMgr.ReconcileAll(ctx); err != nil {
			log.WithError(err).Warn("initial pool reconcile incomplete")
		}
		go poolMgr.Run(ctx, poolReconcileInterval)
	}

	terms := terminal.NewManager(nil, cfg.RecordingDir)

	var handler http.Handler
	if poolMgr != nil {
		handler = server.New(ctrl, poolMgr, terms, creds)
	} else {
		handler = server.New(ctrl, nil, terms, creds)
	}
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func newController(client *hypervisor.Client, disks *disk.Manager, prov *ansible.Runner, cfg *config.Config, authorizedKey string) *controller.Controller {
	opts := controller.Options{
		Network:          cfg.Network,
		StopTimeout:      cfg.StopTimeoutDuration(),
		StopPollInterval: cfg.StopPollIntervalDuration(),
		SSHUser:          cfg.SSH.User,
		SSHPort:          cfg.SSH.Port,
		SSHKeyPath:       cfg.SSH.KeyPath,
		SSHAuthorizedKey: authorizedKey,
	}
	snaps := snapshot.NewManager()
	if prov != nil {
		return controller.New(client.Libvirt(), disks, snaps, prov, opts)
	}
	return controller.New(client.Libvirt(), disks, snaps, nil, opts)
}

// loadAuthorizedKey derives the authorized_keys line from the configured
// private key, so the key baked into guests always matches the one the
// terminal tunnel authenticates with.
func loadAuthorizedKey(keyPath string) (string, error) {
	if keyPath == "" {
		return "", fmt.Errorf("ssh key_path not configured")
	}
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return "", fmt.Errorf("failed to read ssh key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return "", fmt.Errorf("failed to parse ssh key: %w", err)
	}
	return string(ssh.MarshalAuthorizedKey(signer.PublicKey())), nil
}
