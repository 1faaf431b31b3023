package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "virtlab",
	Short: "Virtlab - short-lived lab VM manager",
	Long: `Virtlab provisions and manages short-lived lab VMs on libvirt.

It keeps a hot pool of pre-provisioned machines, exposes a REST API for
the VM lifecycle, and tunnels recorded terminal sessions to the guests
over WebSockets.`,
	Version: fmt.Sprintf("%s (commit: %s)", version, commit),
}

func init() {
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the YAML configuration file")
	rootCmd.AddCommand(serveCmd)
}
