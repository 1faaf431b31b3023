// Package cloudinit generates NoCloud seed ISOs for lab VMs.
//
// The seed carries just enough configuration for the service to reach the
// guest afterwards: a lab user with the service's SSH key, and a hostname
// matching the domain name so the guest shows up in the libvirt network's
// DHCP leases under a resolvable name.
//
// See https://cloudinit.readthedocs.io/en/latest/reference/datasources/nocloud.html
package cloudinit

import (
	"bytes"
	"fmt"

	"github.com/kdomanski/iso9660"
	"gopkg.in/yaml.v3"
)

// SeedSpec describes the guest-side configuration baked into the seed ISO.
type SeedSpec struct {
	// VMName becomes the instance id and local hostname.
	VMName string
	// User is the lab login account created on first boot.
	User string
	// AuthorizedKey is the service's SSH public key in authorized_keys format.
	AuthorizedKey string
}

// userData is the cloud-config user-data structure, marshaled to YAML and
// prefixed with the "#cloud-config" header.
type userData struct {
	Hostname string       `yaml:"hostname"`
	Users    []userConfig `yaml:"users,omitempty"`
	SSHPwAut bool         `yaml:"ssh_pwauth"`
}

type userConfig struct {
	Name              string   `yaml:"name"`
	Sudo              string   `yaml:"sudo,omitempty"`
	Shell             string   `yaml:"shell,omitempty"`
	SSHAuthorizedKeys []string `yaml:"ssh_authorized_keys,omitempty"`
}

// metaData is the NoCloud instance metadata.
type metaData struct {
	InstanceID    string `yaml:"instance-id"`
	LocalHostname string `yaml:"local-hostname"`
}

// GenerateUserData renders the cloud-config user-data document.
func GenerateUserData(spec SeedSpec) (string, error) {
	ud := userData{
		Hostname: spec.VMName,
	}
	if spec.User != "" {
		uc := userConfig{
			Name:  spec.User,
			Sudo:  "ALL=(ALL) NOPASSWD:ALL",
			Shell: "/bin/bash",
		}
		if spec.AuthorizedKey != "" {
			uc.SSHAuthorizedKeys = []string{spec.AuthorizedKey}
		}
		ud.Users = append(ud.Users, uc)
	}

	data, err := yaml.Marshal(&ud)
	if err != nil {
		return "", fmt.Errorf("failed to marshal user-data: %w", err)
	}
	return "#cloud-config\n" + string(data), nil
}

// GenerateMetaData renders the NoCloud meta-data document.
func GenerateMetaData(spec SeedSpec) (string, error) {
	md := metaData{
		InstanceID:    spec.VMName,
		LocalHostname: spec.VMName,
	}
	data, err := yaml.Marshal(&md)
	if err != nil {
		return "", fmt.Errorf("failed to marshal meta-data: %w", err)
	}
	return string(data), nil
}

// GenerateISO builds the NoCloud seed ISO (volume label CIDATA) containing
// user-data and meta-data, returned as a byte slice ready to write next to
// the VM's disk image.
func GenerateISO(spec SeedSpec) ([]byte, error) {
	if spec.VMName == "" {
		return nil, fmt.Errorf("vm name is required")
	}

	ud, err := GenerateUserData(spec)
	if err != nil {
		return nil, err
	}
	md, err := GenerateMetaData(spec)
	if err != nil {
		return nil, err
	}

	writer, err := iso9660.NewWriter()
	if err != nil {
		return nil, fmt.Errorf("failed to create ISO writer: %w", err)
	}
	defer func() {
		_ = writer.Cleanup()
	}()

	if err := writer.AddFile(bytes.NewReader([]byte(ud)), "user-data"); err != nil {
		return nil, fmt.Errorf("failed to add user-data: %w", err)
	}
	if err := writer.AddFile(bytes.NewReader([]byte(md)), "meta-data"); err != nil {
		return nil, fmt.Errorf("failed to add meta-data: %w", err)
	}

	var buf bytes.Buffer
	// "CIDATA" is required by the NoCloud datasource and must be uppercase.
	if err := writer.WriteTo(&buf, "CIDATA"); err != nil {
		return nil, fmt.Errorf("failed to write ISO image: %w", err)
	}

	return buf.Bytes(), nil
}
