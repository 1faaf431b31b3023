// Package config defines the service configuration, loaded from a YAML
// file with environment variable overrides (VIRTLAB_* prefix).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// SSHConfig describes how terminal sessions reach a guest's shell.
type SSHConfig struct {
	User    string `yaml:"user" envconfig:"SSH_USER"`
	Port    string `yaml:"port" envconfig:"SSH_PORT"`
	KeyPath string `yaml:"key_path" envconfig:"SSH_KEY_PATH"`
}

// AnsibleConfig locates the guest provisioning playbook.
type AnsibleConfig struct {
	Inventory string `yaml:"inventory" envconfig:"ANSIBLE_INVENTORY"`
	Playbook  string `yaml:"playbook" envconfig:"ANSIBLE_PLAYBOOK"`
}

// Config is the complete service configuration.
type Config struct {
	Listen        string `yaml:"listen" envconfig:"LISTEN"`
	LibvirtSocket string `yaml:"libvirt_socket" envconfig:"LIBVIRT_SOCKET"`

	StoragePath   string `yaml:"storage_path" envconfig:"STORAGE_PATH"`
	BaseImagePath string `yaml:"base_image_path" envconfig:"BASE_IMAGE_PATH"`
	Network       string `yaml:"network" envconfig:"NETWORK"`

	PoolSize        int `yaml:"pool_size" envconfig:"POOL_SIZE"`
	DefaultMemoryMB int `yaml:"default_memory_mb" envconfig:"DEFAULT_MEMORY_MB"`
	DefaultVCPUs    int `yaml:"default_vcpus" envconfig:"DEFAULT_VCPUS"`

	// StopTimeout and StopPollInterval are time.ParseDuration strings
	// bounding the graceful-shutdown wait before a forced power-off.
	StopTimeout      string `yaml:"stop_timeout" envconfig:"STOP_TIMEOUT"`
	StopPollInterval string `yaml:"stop_poll_interval" envconfig:"STOP_POLL_INTERVAL"`

	SSH     SSHConfig     `yaml:"ssh"`
	Ansible AnsibleConfig `yaml:"ansible"`

	RecordingDir string `yaml:"recording_dir" envconfig:"RECORDING_DIR"`
	LogLevel     string `yaml:"log_level" envconfig:"LOG_LEVEL"`
	LogDir       string `yaml:"log_dir" envconfig:"LOG_DIR"`
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadFromFile reads configuration from a YAML file, applies VIRTLAB_*
// environment overrides, fills defaults, and validates the result.
// An empty path skips the file and uses defaults plus environment only.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process("virtlab", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment overrides: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.StoragePath == "" {
		c.StoragePath = "/var/lib/virtlab/images"
	}
	if c.BaseImagePath == "" {
		c.BaseImagePath = "/var/lib/virtlab/images/base.qcow2"
	}
	if c.Network == "" {
		c.Network = "default"
	}
	if c.PoolSize == 0 {
		c.PoolSize = 3
	}
	if c.DefaultMemoryMB == 0 {
		c.DefaultMemoryMB = 1024
	}
	if c.DefaultVCPUs == 0 {
		c.DefaultVCPUs = 1
	}
	if c.StopTimeout == "" {
		c.StopTimeout = "30s"
	}
	if c.StopPollInterval == "" {
		c.StopPollInterval = "500ms"
	}
	if c.SSH.User == "" {
		c.SSH.User = "student"
	}
	if c.SSH.Port == "" {
		c.SSH.Port = "22"
	}
	if c.RecordingDir == "" {
		c.RecordingDir = "/var/lib/virtlab/recordings"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks the configuration for structural errors. It does not
// verify that referenced paths exist; that is deferred to the components
// that use them.
func (c *Config) Validate() error {
	if c.PoolSize < 0 {
		return fmt.Errorf("pool_size must be >= 0, got %d", c.PoolSize)
	}
	if c.DefaultMemoryMB <= 0 {
		return fmt.Errorf("default_memory_mb must be > 0, got %d", c.DefaultMemoryMB)
	}
	if c.DefaultVCPUs <= 0 {
		return fmt.Errorf("default_vcpus must be > 0, got %d", c.DefaultVCPUs)
	}
	if _, err := time.ParseDuration(c.StopTimeout); err != nil {
		return fmt.Errorf("invalid stop_timeout %q: %w", c.StopTimeout, err)
	}
	if _, err := time.ParseDuration(c.StopPollInterval); err != nil {
		return fmt.Errorf("invalid stop_poll_interval %q: %w", c.StopPollInterval, err)
	}
	return nil
}

// StopTimeoutDuration returns the parsed stop_timeout. Validate must have
// succeeded first.
func (c *Config) StopTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.StopTimeout)
	return d
}

// StopPollIntervalDuration returns the parsed stop_poll_interval.
func (c *Config) StopPollIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.StopPollInterval)
	return d
}
