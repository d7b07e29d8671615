package harness

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultSpawnTimeout   = time.Second * 10
	DefaultWaitTimeout    = time.Second * 10
	DefaultKillGrace      = time.Second * 2
	DefaultCleanupTimeout = time.Second * 5

	DefaultMinPort      = 20000
	DefaultMaxPort      = 60000
	DefaultPortAttempts = 50

	defaultStderrTailBytes = 16 * 1024
)

// Config contains the parameters for a Supervisor. Zero values are replaced with defaults.
type Config struct {
	Endpoint EndpointCommand `yaml:"endpoint"`
	Timeouts Timeouts        `yaml:"timeouts"`
	Ports    PortRange       `yaml:"ports"`
}

// EndpointCommand describes how to launch an endpoint process.
type EndpointCommand struct {
	// Command is the program and arguments. It is not interpreted by a shell.
	Command []string `yaml:"command"`

	// Dir is the working directory; empty means the current directory.
	Dir string `yaml:"dir"`

	// Env contains additional environment variables, on top of the harness's own environment.
	Env map[string]string `yaml:"env"`

	// StderrTailBytes is how much of the process's stderr output is retained for error reports.
	StderrTailBytes int `yaml:"stderrTailBytes"`
}

type Timeouts struct {
	Spawn     time.Duration `yaml:"spawn"`
	Wait      time.Duration `yaml:"wait"`
	KillGrace time.Duration `yaml:"killGrace"`
	Cleanup   time.Duration `yaml:"cleanup"`
}

// PortRange controls how the port reservation service picks ports.
type PortRange struct {
	Min      int `yaml:"min"`
	Max      int `yaml:"max"`
	Attempts int `yaml:"attempts"`
}

func (c Config) withDefaults() Config {
	ret := c
	if ret.Timeouts.Spawn <= 0 {
		ret.Timeouts.Spawn = DefaultSpawnTimeout
	}
	if ret.Timeouts.Wait <= 0 {
		ret.Timeouts.Wait = DefaultWaitTimeout
	}
	if ret.Timeouts.KillGrace <= 0 {
		ret.Timeouts.KillGrace = DefaultKillGrace
	}
	if ret.Timeouts.Cleanup <= 0 {
		ret.Timeouts.Cleanup = DefaultCleanupTimeout
	}
	if ret.Endpoint.StderrTailBytes <= 0 {
		ret.Endpoint.StderrTailBytes = defaultStderrTailBytes
	}
	ret.Ports = ret.Ports.withDefaults()
	return ret
}

func (p PortRange) withDefaults() PortRange {
	ret := p
	if ret.Min <= 0 {
		ret.Min = DefaultMinPort
	}
	if ret.Max <= 0 || ret.Max > 65535 {
		ret.Max = DefaultMaxPort
	}
	if ret.Max < ret.Min {
		ret.Min, ret.Max = ret.Max, ret.Min
	}
	if ret.Attempts <= 0 {
		ret.Attempts = DefaultPortAttempts
	}
	return ret
}

// Validate checks that the configuration can be used to launch endpoints.
func (c Config) Validate() error {
	if len(c.Endpoint.Command) == 0 || c.Endpoint.Command[0] == "" {
		return fmt.Errorf("endpoint command is not set")
	}
	return nil
}

// LoadConfigFile reads a YAML configuration file. Durations are written as strings such as
// "10s" or "500ms".
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("malformed configuration file %s: %w", path, err)
	}
	return c, nil
}
