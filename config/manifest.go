package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration with YAML support for "15s"-style values.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Manifest is the declarative fleet description consumed by the supervisor
// and the orchestrator.
type Manifest struct {
	StartupTimeout Duration     `yaml:"startup_timeout"`
	PollInterval   Duration     `yaml:"poll_interval"`
	CallTimeout    Duration     `yaml:"call_timeout"`
	Servers        []ServerSpec `yaml:"servers"`
}

// ServerSpec describes one tool server in the fleet.
type ServerSpec struct {
	Name    string   `yaml:"name"`
	Command []string `yaml:"command"`
	Host    string   `yaml:"host"`
	Port    int      `yaml:"port"`
}

// BaseURL returns the server's HTTP endpoint.
func (s ServerSpec) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", s.Host, s.Port)
}

// DefaultManifest describes the fleet the system ships with: one server per
// tool family, launched through this binary's own serve command.
func DefaultManifest() *Manifest {
	exe, err := os.Executable()
	if err != nil {
		exe = "toolfleet"
	}
	return &Manifest{
		StartupTimeout: Duration(15 * time.Second),
		PollInterval:   Duration(250 * time.Millisecond),
		CallTimeout:    Duration(30 * time.Second),
		Servers: []ServerSpec{
			{Name: "weather", Command: []string{exe, "serve", "weather"}, Host: "127.0.0.1", Port: 8001},
			{Name: "database", Command: []string{exe, "serve", "database"}, Host: "127.0.0.1", Port: 8002},
			{Name: "meeting", Command: []string{exe, "serve", "meeting"}, Host: "127.0.0.1", Port: 8004},
		},
	}
}

// LoadManifest reads and validates a YAML fleet manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	m := &Manifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	m.Normalize()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Normalize fills in unset durations and hosts.
func (m *Manifest) Normalize() {
	if m.StartupTimeout == 0 {
		m.StartupTimeout = Duration(15 * time.Second)
	}
	if m.PollInterval == 0 {
		m.PollInterval = Duration(250 * time.Millisecond)
	}
	if m.CallTimeout == 0 {
		m.CallTimeout = Duration(30 * time.Second)
	}
	for i := range m.Servers {
		m.Servers[i].Name = strings.TrimSpace(m.Servers[i].Name)
		if m.Servers[i].Host == "" {
			m.Servers[i].Host = "127.0.0.1"
		}
	}
}

// Validate checks the manifest for structural problems.
func (m *Manifest) Validate() error {
	if len(m.Servers) == 0 {
		return errors.New("manifest must declare at least one server")
	}

	names := make(map[string]bool, len(m.Servers))
	ports := make(map[int]string, len(m.Servers))
	for _, s := range m.Servers {
		if s.Name == "" {
			return errors.New("server name cannot be empty")
		}
		if names[s.Name] {
			return fmt.Errorf("duplicate server name %q", s.Name)
		}
		names[s.Name] = true

		if len(s.Command) == 0 {
			return fmt.Errorf("server %q has no launch command", s.Name)
		}
		if s.Port <= 0 || s.Port > 65535 {
			return fmt.Errorf("server %q has invalid port %d", s.Name, s.Port)
		}
		if other, taken := ports[s.Port]; taken {
			return fmt.Errorf("servers %q and %q share port %d", other, s.Name, s.Port)
		}
		ports[s.Port] = s.Name
	}
	return nil
}
