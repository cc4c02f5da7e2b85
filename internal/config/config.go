package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Coordinator CoordinatorConfig `yaml:"coordinator"`
	Engine      EngineConfig      `yaml:"engine"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AuthToken      string   `yaml:"auth_token"`
}

// CoordinatorConfig holds the per-session timing knobs. The defaults were
// tuned for demo pacing; none of them encodes a protocol requirement.
type CoordinatorConfig struct {
	HeartbeatInterval time.Duration
	TelemetryInterval time.Duration
	ReselectInterval  time.Duration
	AdviceCooldown    time.Duration
	GracePeriod       time.Duration
	SendBuffer        int
}

// UnmarshalYAML reads the interval fields as duration strings ("500ms",
// "5s"). Fields absent from the file keep whatever the receiver already
// holds, so defaults survive partial configs.
func (c *CoordinatorConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		HeartbeatInterval string `yaml:"heartbeat_interval"`
		TelemetryInterval string `yaml:"telemetry_interval"`
		ReselectInterval  string `yaml:"reselect_interval"`
		AdviceCooldown    string `yaml:"advice_cooldown"`
		GracePeriod       string `yaml:"grace_period"`
		SendBuffer        int    `yaml:"send_buffer"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	set := func(dst *time.Duration, s, name string) error {
		if s == "" {
			return nil
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("coordinator.%s: %w", name, err)
		}
		*dst = d
		return nil
	}
	if err := set(&c.HeartbeatInterval, raw.HeartbeatInterval, "heartbeat_interval"); err != nil {
		return err
	}
	if err := set(&c.TelemetryInterval, raw.TelemetryInterval, "telemetry_interval"); err != nil {
		return err
	}
	if err := set(&c.ReselectInterval, raw.ReselectInterval, "reselect_interval"); err != nil {
		return err
	}
	if err := set(&c.AdviceCooldown, raw.AdviceCooldown, "advice_cooldown"); err != nil {
		return err
	}
	if err := set(&c.GracePeriod, raw.GracePeriod, "grace_period"); err != nil {
		return err
	}
	if raw.SendBuffer > 0 {
		c.SendBuffer = raw.SendBuffer
	}
	return nil
}

type EngineConfig struct {
	ReselectProbability float64 `yaml:"reselect_probability"`
	WarmupFrames        int     `yaml:"warmup_frames"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8090,
			Host: "0.0.0.0",
		},
		Coordinator: CoordinatorConfig{
			HeartbeatInterval: 5 * time.Second,
			TelemetryInterval: 500 * time.Millisecond,
			ReselectInterval:  10 * time.Second,
			AdviceCooldown:    3 * time.Second,
			GracePeriod:       60 * time.Second,
			SendBuffer:        64,
		},
		Engine: EngineConfig{
			ReselectProbability: 0.3,
			WarmupFrames:        10,
		},
	}
}

// Load reads the config file at path, applying defaults for any field the
// file does not set. A missing file is an error; use Default for in-process
// setups (tests, embedded use).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a config populated with the built-in defaults.
func Default() *Config {
	return defaultConfig()
}
