// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/Thermoquad/bifil/pkg/bifil"
	"gopkg.in/yaml.v3"
)

// LinkConfig describes one link endpoint as loaded from a YAML file.
// Zero values mean "use the engine default".
type LinkConfig struct {
	Role            string `yaml:"role"`
	Poll            bool   `yaml:"poll"`
	QueueDepth      int    `yaml:"queue_depth"`
	ClockHalfPeriod int    `yaml:"clock_half_period"`
	IdleGap         int    `yaml:"idle_gap"`
	DesyncTimeout   int    `yaml:"desync_timeout"`
	PeerTimeout     int    `yaml:"peer_timeout"`
}

// ToolConfig is the top-level YAML configuration for the bifil tool.
type ToolConfig struct {
	Link LinkConfig `yaml:"link"`
}

// DefaultToolConfig returns the configuration used when no file is given.
func DefaultToolConfig() *ToolConfig {
	return &ToolConfig{
		Link: LinkConfig{
			Role: "initiator",
			Poll: true,
		},
	}
}

// LoadToolConfig reads and validates a YAML configuration file.
func LoadToolConfig(path string) (*ToolConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := DefaultToolConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := ValidateToolConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// ValidateToolConfig checks configuration correctness.
// It performs declarative validation only and MUST NOT mutate configuration.
func ValidateToolConfig(cfg *ToolConfig) error {
	switch cfg.Link.Role {
	case "", "initiator", "responder":
	default:
		return fmt.Errorf("link role must be \"initiator\" or \"responder\", got %q", cfg.Link.Role)
	}

	for _, f := range []struct {
		name  string
		value int
	}{
		{"queue_depth", cfg.Link.QueueDepth},
		{"clock_half_period", cfg.Link.ClockHalfPeriod},
		{"idle_gap", cfg.Link.IdleGap},
		{"desync_timeout", cfg.Link.DesyncTimeout},
		{"peer_timeout", cfg.Link.PeerTimeout},
	} {
		if f.value < 0 {
			return fmt.Errorf("link %s must not be negative, got %d", f.name, f.value)
		}
	}

	if cfg.Link.DesyncTimeout != 0 {
		half := cfg.Link.ClockHalfPeriod
		if half == 0 {
			half = bifil.DefaultClockHalfPeriod
		}
		if cfg.Link.DesyncTimeout <= 2*half {
			return fmt.Errorf("link desync_timeout (%d) must exceed one bit period (%d ticks)",
				cfg.Link.DesyncTimeout, 2*half)
		}
	}

	return nil
}

// Role resolves the configured role name to an engine role.
func (lc *LinkConfig) EngineRole() bifil.Role {
	if lc.Role == "responder" {
		return bifil.RoleResponder
	}
	return bifil.RoleInitiator
}

// EngineConfig maps the YAML link section onto an engine configuration.
func (lc *LinkConfig) EngineConfig() bifil.Config {
	return bifil.Config{
		QueueDepth:      lc.QueueDepth,
		ClockHalfPeriod: lc.ClockHalfPeriod,
		IdleGap:         lc.IdleGap,
		DesyncTimeout:   lc.DesyncTimeout,
		PeerTimeout:     lc.PeerTimeout,
	}
}

// loadLinkConfig resolves the --config flag, falling back to defaults.
func loadLinkConfig() (*ToolConfig, error) {
	if configPath == "" {
		return DefaultToolConfig(), nil
	}
	return LoadToolConfig(configPath)
}
