// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Thermoquad/bifil/pkg/bifil"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bifil.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadToolConfig_FullFile(t *testing.T) {
	path := writeConfigFile(t, `
link:
  role: responder
  poll: false
  queue_depth: 32
  clock_half_period: 4
  idle_gap: 128
  desync_timeout: 200
  peer_timeout: 8192
`)

	cfg, err := LoadToolConfig(path)
	if err != nil {
		t.Fatalf("LoadToolConfig: %v", err)
	}

	if cfg.Link.EngineRole() != bifil.RoleResponder {
		t.Errorf("role = %v, want responder", cfg.Link.EngineRole())
	}
	if cfg.Link.Poll {
		t.Error("poll should be disabled")
	}

	ec := cfg.Link.EngineConfig()
	if ec.QueueDepth != 32 || ec.ClockHalfPeriod != 4 || ec.IdleGap != 128 {
		t.Errorf("engine config mismatch: %+v", ec)
	}
	if ec.DesyncTimeout != 200 || ec.PeerTimeout != 8192 {
		t.Errorf("timeout mismatch: %+v", ec)
	}
}

func TestLoadToolConfig_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfigFile(t, `
link:
  queue_depth: 16
`)

	cfg, err := LoadToolConfig(path)
	if err != nil {
		t.Fatalf("LoadToolConfig: %v", err)
	}

	if cfg.Link.EngineRole() != bifil.RoleInitiator {
		t.Errorf("role = %v, want initiator default", cfg.Link.EngineRole())
	}
	if !cfg.Link.Poll {
		t.Error("poll should default to enabled")
	}
	if cfg.Link.QueueDepth != 16 {
		t.Errorf("queue_depth = %d, want 16", cfg.Link.QueueDepth)
	}
	if cfg.Link.ClockHalfPeriod != 0 {
		t.Errorf("clock_half_period = %d, want 0 (engine default)", cfg.Link.ClockHalfPeriod)
	}
}

func TestLoadToolConfig_MissingFile(t *testing.T) {
	if _, err := LoadToolConfig("/nonexistent/bifil.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateToolConfig_BadRole(t *testing.T) {
	cfg := DefaultToolConfig()
	cfg.Link.Role = "master"

	err := ValidateToolConfig(cfg)
	if err == nil {
		t.Fatal("expected error for unknown role")
	}
	if !strings.Contains(err.Error(), "master") {
		t.Errorf("error should name the bad role: %v", err)
	}
}

func TestValidateToolConfig_DesyncTooShort(t *testing.T) {
	cfg := DefaultToolConfig()
	cfg.Link.ClockHalfPeriod = 4
	cfg.Link.DesyncTimeout = 8

	if err := ValidateToolConfig(cfg); err == nil {
		t.Fatal("expected error for desync_timeout within one bit period")
	}

	cfg.Link.DesyncTimeout = 9
	if err := ValidateToolConfig(cfg); err != nil {
		t.Fatalf("desync_timeout just past one bit period should validate: %v", err)
	}
}

func TestValidateToolConfig_NegativeValue(t *testing.T) {
	cfg := DefaultToolConfig()
	cfg.Link.PeerTimeout = -1

	if err := ValidateToolConfig(cfg); err == nil {
		t.Fatal("expected error for negative peer_timeout")
	}
}
