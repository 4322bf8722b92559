package config

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"aegis/internal/types"
)

func TestDefaultConfiguration(t *testing.T) {
	cfg := DefaultConfiguration()
	if cfg.MaxContentIntensity != types.IntensityIntense {
		t.Errorf("expected max intensity intense, got %s", cfg.MaxContentIntensity)
	}
	if cfg.SessionTimeoutMinutes != 120 {
		t.Errorf("expected timeout 120, got %d", cfg.SessionTimeoutMinutes)
	}
	if !cfg.RealTimeFiltering {
		t.Error("expected real-time filtering on by default")
	}
	if cfg.Pacing.MaxRampSteps != 3 {
		t.Errorf("expected 3 ramp steps, got %d", cfg.Pacing.MaxRampSteps)
	}
}

func TestConfiguration_SaveLoad(t *testing.T) {
	t.Setenv("AEGIS_MAX_INTENSITY", "")
	t.Setenv("AEGIS_SESSION_TIMEOUT_MINUTES", "")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "aegis.yaml")

	cfg := DefaultConfiguration()
	cfg.MaxContentIntensity = types.IntensityMild
	cfg.SessionTimeoutMinutes = 45
	cfg.CulturalSensitivity = SensitivityStrict

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("configuration round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestConfiguration_LoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("AEGIS_MAX_INTENSITY", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.SessionTimeoutMinutes != 120 {
		t.Errorf("expected default timeout, got %d", cfg.SessionTimeoutMinutes)
	}
}

func TestConfiguration_EnvOverrides(t *testing.T) {
	t.Setenv("AEGIS_MAX_INTENSITY", "very_mild")
	t.Setenv("AEGIS_SESSION_TIMEOUT_MINUTES", "30")
	t.Setenv("AEGIS_CULTURAL_SENSITIVITY", "minimal")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MaxContentIntensity != types.IntensityVeryMild {
		t.Errorf("env override for intensity not applied, got %s", cfg.MaxContentIntensity)
	}
	if cfg.SessionTimeoutMinutes != 30 {
		t.Errorf("env override for timeout not applied, got %d", cfg.SessionTimeoutMinutes)
	}
	if cfg.CulturalSensitivity != SensitivityMinimal {
		t.Errorf("env override for sensitivity not applied, got %s", cfg.CulturalSensitivity)
	}
}
