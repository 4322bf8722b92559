// Package config holds the process-wide safety configuration. Configuration
// is loaded once at framework init and treated as immutable for the lifetime
// of a session; a session snapshots the values it needs at creation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"aegis/internal/types"
)

// SensitivityLevel tunes how aggressively the cultural layer flags content.
type SensitivityLevel string

const (
	SensitivityMinimal  SensitivityLevel = "minimal"
	SensitivityStandard SensitivityLevel = "standard"
	SensitivityStrict   SensitivityLevel = "strict"
)

// Valid reports whether the level is a declared member.
func (s SensitivityLevel) Valid() bool {
	switch s {
	case SensitivityMinimal, SensitivityStandard, SensitivityStrict:
		return true
	}
	return false
}

// SafetyConfiguration holds all policy knobs for the framework.
type SafetyConfiguration struct {
	// MaxContentIntensity caps what any session may reach.
	MaxContentIntensity types.ContentIntensity `yaml:"max_content_intensity"`

	// SessionTimeoutMinutes bounds a session's lifetime. Valid range [5,480].
	SessionTimeoutMinutes int `yaml:"session_timeout_minutes"`

	// CheckIntervalSeconds paces the engine's periodic state assessment.
	// Valid range [10,300].
	CheckIntervalSeconds int `yaml:"check_interval_seconds"`

	// CulturalSensitivity selects the cultural layer's aggressiveness.
	CulturalSensitivity SensitivityLevel `yaml:"cultural_sensitivity"`

	// RealTimeFiltering enables the content filter on the live path.
	RealTimeFiltering bool `yaml:"real_time_filtering"`

	// RequireTriggerWarnings demands warnings on any flagged content.
	// Requires RealTimeFiltering.
	RequireTriggerWarnings bool `yaml:"require_trigger_warnings"`

	// Pacing controls intensity ramping within a session.
	Pacing PacingConfig `yaml:"pacing"`

	// Logging controls the safety log store.
	Logging LoggingConfig `yaml:"logging"`

	// Store configures the optional SQLite archive.
	Store StoreConfig `yaml:"store"`
}

// PacingConfig throttles intensity escalation within a session.
type PacingConfig struct {
	// MaxRampSteps caps the number of intensity increases per session.
	MaxRampSteps int `yaml:"max_ramp_steps"`

	// RampIntervalMinutes is the minimum time between intensity changes.
	RampIntervalMinutes int `yaml:"ramp_interval_minutes"`
}

// LoggingConfig bounds the in-memory safety log.
type LoggingConfig struct {
	MaxLogEntries    int `yaml:"max_log_entries"`
	MaxErrors        int `yaml:"max_errors"`
	LogRetentionDays int `yaml:"log_retention_days"`
}

// StoreConfig configures the optional archival store.
type StoreConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
}

// DefaultConfiguration returns the default safety configuration.
func DefaultConfiguration() *SafetyConfiguration {
	return &SafetyConfiguration{
		MaxContentIntensity:    types.IntensityIntense,
		SessionTimeoutMinutes:  120,
		CheckIntervalSeconds:   30,
		CulturalSensitivity:    SensitivityStandard,
		RealTimeFiltering:      true,
		RequireTriggerWarnings: true,
		Pacing: PacingConfig{
			MaxRampSteps:        3,
			RampIntervalMinutes: 10,
		},
		Logging: LoggingConfig{
			MaxLogEntries:    10000,
			MaxErrors:        500,
			LogRetentionDays: 90,
		},
		Store: StoreConfig{
			Enabled:      false,
			DatabasePath: "data/aegis.db",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults when
// the file does not exist. Environment overrides are applied last.
func Load(path string) (*SafetyConfiguration, error) {
	cfg := DefaultConfiguration()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *SafetyConfiguration) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides lets deployment environments tighten policy without a
// config file edit.
func (c *SafetyConfiguration) applyEnvOverrides() {
	if v := os.Getenv("AEGIS_MAX_INTENSITY"); v != "" {
		c.MaxContentIntensity = types.ParseIntensity(v)
	}
	if v := os.Getenv("AEGIS_SESSION_TIMEOUT_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.SessionTimeoutMinutes = n
		}
	}
	if v := os.Getenv("AEGIS_CHECK_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.CheckIntervalSeconds = n
		}
	}
	if v := os.Getenv("AEGIS_CULTURAL_SENSITIVITY"); v != "" {
		c.CulturalSensitivity = SensitivityLevel(v)
	}
	if v := os.Getenv("AEGIS_DATABASE_PATH"); v != "" {
		c.Store.DatabasePath = v
		c.Store.Enabled = true
	}
}
