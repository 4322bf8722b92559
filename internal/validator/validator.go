// Package validator implements type and shape validation for configuration,
// user profiles, content-analysis results, and sessions. All functions are
// pure and side-effect free: they take a candidate value and return a
// ValidationResult. Malformed input degrades to StatusError, never a panic,
// so callers can treat validation failures as data.
package validator

import (
	"fmt"

	"aegis/internal/config"
	"aegis/internal/types"
)

// Status is the outcome class of a validation call.
type Status string

const (
	StatusValid   Status = "valid"
	StatusWarning Status = "warning"
	StatusInvalid Status = "invalid"
	StatusError   Status = "error"
)

// Issue is a single finding produced during validation.
type Issue struct {
	Field   string
	Message string
	Hard    bool // hard issues make the result invalid; soft ones only warn
}

// ValidationResult reports the outcome of validating one value.
type ValidationResult struct {
	Status Status
	Issues []Issue
}

// OK reports whether the value may be used (valid or merely warned).
func (r ValidationResult) OK() bool {
	return r.Status == StatusValid || r.Status == StatusWarning
}

func result(issues []Issue) ValidationResult {
	status := StatusValid
	for _, issue := range issues {
		if issue.Hard {
			status = StatusInvalid
			break
		}
		status = StatusWarning
	}
	return ValidationResult{Status: status, Issues: issues}
}

func errorResult(field, msg string) ValidationResult {
	return ValidationResult{
		Status: StatusError,
		Issues: []Issue{{Field: field, Message: msg, Hard: true}},
	}
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// Session timeout and check interval bounds, in minutes and seconds.
const (
	minSessionTimeoutMinutes = 5
	maxSessionTimeoutMinutes = 480
	minCheckIntervalSeconds  = 10
	maxCheckIntervalSeconds  = 300
)

// ValidateSafetyConfiguration checks enum membership, numeric bounds, and
// cross-field consistency of a configuration.
func ValidateSafetyConfiguration(cfg *config.SafetyConfiguration) ValidationResult {
	if cfg == nil {
		return errorResult("configuration", "configuration is nil")
	}

	var issues []Issue
	if !cfg.MaxContentIntensity.Valid() {
		issues = append(issues, Issue{
			Field:   "max_content_intensity",
			Message: fmt.Sprintf("unknown intensity %d", cfg.MaxContentIntensity),
			Hard:    true,
		})
	}
	if cfg.SessionTimeoutMinutes < minSessionTimeoutMinutes || cfg.SessionTimeoutMinutes > maxSessionTimeoutMinutes {
		issues = append(issues, Issue{
			Field: "session_timeout_minutes",
			Message: fmt.Sprintf("timeout %d outside [%d,%d]",
				cfg.SessionTimeoutMinutes, minSessionTimeoutMinutes, maxSessionTimeoutMinutes),
			Hard: true,
		})
	}
	if cfg.CheckIntervalSeconds < minCheckIntervalSeconds || cfg.CheckIntervalSeconds > maxCheckIntervalSeconds {
		issues = append(issues, Issue{
			Field: "check_interval_seconds",
			Message: fmt.Sprintf("interval %d outside [%d,%d]",
				cfg.CheckIntervalSeconds, minCheckIntervalSeconds, maxCheckIntervalSeconds),
			Hard: true,
		})
	}
	if !cfg.CulturalSensitivity.Valid() {
		issues = append(issues, Issue{
			Field:   "cultural_sensitivity",
			Message: fmt.Sprintf("unknown sensitivity level %q", cfg.CulturalSensitivity),
			Hard:    true,
		})
	}

	// Trigger warnings cannot be required without the filter running live.
	if cfg.RequireTriggerWarnings && !cfg.RealTimeFiltering {
		issues = append(issues, Issue{
			Field:   "require_trigger_warnings",
			Message: "trigger warnings require real-time filtering",
			Hard:    true,
		})
	}

	if cfg.Pacing.MaxRampSteps <= 0 {
		issues = append(issues, Issue{
			Field:   "pacing.max_ramp_steps",
			Message: "ramp step cap must be positive",
			Hard:    true,
		})
	}
	if cfg.Pacing.RampIntervalMinutes < 0 {
		issues = append(issues, Issue{
			Field:   "pacing.ramp_interval_minutes",
			Message: "ramp interval cannot be negative",
			Hard:    true,
		})
	}

	return result(issues)
}

// =============================================================================
// USER PROFILES
// =============================================================================

// ValidateUserSafetyProfile checks required fields, enum membership, and the
// two cross-cutting invariants: a critical-risk profile must declare at least
// one emergency contact, and every hard boundary must carry at least one
// consequence. Hard violations yield StatusInvalid; soft omissions (missing
// descriptions, unavailable contacts) yield StatusWarning.
func ValidateUserSafetyProfile(profile *types.UserSafetyProfile) ValidationResult {
	if profile == nil {
		return errorResult("profile", "profile is nil")
	}

	var issues []Issue
	if profile.UserID == "" {
		issues = append(issues, Issue{Field: "user_id", Message: "user id is required", Hard: true})
	}
	if !profile.RiskLevel.Valid() {
		issues = append(issues, Issue{
			Field:   "risk_level",
			Message: fmt.Sprintf("unknown risk level %q", profile.RiskLevel),
			Hard:    true,
		})
	}
	for i, cat := range profile.TriggerCategories {
		if !cat.Valid() {
			issues = append(issues, Issue{
				Field:   fmt.Sprintf("trigger_categories[%d]", i),
				Message: fmt.Sprintf("unknown trigger category %q", cat),
				Hard:    true,
			})
		}
	}
	if !profile.Intensity.Maximum.Valid() {
		issues = append(issues, Issue{
			Field:   "intensity.maximum",
			Message: fmt.Sprintf("unknown intensity %d", profile.Intensity.Maximum),
			Hard:    true,
		})
	}
	if profile.Intensity.Preferred > profile.Intensity.Maximum {
		issues = append(issues, Issue{
			Field:   "intensity.preferred",
			Message: "preferred intensity exceeds declared maximum",
			Hard:    true,
		})
	}

	for i, boundary := range profile.Boundaries {
		if boundary.Type != types.BoundaryHard && boundary.Type != types.BoundarySoft {
			issues = append(issues, Issue{
				Field:   fmt.Sprintf("boundaries[%d].type", i),
				Message: fmt.Sprintf("unknown boundary type %q", boundary.Type),
				Hard:    true,
			})
		}
		if boundary.Type == types.BoundaryHard && len(boundary.Consequences) == 0 {
			issues = append(issues, Issue{
				Field:   fmt.Sprintf("boundaries[%d].consequences", i),
				Message: "hard boundary has no consequences",
				Hard:    true,
			})
		}
		if boundary.Description == "" {
			issues = append(issues, Issue{
				Field:   fmt.Sprintf("boundaries[%d].description", i),
				Message: "boundary has no description",
			})
		}
	}

	if profile.RiskLevel == types.RiskCritical && len(profile.EmergencyContacts) == 0 {
		issues = append(issues, Issue{
			Field:   "emergency_contacts",
			Message: "critical-risk profile has no emergency contacts",
			Hard:    true,
		})
	}
	for i, contact := range profile.EmergencyContacts {
		if contact.Name == "" || contact.Phone == "" {
			issues = append(issues, Issue{
				Field:   fmt.Sprintf("emergency_contacts[%d]", i),
				Message: "contact missing name or phone",
				Hard:    true,
			})
		}
		if !contact.Available {
			issues = append(issues, Issue{
				Field:   fmt.Sprintf("emergency_contacts[%d]", i),
				Message: "contact marked unavailable",
			})
		}
	}

	for i, need := range profile.AccessibilityNeeds {
		if !need.Valid() {
			issues = append(issues, Issue{
				Field:   fmt.Sprintf("accessibility_needs[%d]", i),
				Message: fmt.Sprintf("unknown accessibility need %q", need),
				Hard:    true,
			})
		}
	}

	if profile.AgeVerified && profile.VerifiedAge <= 0 {
		issues = append(issues, Issue{
			Field:   "verified_age",
			Message: "age marked verified without a verified age",
			Hard:    true,
		})
	}

	return result(issues)
}

// =============================================================================
// CONTENT ANALYSIS AND SESSIONS
// =============================================================================

// ValidateContentAnalysis checks the structural invariants of an analysis
// record: enum membership and the age-rating range.
func ValidateContentAnalysis(analysis *types.ContentAnalysis) ValidationResult {
	if analysis == nil {
		return errorResult("analysis", "analysis is nil")
	}

	var issues []Issue
	if analysis.ContentID == "" {
		issues = append(issues, Issue{Field: "content_id", Message: "content id is required", Hard: true})
	}
	if !analysis.ContentIntensity.Valid() {
		issues = append(issues, Issue{
			Field:   "content_intensity",
			Message: fmt.Sprintf("unknown intensity %d", analysis.ContentIntensity),
			Hard:    true,
		})
	}
	for i, warning := range analysis.TriggerWarnings {
		if !warning.Category.Valid() {
			issues = append(issues, Issue{
				Field:   fmt.Sprintf("trigger_warnings[%d].category", i),
				Message: fmt.Sprintf("unknown category %q", warning.Category),
				Hard:    true,
			})
		}
		if !warning.Severity.Valid() {
			issues = append(issues, Issue{
				Field:   fmt.Sprintf("trigger_warnings[%d].severity", i),
				Message: fmt.Sprintf("unknown severity %q", warning.Severity),
				Hard:    true,
			})
		}
	}
	if analysis.AgeRating.MinimumAge < 0 || analysis.AgeRating.MinimumAge > 21 {
		issues = append(issues, Issue{
			Field:   "age_rating.minimum_age",
			Message: fmt.Sprintf("minimum age %d outside [0,21]", analysis.AgeRating.MinimumAge),
			Hard:    true,
		})
	}
	if analysis.Risk.OverallRisk != "" && !analysis.Risk.OverallRisk.Valid() {
		issues = append(issues, Issue{
			Field:   "risk.overall_risk",
			Message: fmt.Sprintf("unknown risk level %q", analysis.Risk.OverallRisk),
			Hard:    true,
		})
	}

	return result(issues)
}

// ValidateSafetySession checks session structure: enum membership and
// timestamp ordering (end after start for ended sessions).
func ValidateSafetySession(session *types.SafetySession) ValidationResult {
	if session == nil {
		return errorResult("session", "session is nil")
	}

	var issues []Issue
	if session.ID == "" {
		issues = append(issues, Issue{Field: "id", Message: "session id is required", Hard: true})
	}
	if session.UserID == "" {
		issues = append(issues, Issue{Field: "user_id", Message: "user id is required", Hard: true})
	}
	switch session.Status {
	case types.SessionCreated, types.SessionActive, types.SessionPaused,
		types.SessionEnded, types.SessionTerminated:
	default:
		issues = append(issues, Issue{
			Field:   "status",
			Message: fmt.Sprintf("unknown status %q", session.Status),
			Hard:    true,
		})
	}
	if session.Status.Terminal() && !session.EndedAt.IsZero() && !session.EndedAt.After(session.StartedAt) {
		issues = append(issues, Issue{
			Field:   "ended_at",
			Message: "session end does not follow start",
			Hard:    true,
		})
	}

	return result(issues)
}
