// Package types provides the shared data model used across aegis packages.
// This package exists to break import cycles between filter, trauma, and the
// framework facade. Types here are foundational data structures with no
// complex dependencies.
package types

import (
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// ORDINAL SCALES
// =============================================================================

// ContentIntensity is a six-level ordinal severity rating.
// The zero value is IntensityVeryMild; ordering is total and any combine
// operation must take the maximum of its inputs, never downgrade.
type ContentIntensity int

const (
	IntensityVeryMild ContentIntensity = iota
	IntensityMild
	IntensityModerate
	IntensityIntense
	IntensityVeryIntense
	IntensityExtreme
)

var intensityNames = map[ContentIntensity]string{
	IntensityVeryMild:    "very_mild",
	IntensityMild:        "mild",
	IntensityModerate:    "moderate",
	IntensityIntense:     "intense",
	IntensityVeryIntense: "very_intense",
	IntensityExtreme:     "extreme",
}

func (i ContentIntensity) String() string {
	if name, ok := intensityNames[i]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether the intensity is within the declared scale.
func (i ContentIntensity) Valid() bool {
	return i >= IntensityVeryMild && i <= IntensityExtreme
}

// MaxIntensity returns the higher of two intensities.
func MaxIntensity(a, b ContentIntensity) ContentIntensity {
	if a > b {
		return a
	}
	return b
}

// ClampIntensity bounds an intensity into the declared scale.
func ClampIntensity(i ContentIntensity) ContentIntensity {
	if i < IntensityVeryMild {
		return IntensityVeryMild
	}
	if i > IntensityExtreme {
		return IntensityExtreme
	}
	return i
}

// ParseIntensity converts a string form back to an intensity.
// Unknown strings map to IntensityModerate, the conservative middle.
func ParseIntensity(s string) ContentIntensity {
	for level, name := range intensityNames {
		if name == s {
			return level
		}
	}
	return IntensityModerate
}

// MarshalYAML stores intensities by name so config files stay readable.
func (i ContentIntensity) MarshalYAML() (any, error) {
	return i.String(), nil
}

// UnmarshalYAML accepts either the name or the raw ordinal.
func (i *ContentIntensity) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		*i = ParseIntensity(s)
		return nil
	}
	var n int
	if err := value.Decode(&n); err != nil {
		return err
	}
	*i = ClampIntensity(ContentIntensity(n))
	return nil
}

// RiskLevel classifies a user's overall vulnerability.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Valid reports whether the risk level is a declared member.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskModerate, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// Severity grades a single trigger warning.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// =============================================================================
// TRIGGER CATEGORIES
// =============================================================================

// TriggerCategory is a named class of potentially distressing content.
type TriggerCategory string

const (
	CategoryViolence      TriggerCategory = "violence"
	CategorySexualContent TriggerCategory = "sexual_content"
	CategoryTrauma        TriggerCategory = "trauma"
	CategorySubstanceUse  TriggerCategory = "substance_use"
	CategoryMentalHealth  TriggerCategory = "mental_health"
	CategoryDeathLoss     TriggerCategory = "death_loss"
)

// TriggerCategories lists every declared category in a stable order.
var TriggerCategories = []TriggerCategory{
	CategoryViolence,
	CategorySexualContent,
	CategoryTrauma,
	CategorySubstanceUse,
	CategoryMentalHealth,
	CategoryDeathLoss,
}

func (c TriggerCategory) Valid() bool {
	for _, known := range TriggerCategories {
		if c == known {
			return true
		}
	}
	return false
}

// =============================================================================
// SAFETY ACTIONS
// =============================================================================

// SafetyAction is the verdict returned to callers after processing an
// interaction or a piece of content.
type SafetyAction string

const (
	ActionContinue SafetyAction = "continue"
	ActionPause    SafetyAction = "pause"
	ActionStop     SafetyAction = "stop"
	ActionWarn     SafetyAction = "warn"
	ActionModify   SafetyAction = "modify"
	ActionBlock    SafetyAction = "block"
)

// InteractionType classifies a user interaction routed through the facade.
type InteractionType string

const (
	InteractionFeedback      InteractionType = "feedback"
	InteractionSafeWord      InteractionType = "safe_word"
	InteractionBoundaryCheck InteractionType = "boundary_check"
	InteractionEmergency     InteractionType = "emergency"
	InteractionGeneral       InteractionType = "general"
)

// =============================================================================
// USER SAFETY PROFILE
// =============================================================================

// BoundaryType distinguishes hard limits from soft preferences.
type BoundaryType string

const (
	BoundaryHard BoundaryType = "hard"
	BoundarySoft BoundaryType = "soft"
)

// Boundary is a user-declared limit with the consequences of crossing it.
// A hard boundary must carry at least one consequence; this is enforced by
// the validator, not at construction time.
type Boundary struct {
	Type         BoundaryType    `json:"type" yaml:"type"`
	Description  string          `json:"description" yaml:"description"`
	Category     TriggerCategory `json:"category" yaml:"category"`
	Consequences []string        `json:"consequences" yaml:"consequences"`
}

// EmergencyContact identifies someone reachable when a session escalates.
type EmergencyContact struct {
	Name         string `json:"name" yaml:"name"`
	Relationship string `json:"relationship" yaml:"relationship"`
	Phone        string `json:"phone" yaml:"phone"`
	Available    bool   `json:"available" yaml:"available"`
}

// AccessibilityNeed describes an impairment the filter must account for.
type AccessibilityNeed string

const (
	NeedVisual    AccessibilityNeed = "visual"
	NeedAuditory  AccessibilityNeed = "auditory"
	NeedCognitive AccessibilityNeed = "cognitive"
)

func (n AccessibilityNeed) Valid() bool {
	switch n {
	case NeedVisual, NeedAuditory, NeedCognitive:
		return true
	}
	return false
}

// IntensityPreferences bounds the content a user is willing to receive.
type IntensityPreferences struct {
	Maximum     ContentIntensity `json:"maximum" yaml:"maximum"`
	Preferred   ContentIntensity `json:"preferred" yaml:"preferred"`
	RampAllowed bool             `json:"ramp_allowed" yaml:"ramp_allowed"`
}

// UserSafetyProfile is the per-user safety record. It is created on the
// user's first session, updated only explicitly, and never mutated by
// content analysis.
type UserSafetyProfile struct {
	UserID             string               `json:"user_id" yaml:"user_id"`
	RiskLevel          RiskLevel            `json:"risk_level" yaml:"risk_level"`
	TriggerCategories  []TriggerCategory    `json:"trigger_categories" yaml:"trigger_categories"`
	Intensity          IntensityPreferences `json:"intensity" yaml:"intensity"`
	Boundaries         []Boundary           `json:"boundaries" yaml:"boundaries"`
	EmergencyContacts  []EmergencyContact   `json:"emergency_contacts" yaml:"emergency_contacts"`
	AccessibilityNeeds []AccessibilityNeed  `json:"accessibility_needs" yaml:"accessibility_needs"`
	CulturalBackground []string             `json:"cultural_background" yaml:"cultural_background"`
	SafeWords          []string             `json:"safe_words" yaml:"safe_words"`
	AgeVerified        bool                 `json:"age_verified" yaml:"age_verified"`
	VerifiedAge        int                  `json:"verified_age" yaml:"verified_age"`
	ConsentGiven       bool                 `json:"consent_given" yaml:"consent_given"`
	CreatedAt          time.Time            `json:"created_at" yaml:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at" yaml:"updated_at"`
}

// =============================================================================
// SESSIONS
// =============================================================================

// SessionStatus tracks the lifecycle of a safety session.
// Transitions are monotonic except pause<->resume; ended and terminated are
// terminal.
type SessionStatus string

const (
	SessionCreated    SessionStatus = "created"
	SessionActive     SessionStatus = "active"
	SessionPaused     SessionStatus = "paused"
	SessionEnded      SessionStatus = "ended"
	SessionTerminated SessionStatus = "terminated"
)

// Terminal reports whether the status admits no further transitions.
func (s SessionStatus) Terminal() bool {
	return s == SessionEnded || s == SessionTerminated
}

// CanTransition reports whether moving from s to next is a legal lifecycle
// step.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	if s.Terminal() {
		return false
	}
	switch s {
	case SessionCreated:
		return next == SessionActive || next == SessionTerminated
	case SessionActive:
		return next == SessionPaused || next == SessionEnded || next == SessionTerminated
	case SessionPaused:
		return next == SessionActive || next == SessionEnded || next == SessionTerminated
	}
	return false
}

// Violation records a boundary crossing observed during a session.
type Violation struct {
	Timestamp   time.Time       `json:"timestamp"`
	Category    TriggerCategory `json:"category"`
	Boundary    BoundaryType    `json:"boundary"`
	Description string          `json:"description"`
}

// EmergencyAction records an emergency intervention taken during a session.
type EmergencyAction struct {
	Timestamp time.Time    `json:"timestamp"`
	Action    SafetyAction `json:"action"`
	Trigger   string       `json:"trigger"`
	Resolved  bool         `json:"resolved"`
}

// SafetySession is one active engagement between a user and the system.
type SafetySession struct {
	ID               string            `json:"id"`
	UserID           string            `json:"user_id"`
	Status           SessionStatus     `json:"status"`
	Filters          []ContentFilter   `json:"filters"`
	Violations       []Violation       `json:"violations"`
	EmergencyActions []EmergencyAction `json:"emergency_actions"`
	StartedAt        time.Time         `json:"started_at"`
	EndedAt          time.Time         `json:"ended_at,omitempty"`
}

// =============================================================================
// CONTENT ANALYSIS
// =============================================================================

// TriggerWarning flags one class of distressing material found in content.
type TriggerWarning struct {
	Category         TriggerCategory `json:"category"`
	Severity         Severity        `json:"severity"`
	MatchCount       int             `json:"match_count"`
	DurationEstimate time.Duration   `json:"duration_estimate"`
	Description      string          `json:"description"`
}

// RiskAssessment summarizes the danger a piece of content poses to a user.
type RiskAssessment struct {
	OverallRisk        RiskLevel                     `json:"overall_risk"`
	CategoryRisks      map[TriggerCategory]RiskLevel `json:"category_risks"`
	TraumaIndicators   []string                      `json:"trauma_indicators"`
	ProtectiveFactors  []string                      `json:"protective_factors"`
	RecommendedActions []SafetyAction                `json:"recommended_actions"`
}

// CulturalFlag marks content that conflicts with a cultural sensitivity.
type CulturalFlag struct {
	Context     string `json:"context"`
	Pattern     string `json:"pattern"`
	Description string `json:"description"`
}

// AgeRating holds the minimum age computed for a piece of content.
type AgeRating struct {
	MinimumAge int      `json:"minimum_age"`
	Reasons    []string `json:"reasons"`
}

// AccessibilityImpact records a conflict between content and a declared need.
type AccessibilityImpact struct {
	Need        AccessibilityNeed `json:"need"`
	Pattern     string            `json:"pattern"`
	Description string            `json:"description"`
}

// ContentAnalysis is the immutable output of evaluating one piece of
// content. Re-analysis produces a new record.
type ContentAnalysis struct {
	ContentID            string                `json:"content_id"`
	SessionID            string                `json:"session_id"`
	OriginalContent      string                `json:"original_content"`
	FilteredContent      string                `json:"filtered_content"`
	TriggerWarnings      []TriggerWarning      `json:"trigger_warnings"`
	ContentIntensity     ContentIntensity      `json:"content_intensity"`
	Risk                 RiskAssessment        `json:"risk"`
	CulturalFlags        []CulturalFlag        `json:"cultural_flags"`
	AgeRating            AgeRating             `json:"age_rating"`
	AccessibilityImpacts []AccessibilityImpact `json:"accessibility_impacts"`
	AnalyzedAt           time.Time             `json:"analyzed_at"`
}

// =============================================================================
// FILTER RULES
// =============================================================================

// FilterAction is the closed set of things a rule may do on match.
type FilterAction string

const (
	FilterBlock   FilterAction = "block"
	FilterWarn    FilterAction = "warn"
	FilterFilter  FilterAction = "filter"
	FilterReplace FilterAction = "replace"
)

// FilterKind names the concern a filter serves.
type FilterKind string

const (
	FilterTrauma        FilterKind = "trauma"
	FilterCultural      FilterKind = "cultural"
	FilterAge           FilterKind = "age_based"
	FilterAccessibility FilterKind = "accessibility"
	FilterContextual    FilterKind = "contextual"
)

// RuleCondition gates a rule on session or user context.
type RuleCondition struct {
	Field    string `json:"field"`    // e.g. "age_verified", "risk_level"
	Operator string `json:"operator"` // eq, ne, lt, gte
	Value    string `json:"value"`
}

// FilterRule is one pattern in a rule set: pattern + action + conditions.
type FilterRule struct {
	Pattern     string          `json:"pattern"`
	Action      FilterAction    `json:"action"`
	Replacement string          `json:"replacement,omitempty"`
	Conditions  []RuleCondition `json:"conditions,omitempty"`
}

// ContentFilter is a named, prioritized rule set bound to a user.
// Filters are applied in ascending priority order; trauma carries the
// highest priority (1).
type ContentFilter struct {
	ID       string       `json:"id"`
	UserID   string       `json:"user_id"`
	Kind     FilterKind   `json:"kind"`
	Priority int          `json:"priority"`
	Rules    []FilterRule `json:"rules"`
	Enabled  bool         `json:"enabled"`
}

// =============================================================================
// LOG RECORDS
// =============================================================================

// LogLevel grades a safety log entry.
type LogLevel string

const (
	LevelDebug    LogLevel = "debug"
	LevelInfo     LogLevel = "info"
	LevelWarning  LogLevel = "warning"
	LevelError    LogLevel = "error"
	LevelCritical LogLevel = "critical"
)

// SafetyLogEntry is an append-only audit record. Never mutated after
// creation; subject to retention-based deletion only.
type SafetyLogEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Level     LogLevel       `json:"level"`
	Category  string         `json:"category"`
	Message   string         `json:"message"`
	UserID    string         `json:"user_id,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// ErrorKind classifies a SafetyError per the framework's taxonomy.
type ErrorKind string

const (
	ErrFilter      ErrorKind = "filter_error"
	ErrUserSafety  ErrorKind = "user_safety"
	ErrSystem      ErrorKind = "system_error"
	ErrIntegration ErrorKind = "integration_error"
)

// SafetyError is an append-only error record.
type SafetyError struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      ErrorKind `json:"kind"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	UserID    string    `json:"user_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
}
