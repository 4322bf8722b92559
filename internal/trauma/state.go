// Package trauma implements the trauma-informed pacing engine: a per-session
// state machine layered on top of filter output. It handles intensity
// ramping, safe words, grounding-technique selection, and aftercare.
package trauma

import (
	"sync"
	"time"

	"aegis/internal/types"
)

// EmotionalState is the engine's coarse assessment of the user.
type EmotionalState string

const (
	StateCalm       EmotionalState = "calm"
	StateEngaged    EmotionalState = "engaged"
	StateStressed   EmotionalState = "stressed"
	StateDistressed EmotionalState = "distressed"
)

// EngagementLevel describes how the user is coping with the session pace.
type EngagementLevel string

const (
	EngagementSteady      EngagementLevel = "steady"
	EngagementOverwhelmed EngagementLevel = "overwhelmed"
)

// UserState is the engine's live assessment of one user within a session.
type UserState struct {
	BaselineState    EmotionalState
	CurrentState     EmotionalState
	StressThreshold  int
	StressIndicators int
	ComfortLevel     int // 0..10, starts at 7
	Engagement       EngagementLevel
	CopingStrategies []string
}

// SafeWordEvent records one safe-word invocation.
type SafeWordEvent struct {
	Word      string
	Timestamp time.Time
}

// PacingAdjustment records one intensity change applied by the engine.
type PacingAdjustment struct {
	Timestamp time.Time
	From      types.ContentIntensity
	To        types.ContentIntensity
	Reason    string
}

// SessionState is the engine's per-session record. All mutation happens
// under mu; the engine holds one lock per session so concurrent submissions
// for the same session serialize around the ramp-interval check.
type SessionState struct {
	mu sync.Mutex

	SessionID           string
	Profile             *types.UserSafetyProfile
	CurrentIntensity    types.ContentIntensity
	RampProgress        int
	LastIntensityChange time.Time
	SafeWordsUsed       []SafeWordEvent
	GroundingSessions   int
	User                UserState
	PacingHistory       []PacingAdjustment
	BoundaryViolations  []types.Violation
	EndedViaEmergency   bool
}

// stressThresholdForRisk derives the stress threshold from the profile's
// risk level.
func stressThresholdForRisk(risk types.RiskLevel) int {
	switch risk {
	case types.RiskLow:
		return 3
	case types.RiskModerate:
		return 5
	case types.RiskHigh:
		return 7
	case types.RiskCritical:
		return 9
	}
	return 5
}

// copingStrategiesFor derives default coping strategies from accessibility
// needs and cultural background.
func copingStrategiesFor(profile *types.UserSafetyProfile) []string {
	strategies := []string{"paced breathing"}
	for _, need := range profile.AccessibilityNeeds {
		switch need {
		case types.NeedVisual:
			strategies = append(strategies, "audio-guided grounding")
		case types.NeedAuditory:
			strategies = append(strategies, "visual grounding cards")
		case types.NeedCognitive:
			strategies = append(strategies, "single-step prompts")
		}
	}
	if len(profile.CulturalBackground) > 0 {
		strategies = append(strategies, "culturally familiar imagery")
	}
	return strategies
}
