package filter

import (
	"aegis/internal/types"
)

// =============================================================================
// STATIC KEYWORD TABLES
// =============================================================================

// categoryKeywords is the static category -> keyword table scanned by the
// keyword layer. Matching is case-insensitive on word boundaries.
var categoryKeywords = map[types.TriggerCategory][]string{
	types.CategoryViolence: {
		"violence", "violent", "attack", "assault", "fight", "blood",
		"weapon", "gun", "knife", "murder", "kill", "beating",
	},
	types.CategorySexualContent: {
		"sexual", "explicit", "nude", "nudity", "erotic", "intimate",
	},
	types.CategoryTrauma: {
		"trauma", "traumatic", "abuse", "abused", "assaulted", "victim",
		"flashback", "ptsd", "nightmare",
	},
	types.CategorySubstanceUse: {
		"drug", "drugs", "alcohol", "drunk", "overdose", "addiction",
		"substance", "intoxicated",
	},
	types.CategoryMentalHealth: {
		"suicide", "suicidal", "self-harm", "depression", "depressed",
		"anxiety", "panic", "breakdown",
	},
	types.CategoryDeathLoss: {
		"death", "dead", "dying", "funeral", "grief", "loss", "mourning",
		"deceased",
	},
}

// categoryBoost is the category-specific intensity boost applied by the
// keyword layer when a category matches at all.
var categoryBoost = map[types.TriggerCategory]types.ContentIntensity{
	types.CategoryViolence:      2,
	types.CategorySexualContent: 2,
	types.CategoryTrauma:        3,
	types.CategorySubstanceUse:  1,
	types.CategoryMentalHealth:  3,
	types.CategoryDeathLoss:     1,
}

// severityForMatches is the step function mapping match count to warning
// severity.
func severityForMatches(count int) types.Severity {
	switch {
	case count >= 5:
		return types.SeverityCritical
	case count >= 3:
		return types.SeverityHigh
	case count >= 2:
		return types.SeverityMedium
	default:
		return types.SeverityLow
	}
}

// intensityForMatches converts a match count into an additional intensity
// contribution: one level per two matches beyond the first.
func intensityForMatches(count int) types.ContentIntensity {
	if count <= 1 {
		return 0
	}
	return types.ContentIntensity(count / 2)
}

// Age thresholds by category. The age layer takes the maximum across
// matched categories.
var categoryMinimumAge = map[types.TriggerCategory]int{
	types.CategoryViolence:      13,
	types.CategorySexualContent: 18,
	types.CategorySubstanceUse:  16,
}

// Trauma-context scoring vocabulary. Each group present in the context
// window adds its weight to the trauma score, capped at 1.0.
var traumaContextGroups = []struct {
	Label  string
	Words  []string
	Weight float64
}{
	{"graphic detail", []string{"graphic", "detailed", "vivid", "explicit"}, 0.3},
	{"personal experience", []string{"personal", "experience", "happened to me", "my own"}, 0.25},
	{"violent abuse", []string{"violent", "abuse", "beaten", "hurt"}, 0.3},
	{"childhood trauma", []string{"childhood", "trauma", "young", "child"}, 0.25},
}

// Mitigating vocabulary. Presence is recorded as a protective factor but
// does not reduce the trauma score; the score stays conservative.
var mitigatingWords = []string{
	"healing", "recovery", "therapy", "therapist", "fiction", "fictional", "support",
}

// Accessibility trigger patterns per declared need.
var accessibilityPatterns = map[types.AccessibilityNeed][]string{
	types.NeedVisual:    {"flashing", "flash", "bright", "strobe"},
	types.NeedAuditory:  {"loud", "sudden", "scream", "bang"},
	types.NeedCognitive: {"complex", "fast-paced", "rapid", "overwhelming"},
}

// General cultural-sensitivity vocabulary consulted in addition to the
// user's declared contexts. Kept deliberately small; this layer is an
// extension point with a conservative default.
var generalCulturalPatterns = []string{
	"sacred", "ritual", "ancestral", "indigenous",
}
