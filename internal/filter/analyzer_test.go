package filter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aegis/internal/config"
	"aegis/internal/types"
)

func testProfile() *types.UserSafetyProfile {
	return &types.UserSafetyProfile{
		UserID:    "user-1",
		RiskLevel: types.RiskModerate,
		Intensity: types.IntensityPreferences{
			Maximum:   types.IntensityIntense,
			Preferred: types.IntensityModerate,
		},
		AgeVerified: true,
		VerifiedAge: 25,
	}
}

func TestAnalyzeContent_RepeatedKeywordEscalates(t *testing.T) {
	a := NewAnalyzer(config.DefaultConfiguration())
	content := "violence violence violence violence violence"

	analysis, err := a.AnalyzeContent(content, "session-1", testProfile())
	require.NoError(t, err)

	require.Len(t, analysis.TriggerWarnings, 1,
		"repeated matches in one category must collapse into one warning")
	warning := analysis.TriggerWarnings[0]
	assert.Equal(t, types.CategoryViolence, warning.Category)
	assert.Equal(t, types.SeverityCritical, warning.Severity)
	assert.Equal(t, 5, warning.MatchCount)

	assert.Equal(t, types.RiskCritical, analysis.Risk.OverallRisk)
	assert.Contains(t, analysis.Risk.RecommendedActions, types.ActionBlock)
	assert.Equal(t, types.IntensityVeryIntense, analysis.ContentIntensity)
}

func TestAnalyzeContent_SeveritySteps(t *testing.T) {
	a := NewAnalyzer(config.DefaultConfiguration())

	tests := []struct {
		content string
		want    types.Severity
	}{
		{"a knife", types.SeverityLow},
		{"a knife and a gun", types.SeverityMedium},
		{"a knife, a gun, and blood", types.SeverityHigh},
	}
	for _, tc := range tests {
		analysis, err := a.AnalyzeContent(tc.content, "session-1", testProfile())
		require.NoError(t, err)
		require.Len(t, analysis.TriggerWarnings, 1)
		assert.Equal(t, tc.want, analysis.TriggerWarnings[0].Severity, "content %q", tc.content)
	}
}

func TestAnalyzeContent_TraumaRedaction(t *testing.T) {
	a := NewAnalyzer(config.DefaultConfiguration())
	content := "a graphic and detailed account of childhood abuse"

	analysis, err := a.AnalyzeContent(content, "session-1", testProfile())
	require.NoError(t, err)

	assert.NotEqual(t, content, analysis.FilteredContent)
	assert.Contains(t, analysis.FilteredContent, "[redacted]")
	assert.NotContains(t, analysis.FilteredContent, "abuse")
	assert.Equal(t, content, analysis.OriginalContent, "original text is never mutated")
	assert.Equal(t, types.IntensityVeryIntense, analysis.ContentIntensity)
	assert.NotEmpty(t, analysis.Risk.TraumaIndicators)
}

func TestAnalyzeContent_TraumaRedactionCoversEveryKeyword(t *testing.T) {
	a := NewAnalyzer(config.DefaultConfiguration())
	content := "a graphic and detailed story of violent childhood abuse and the nightmare that followed"

	analysis, err := a.AnalyzeContent(content, "session-1", testProfile())
	require.NoError(t, err)

	assert.Equal(t,
		"a graphic and detailed story of [redacted] childhood [redacted] and the [redacted] that followed",
		analysis.FilteredContent,
		"each keyword over the threshold must stay redacted, not just the last one")
	assert.NotContains(t, analysis.FilteredContent, "abuse")
	assert.NotContains(t, analysis.FilteredContent, "nightmare")
	assert.Equal(t, content, analysis.OriginalContent)
}

func TestAnalyzeContent_TraumaWindowHandlesMultibyteText(t *testing.T) {
	a := NewAnalyzer(config.DefaultConfiguration())
	// "İ" lowercases to a longer byte sequence, so the lowercased text and
	// the original disagree on byte offsets past the prefix.
	content := strings.Repeat("İ", 100) + " abuse happened, a graphic detailed childhood account"

	analysis, err := a.AnalyzeContent(content, "session-1", testProfile())
	require.NoError(t, err)

	assert.Contains(t, analysis.FilteredContent, "[redacted]")
	assert.NotContains(t, analysis.FilteredContent, "abuse",
		"context scoring must read the text around the keyword, not a drifted window")
}

func TestAnalyzeContent_MitigatingFactorsAreInformationalOnly(t *testing.T) {
	a := NewAnalyzer(config.DefaultConfiguration())
	content := "talking about trauma in therapy supports healing"

	analysis, err := a.AnalyzeContent(content, "session-1", testProfile())
	require.NoError(t, err)

	// Protective factors are recorded but the text stays intact: the score
	// is never reduced by mitigating vocabulary.
	assert.Contains(t, analysis.Risk.ProtectiveFactors, "therapy")
	assert.Equal(t, content, analysis.FilteredContent)
}

func TestAnalyzeContent_AgeRestriction(t *testing.T) {
	a := NewAnalyzer(config.DefaultConfiguration())
	content := "explicit sexual material"

	minor := testProfile()
	minor.AgeVerified = false
	minor.VerifiedAge = 0

	analysis, err := a.AnalyzeContent(content, "session-1", minor)
	require.NoError(t, err)

	assert.Equal(t, 18, analysis.AgeRating.MinimumAge)
	assert.True(t, strings.HasPrefix(analysis.FilteredContent, "[content restricted"),
		"unverified users are treated as below every age threshold, got %q", analysis.FilteredContent)

	adult := testProfile()
	analysis, err = a.AnalyzeContent(content, "session-1", adult)
	require.NoError(t, err)
	assert.Equal(t, content, analysis.FilteredContent)
}

func TestAnalyzeContent_AccessibilityImpacts(t *testing.T) {
	a := NewAnalyzer(config.DefaultConfiguration())
	profile := testProfile()
	profile.AccessibilityNeeds = []types.AccessibilityNeed{types.NeedVisual}

	analysis, err := a.AnalyzeContent("a bright flashing sequence", "session-1", profile)
	require.NoError(t, err)

	require.NotEmpty(t, analysis.AccessibilityImpacts)
	for _, impact := range analysis.AccessibilityImpacts {
		assert.Equal(t, types.NeedVisual, impact.Need)
	}
}

func TestAnalyzeContent_CulturalFlags(t *testing.T) {
	cfg := config.DefaultConfiguration()
	cfg.CulturalSensitivity = config.SensitivityStrict
	a := NewAnalyzer(cfg)

	profile := testProfile()
	profile.CulturalBackground = []string{"maori"}

	analysis, err := a.AnalyzeContent("a sacred maori ritual", "session-1", profile)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(analysis.CulturalFlags), 2,
		"expected declared-context and general flags")

	// Minimal sensitivity disables the layer entirely.
	cfg = config.DefaultConfiguration()
	cfg.CulturalSensitivity = config.SensitivityMinimal
	a = NewAnalyzer(cfg)
	analysis, err = a.AnalyzeContent("a sacred maori ritual", "session-1", profile)
	require.NoError(t, err)
	assert.Empty(t, analysis.CulturalFlags)
}

func TestAnalyzeContent_CleanContent(t *testing.T) {
	a := NewAnalyzer(config.DefaultConfiguration())

	analysis, err := a.AnalyzeContent("a quiet walk in the park", "session-1", testProfile())
	require.NoError(t, err)

	assert.Empty(t, analysis.TriggerWarnings)
	assert.Equal(t, types.RiskLow, analysis.Risk.OverallRisk)
	assert.Contains(t, analysis.Risk.RecommendedActions, types.ActionContinue)
	assert.Equal(t, "a quiet walk in the park", analysis.FilteredContent)
}

func TestAnalyzeContent_InputErrors(t *testing.T) {
	a := NewAnalyzer(config.DefaultConfiguration())

	_, err := a.AnalyzeContent("", "session-1", testProfile())
	assert.Error(t, err)

	_, err = a.AnalyzeContent("hello", "session-1", nil)
	assert.Error(t, err)
}
