// Package filter turns raw text plus session context into a ContentAnalysis,
// and builds and applies per-user filter rule sets. Analysis is layered:
// keyword scan, trauma context, cultural sensitivity, age appropriateness,
// accessibility impact, and a semantic hook. Each layer augments the previous
// one; the combined intensity is the maximum across layers and is never
// silently downgraded.
package filter

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"aegis/internal/config"
	"aegis/internal/types"
)

// Analyzer performs layered content analysis. Safe for concurrent use.
type Analyzer struct {
	cfg *config.SafetyConfiguration

	patternMu sync.Mutex
	patterns  map[string]*regexp.Regexp
}

// NewAnalyzer creates an analyzer bound to a configuration snapshot.
func NewAnalyzer(cfg *config.SafetyConfiguration) *Analyzer {
	return &Analyzer{
		cfg:      cfg,
		patterns: make(map[string]*regexp.Regexp),
	}
}

// layerResult is one layer's contribution to the combined analysis.
type layerResult struct {
	intensity  types.ContentIntensity
	warnings   []types.TriggerWarning
	flags      []types.CulturalFlag
	impacts    []types.AccessibilityImpact
	filtered   string // non-empty when the layer redacted the text
	indicators []string
	protective []string
	ageRating  types.AgeRating
}

// AnalyzeContent runs all layers over the content and combines their output.
// The returned analysis is immutable; re-analysis produces a new record.
func (a *Analyzer) AnalyzeContent(content, sessionID string, profile *types.UserSafetyProfile) (*types.ContentAnalysis, error) {
	if content == "" {
		return nil, fmt.Errorf("filter: empty content")
	}
	if profile == nil {
		return nil, fmt.Errorf("filter: nil profile")
	}

	keyword := a.keywordLayer(content)
	layers := []layerResult{
		keyword,
		a.traumaContextLayer(content, keyword.warnings),
		a.culturalLayer(content, profile),
		a.ageLayer(content, profile),
		a.accessibilityLayer(content, profile),
		a.semanticLayer(content),
	}

	analysis := &types.ContentAnalysis{
		ContentID:       uuid.NewString(),
		SessionID:       sessionID,
		OriginalContent: content,
		FilteredContent: content,
		AnalyzedAt:      time.Now(),
	}

	for _, layer := range layers {
		analysis.ContentIntensity = types.MaxIntensity(analysis.ContentIntensity, layer.intensity)
		analysis.TriggerWarnings = append(analysis.TriggerWarnings, layer.warnings...)
		analysis.CulturalFlags = append(analysis.CulturalFlags, layer.flags...)
		analysis.AccessibilityImpacts = append(analysis.AccessibilityImpacts, layer.impacts...)
		if layer.filtered != "" {
			// Later layers override earlier redactions on the same text.
			analysis.FilteredContent = layer.filtered
		}
		if layer.ageRating.MinimumAge > analysis.AgeRating.MinimumAge {
			analysis.AgeRating.MinimumAge = layer.ageRating.MinimumAge
		}
		analysis.AgeRating.Reasons = append(analysis.AgeRating.Reasons, layer.ageRating.Reasons...)
		analysis.Risk.TraumaIndicators = append(analysis.Risk.TraumaIndicators, layer.indicators...)
		analysis.Risk.ProtectiveFactors = append(analysis.Risk.ProtectiveFactors, layer.protective...)
	}

	analysis.Risk = assessRisk(analysis)
	return analysis, nil
}

// =============================================================================
// LAYER 1: KEYWORDS
// =============================================================================

func (a *Analyzer) keywordLayer(content string) layerResult {
	var res layerResult
	for _, category := range types.TriggerCategories {
		count := 0
		for _, keyword := range categoryKeywords[category] {
			count += len(a.pattern(keyword).FindAllStringIndex(content, -1))
		}
		if count == 0 {
			continue
		}

		severity := severityForMatches(count)
		res.warnings = append(res.warnings, types.TriggerWarning{
			Category:         category,
			Severity:         severity,
			MatchCount:       count,
			DurationEstimate: time.Duration(count) * 30 * time.Second,
			Description:      fmt.Sprintf("%d %s keyword matches", count, category),
		})

		boost := categoryBoost[category] + intensityForMatches(count)
		res.intensity = types.MaxIntensity(res.intensity, types.ClampIntensity(boost))
	}
	return res
}

// pattern compiles and caches a case-insensitive word-boundary regexp for a
// keyword.
func (a *Analyzer) pattern(keyword string) *regexp.Regexp {
	a.patternMu.Lock()
	defer a.patternMu.Unlock()
	if re, ok := a.patterns[keyword]; ok {
		return re
	}
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(keyword) + `\b`)
	a.patterns[keyword] = re
	return re
}

// =============================================================================
// LAYER 2: TRAUMA CONTEXT
// =============================================================================

// contextWindow is the fixed width of text extracted around a keyword match
// for trauma scoring, in bytes each side.
const contextWindow = 80

// traumaRedactThreshold triggers redaction when the trauma score exceeds it.
const traumaRedactThreshold = 0.8

func (a *Analyzer) traumaContextLayer(content string, keywordWarnings []types.TriggerWarning) layerResult {
	var res layerResult
	lower := strings.ToLower(content)
	filtered := content
	redacted := false

	for _, warning := range keywordWarnings {
		for _, keyword := range categoryKeywords[warning.Category] {
			// Match against the lowercased text so the offsets index the
			// same string the context window is cut from.
			loc := a.pattern(keyword).FindStringIndex(lower)
			if loc == nil {
				continue
			}
			window := extractWindow(lower, loc[0], loc[1])

			score := 0.0
			for _, group := range traumaContextGroups {
				for _, word := range group.Words {
					if strings.Contains(window, word) {
						score += group.Weight
						res.indicators = append(res.indicators,
							fmt.Sprintf("%s near %q", group.Label, keyword))
						break
					}
				}
			}
			if score > 1.0 {
				score = 1.0
			}

			// Mitigating factors are informational only; they never
			// reduce the score.
			for _, word := range mitigatingWords {
				if strings.Contains(window, word) {
					res.protective = append(res.protective, word)
				}
			}

			if score > traumaRedactThreshold {
				// Redact into the running text so every keyword that
				// crosses the threshold stays redacted.
				filtered = a.pattern(keyword).ReplaceAllString(filtered, "[redacted]")
				redacted = true
				res.intensity = types.MaxIntensity(res.intensity, types.IntensityVeryIntense)
			}
		}
	}
	if redacted {
		res.filtered = filtered
	}
	return res
}

func extractWindow(s string, start, end int) string {
	lo := start - contextWindow
	if lo < 0 {
		lo = 0
	}
	hi := end + contextWindow
	if hi > len(s) {
		hi = len(s)
	}
	return s[lo:hi]
}

// =============================================================================
// LAYER 3: CULTURAL SENSITIVITY
// =============================================================================

// culturalLayer checks content against the user's declared cultural contexts
// plus a general sensitivity pass. This layer is an extension point; its
// default behavior only flags, never redacts.
func (a *Analyzer) culturalLayer(content string, profile *types.UserSafetyProfile) layerResult {
	var res layerResult
	if a.cfg.CulturalSensitivity == config.SensitivityMinimal {
		return res
	}
	lower := strings.ToLower(content)

	for _, background := range profile.CulturalBackground {
		if background == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(background)) {
			res.flags = append(res.flags, types.CulturalFlag{
				Context:     background,
				Pattern:     background,
				Description: "content references a declared cultural context",
			})
		}
	}

	if a.cfg.CulturalSensitivity == config.SensitivityStrict {
		for _, pattern := range generalCulturalPatterns {
			if strings.Contains(lower, pattern) {
				res.flags = append(res.flags, types.CulturalFlag{
					Context:     "general",
					Pattern:     pattern,
					Description: "content touches culturally sensitive material",
				})
			}
		}
	}
	return res
}

// =============================================================================
// LAYER 4: AGE APPROPRIATENESS
// =============================================================================

func (a *Analyzer) ageLayer(content string, profile *types.UserSafetyProfile) layerResult {
	var res layerResult

	minimumAge := 0
	for category, threshold := range categoryMinimumAge {
		matched := false
		for _, keyword := range categoryKeywords[category] {
			if a.pattern(keyword).MatchString(content) {
				matched = true
				break
			}
		}
		if matched {
			res.ageRating.Reasons = append(res.ageRating.Reasons,
				fmt.Sprintf("%s content requires age %d", category, threshold))
			if threshold > minimumAge {
				minimumAge = threshold
			}
		}
	}
	res.ageRating.MinimumAge = minimumAge

	if minimumAge == 0 {
		return res
	}

	// An unverified user is treated as below every threshold.
	if !profile.AgeVerified || profile.VerifiedAge < minimumAge {
		res.filtered = "[content restricted: age verification required]"
		res.intensity = types.IntensityModerate
	}
	return res
}

// =============================================================================
// LAYER 5: ACCESSIBILITY IMPACT
// =============================================================================

func (a *Analyzer) accessibilityLayer(content string, profile *types.UserSafetyProfile) layerResult {
	var res layerResult
	lower := strings.ToLower(content)

	for _, need := range profile.AccessibilityNeeds {
		for _, pattern := range accessibilityPatterns[need] {
			if strings.Contains(lower, pattern) {
				res.impacts = append(res.impacts, types.AccessibilityImpact{
					Need:        need,
					Pattern:     pattern,
					Description: fmt.Sprintf("content may conflict with %s accessibility need", need),
				})
			}
		}
	}
	return res
}

// =============================================================================
// LAYER 6: SEMANTIC HOOK
// =============================================================================

// semanticLayer is the extension point for deeper NLP-based detection. The
// initial implementation is conservative: it contributes a fixed moderate
// intensity for any non-trivial content and nothing else.
func (a *Analyzer) semanticLayer(content string) layerResult {
	var res layerResult
	if len(strings.Fields(content)) >= 3 {
		res.intensity = types.IntensityModerate
	}
	return res
}

// =============================================================================
// RISK ASSESSMENT
// =============================================================================

func assessRisk(analysis *types.ContentAnalysis) types.RiskAssessment {
	risk := analysis.Risk
	risk.CategoryRisks = make(map[types.TriggerCategory]types.RiskLevel)

	worst := types.SeverityLow
	hasWarnings := false
	for _, warning := range analysis.TriggerWarnings {
		hasWarnings = true
		risk.CategoryRisks[warning.Category] = severityToRisk(warning.Severity)
		if severityRank(warning.Severity) > severityRank(worst) {
			worst = warning.Severity
		}
	}

	switch {
	case worst == types.SeverityCritical:
		risk.OverallRisk = types.RiskCritical
		risk.RecommendedActions = append(risk.RecommendedActions, types.ActionBlock)
	case worst == types.SeverityHigh:
		risk.OverallRisk = types.RiskHigh
		risk.RecommendedActions = append(risk.RecommendedActions, types.ActionPause, types.ActionWarn)
	case hasWarnings:
		risk.OverallRisk = types.RiskModerate
		risk.RecommendedActions = append(risk.RecommendedActions, types.ActionWarn)
	default:
		risk.OverallRisk = types.RiskLow
		risk.RecommendedActions = append(risk.RecommendedActions, types.ActionContinue)
	}

	if analysis.ContentIntensity >= types.IntensityVeryIntense && risk.OverallRisk == types.RiskLow {
		risk.OverallRisk = types.RiskModerate
	}
	return risk
}

func severityToRisk(s types.Severity) types.RiskLevel {
	switch s {
	case types.SeverityCritical:
		return types.RiskCritical
	case types.SeverityHigh:
		return types.RiskHigh
	case types.SeverityMedium:
		return types.RiskModerate
	}
	return types.RiskLow
}

func severityRank(s types.Severity) int {
	switch s {
	case types.SeverityLow:
		return 0
	case types.SeverityMedium:
		return 1
	case types.SeverityHigh:
		return 2
	case types.SeverityCritical:
		return 3
	}
	return -1
}
