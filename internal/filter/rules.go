package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"aegis/internal/types"
)

// BlockedMessage is the fixed text returned when a block rule fires.
const BlockedMessage = "[content blocked by safety filter]"

// Filter priorities. Filters are applied in ascending order, so trauma runs
// first.
const (
	priorityTrauma        = 1
	priorityCultural      = 2
	priorityAge           = 3
	priorityAccessibility = 4
)

// RuleContext carries the user state rule conditions may inspect. A closed
// struct keeps condition evaluation exhaustive-checkable.
type RuleContext struct {
	AgeVerified bool
	VerifiedAge int
	RiskLevel   types.RiskLevel
}

// ContextForProfile derives a rule context from a profile.
func ContextForProfile(profile *types.UserSafetyProfile) RuleContext {
	return RuleContext{
		AgeVerified: profile.AgeVerified,
		VerifiedAge: profile.VerifiedAge,
		RiskLevel:   profile.RiskLevel,
	}
}

// ApplyResult reports what filtering did to a piece of content.
type ApplyResult struct {
	Content  string
	Action   types.SafetyAction
	Blocked  bool
	Warnings []string
}

// CreateFiltersForUser builds at most one filter per concern, only when the
// profile has relevant data. Trauma carries the highest priority.
func CreateFiltersForUser(profile *types.UserSafetyProfile) []types.ContentFilter {
	if profile == nil {
		return nil
	}
	var filters []types.ContentFilter

	if len(profile.TriggerCategories) > 0 {
		var rules []types.FilterRule
		for _, category := range profile.TriggerCategories {
			for _, keyword := range categoryKeywords[category] {
				rules = append(rules, types.FilterRule{
					Pattern:     keyword,
					Action:      types.FilterFilter,
					Replacement: "[redacted]",
				})
			}
		}
		filters = append(filters, types.ContentFilter{
			ID:       uuid.NewString(),
			UserID:   profile.UserID,
			Kind:     types.FilterTrauma,
			Priority: priorityTrauma,
			Rules:    rules,
			Enabled:  true,
		})
	}

	if len(profile.CulturalBackground) > 0 {
		var rules []types.FilterRule
		for _, background := range profile.CulturalBackground {
			rules = append(rules, types.FilterRule{
				Pattern: background,
				Action:  types.FilterWarn,
			})
		}
		filters = append(filters, types.ContentFilter{
			ID:       uuid.NewString(),
			UserID:   profile.UserID,
			Kind:     types.FilterCultural,
			Priority: priorityCultural,
			Rules:    rules,
			Enabled:  true,
		})
	}

	// Age filter blocks adult material for users not verified as adults.
	// Only built when the profile is potentially underage.
	if !profile.AgeVerified || profile.VerifiedAge < 18 {
		var ageRules []types.FilterRule
		for _, keyword := range categoryKeywords[types.CategorySexualContent] {
			ageRules = append(ageRules, types.FilterRule{
				Pattern: keyword,
				Action:  types.FilterBlock,
				Conditions: []types.RuleCondition{
					{Field: "verified_age", Operator: "lt", Value: "18"},
				},
			})
		}
		filters = append(filters, types.ContentFilter{
			ID:       uuid.NewString(),
			UserID:   profile.UserID,
			Kind:     types.FilterAge,
			Priority: priorityAge,
			Rules:    ageRules,
			Enabled:  true,
		})
	}

	if len(profile.AccessibilityNeeds) > 0 {
		var rules []types.FilterRule
		for _, need := range profile.AccessibilityNeeds {
			for _, pattern := range accessibilityPatterns[need] {
				rules = append(rules, types.FilterRule{
					Pattern:     pattern,
					Action:      types.FilterReplace,
					Replacement: "[adapted]",
				})
			}
		}
		filters = append(filters, types.ContentFilter{
			ID:       uuid.NewString(),
			UserID:   profile.UserID,
			Kind:     types.FilterAccessibility,
			Priority: priorityAccessibility,
			Rules:    rules,
			Enabled:  true,
		})
	}

	return filters
}

// ApplyFilters runs the filter sets over content in ascending priority
// order. A block action short-circuits all remaining filters and returns the
// fixed block message.
func ApplyFilters(filters []types.ContentFilter, content string, ctx RuleContext) ApplyResult {
	ordered := make([]types.ContentFilter, len(filters))
	copy(ordered, filters)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j].Priority < ordered[j-1].Priority; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}

	result := ApplyResult{Content: content, Action: types.ActionContinue}
	for _, f := range ordered {
		if !f.Enabled {
			continue
		}
		for _, rule := range f.Rules {
			if !conditionsHold(rule.Conditions, ctx) {
				continue
			}
			re, err := rulePattern(rule.Pattern)
			if err != nil || !re.MatchString(result.Content) {
				continue
			}
			switch rule.Action {
			case types.FilterBlock:
				return ApplyResult{
					Content: BlockedMessage,
					Action:  types.ActionBlock,
					Blocked: true,
				}
			case types.FilterWarn:
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("%s filter matched %q", f.Kind, rule.Pattern))
				if result.Action == types.ActionContinue {
					result.Action = types.ActionWarn
				}
			case types.FilterFilter:
				replacement := rule.Replacement
				if replacement == "" {
					replacement = "[redacted]"
				}
				result.Content = re.ReplaceAllString(result.Content, replacement)
				result.Action = types.ActionModify
			case types.FilterReplace:
				result.Content = re.ReplaceAllString(result.Content, rule.Replacement)
				result.Action = types.ActionModify
			}
		}
	}
	return result
}

var rulePatternCache = struct {
	mu sync.Mutex
	m  map[string]*regexp.Regexp
}{m: make(map[string]*regexp.Regexp)}

func rulePattern(pattern string) (*regexp.Regexp, error) {
	rulePatternCache.mu.Lock()
	defer rulePatternCache.mu.Unlock()
	if re, ok := rulePatternCache.m[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(pattern) + `\b`)
	if err != nil {
		return nil, err
	}
	rulePatternCache.m[pattern] = re
	return re, nil
}

// conditionsHold evaluates the rule's conditions against the context. All
// conditions must hold; an unknown field or operator fails closed.
func conditionsHold(conditions []types.RuleCondition, ctx RuleContext) bool {
	for _, cond := range conditions {
		var actual string
		switch cond.Field {
		case "age_verified":
			actual = strconv.FormatBool(ctx.AgeVerified)
		case "verified_age":
			actual = strconv.Itoa(ctx.VerifiedAge)
		case "risk_level":
			actual = string(ctx.RiskLevel)
		default:
			return false
		}

		switch cond.Operator {
		case "eq":
			if actual != cond.Value {
				return false
			}
		case "ne":
			if actual == cond.Value {
				return false
			}
		case "lt", "gte":
			a, errA := strconv.Atoi(actual)
			b, errB := strconv.Atoi(cond.Value)
			if errA != nil || errB != nil {
				return false
			}
			if cond.Operator == "lt" && !(a < b) {
				return false
			}
			if cond.Operator == "gte" && !(a >= b) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// describeFilter is used by logging and the CLI.
func describeFilter(f types.ContentFilter) string {
	return fmt.Sprintf("%s(priority=%d, rules=%d)", f.Kind, f.Priority, len(f.Rules))
}

// DescribeFilters renders a short human-readable summary of a filter set.
func DescribeFilters(filters []types.ContentFilter) string {
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		parts = append(parts, describeFilter(f))
	}
	return strings.Join(parts, ", ")
}
