package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aegis/internal/types"
)

func TestCreateFiltersForUser(t *testing.T) {
	profile := testProfile()
	profile.TriggerCategories = []types.TriggerCategory{types.CategoryViolence}
	profile.CulturalBackground = []string{"maori"}
	profile.AccessibilityNeeds = []types.AccessibilityNeed{types.NeedAuditory}

	filters := CreateFiltersForUser(profile)
	require.Len(t, filters, 3, "verified adult gets no age filter")

	kinds := make(map[types.FilterKind]types.ContentFilter, len(filters))
	for _, f := range filters {
		kinds[f.Kind] = f
		assert.True(t, f.Enabled)
		assert.Equal(t, profile.UserID, f.UserID)
		assert.NotEmpty(t, f.ID)
	}
	assert.Equal(t, 1, kinds[types.FilterTrauma].Priority, "trauma runs first")
	assert.Equal(t, 2, kinds[types.FilterCultural].Priority)
	assert.Equal(t, 4, kinds[types.FilterAccessibility].Priority)
}

func TestCreateFiltersForUser_AgeFilterForUnverified(t *testing.T) {
	profile := testProfile()
	profile.AgeVerified = false
	profile.VerifiedAge = 0

	filters := CreateFiltersForUser(profile)
	require.Len(t, filters, 1)
	assert.Equal(t, types.FilterAge, filters[0].Kind)
	for _, rule := range filters[0].Rules {
		assert.Equal(t, types.FilterBlock, rule.Action)
	}
}

func TestCreateFiltersForUser_EmptyProfile(t *testing.T) {
	assert.Nil(t, CreateFiltersForUser(nil))
	assert.Empty(t, CreateFiltersForUser(testProfile()))
}

func TestApplyFilters_BlockShortCircuits(t *testing.T) {
	profile := testProfile()
	profile.AgeVerified = false
	profile.VerifiedAge = 16
	profile.AccessibilityNeeds = []types.AccessibilityNeed{types.NeedAuditory}

	filters := CreateFiltersForUser(profile)
	result := ApplyFilters(filters, "sexual content with a loud bang", ContextForProfile(profile))

	assert.True(t, result.Blocked)
	assert.Equal(t, BlockedMessage, result.Content)
	assert.Equal(t, types.ActionBlock, result.Action)
	// The lower-priority accessibility filter never ran.
	assert.NotContains(t, result.Content, "[adapted]")
}

func TestApplyFilters_ConditionGatesBlock(t *testing.T) {
	profile := testProfile()
	profile.AgeVerified = false
	profile.VerifiedAge = 0
	filters := CreateFiltersForUser(profile)
	require.Len(t, filters, 1)

	// Same rule set, but the runtime context says the user is an adult: the
	// lt-18 condition no longer holds and nothing blocks.
	adultCtx := RuleContext{AgeVerified: true, VerifiedAge: 30, RiskLevel: types.RiskLow}
	result := ApplyFilters(filters, "sexual content", adultCtx)
	assert.False(t, result.Blocked)
	assert.Equal(t, "sexual content", result.Content)
}

func TestApplyFilters_RedactsTriggerKeywords(t *testing.T) {
	profile := testProfile()
	profile.TriggerCategories = []types.TriggerCategory{types.CategoryViolence}

	filters := CreateFiltersForUser(profile)
	result := ApplyFilters(filters, "a scene of violence and blood", ContextForProfile(profile))

	assert.Equal(t, types.ActionModify, result.Action)
	assert.Equal(t, "a scene of [redacted] and [redacted]", result.Content)
}

func TestApplyFilters_WarnDoesNotModify(t *testing.T) {
	profile := testProfile()
	profile.CulturalBackground = []string{"maori"}

	filters := CreateFiltersForUser(profile)
	result := ApplyFilters(filters, "a maori legend", ContextForProfile(profile))

	assert.Equal(t, types.ActionWarn, result.Action)
	assert.Equal(t, "a maori legend", result.Content)
	assert.NotEmpty(t, result.Warnings)
}

func TestApplyFilters_DisabledFilterSkipped(t *testing.T) {
	profile := testProfile()
	profile.TriggerCategories = []types.TriggerCategory{types.CategoryViolence}

	filters := CreateFiltersForUser(profile)
	for i := range filters {
		filters[i].Enabled = false
	}
	result := ApplyFilters(filters, "a scene of violence", ContextForProfile(profile))
	assert.Equal(t, types.ActionContinue, result.Action)
	assert.Equal(t, "a scene of violence", result.Content)
}

func TestConditionsHold(t *testing.T) {
	ctx := RuleContext{AgeVerified: true, VerifiedAge: 21, RiskLevel: types.RiskHigh}

	tests := []struct {
		name string
		cond types.RuleCondition
		want bool
	}{
		{"eq match", types.RuleCondition{Field: "risk_level", Operator: "eq", Value: "high"}, true},
		{"eq miss", types.RuleCondition{Field: "risk_level", Operator: "eq", Value: "low"}, false},
		{"ne", types.RuleCondition{Field: "age_verified", Operator: "ne", Value: "false"}, true},
		{"lt holds", types.RuleCondition{Field: "verified_age", Operator: "lt", Value: "30"}, true},
		{"lt fails", types.RuleCondition{Field: "verified_age", Operator: "lt", Value: "18"}, false},
		{"gte holds", types.RuleCondition{Field: "verified_age", Operator: "gte", Value: "21"}, true},
		{"unknown field fails closed", types.RuleCondition{Field: "mood", Operator: "eq", Value: "x"}, false},
		{"unknown operator fails closed", types.RuleCondition{Field: "verified_age", Operator: "near", Value: "21"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := conditionsHold([]types.RuleCondition{tc.cond}, ctx)
			assert.Equal(t, tc.want, got)
		})
	}
}
