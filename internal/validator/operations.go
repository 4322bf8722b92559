package validator

import "fmt"

// OperationContext carries the state an operation predicate may inspect.
// This is a closed struct rather than a free-form map so predicates stay
// exhaustive-checkable.
type OperationContext struct {
	SessionActive bool
	UserKnown     bool
	Initialized   bool
}

// OperationParams carries the per-call inputs to an operation check.
type OperationParams struct {
	UserID    string
	SessionID string
	Content   string
}

type operationRule struct {
	name  string
	check func(OperationParams, OperationContext) bool
}

// operationRules is the named rule set consulted by ValidateSafetyOperation.
var operationRules = map[string][]operationRule{
	"create_session": {
		{"framework initialized", func(p OperationParams, c OperationContext) bool { return c.Initialized }},
		{"user id present", func(p OperationParams, c OperationContext) bool { return p.UserID != "" }},
	},
	"validate_content": {
		{"framework initialized", func(p OperationParams, c OperationContext) bool { return c.Initialized }},
		{"session id present", func(p OperationParams, c OperationContext) bool { return p.SessionID != "" }},
		{"session active", func(p OperationParams, c OperationContext) bool { return c.SessionActive }},
		{"content present", func(p OperationParams, c OperationContext) bool { return p.Content != "" }},
	},
	"process_emergency": {
		{"framework initialized", func(p OperationParams, c OperationContext) bool { return c.Initialized }},
		{"session id present", func(p OperationParams, c OperationContext) bool { return p.SessionID != "" }},
	},
	"end_session": {
		{"framework initialized", func(p OperationParams, c OperationContext) bool { return c.Initialized }},
		{"session id present", func(p OperationParams, c OperationContext) bool { return p.SessionID != "" }},
		{"session active", func(p OperationParams, c OperationContext) bool { return c.SessionActive }},
	},
}

// ValidateSafetyOperation looks up the named rule set for an operation and
// evaluates each predicate. Unknown operations degrade to StatusWarning, not
// failure: the system favors availability over strict rejection for
// operations it does not recognize.
func ValidateSafetyOperation(operation string, params OperationParams, ctx OperationContext) ValidationResult {
	rules, ok := operationRules[operation]
	if !ok {
		return ValidationResult{
			Status: StatusWarning,
			Issues: []Issue{{
				Field:   "operation",
				Message: fmt.Sprintf("unrecognized operation %q", operation),
			}},
		}
	}

	var issues []Issue
	for _, rule := range rules {
		if !rule.check(params, ctx) {
			issues = append(issues, Issue{
				Field:   "operation",
				Message: fmt.Sprintf("%s: precondition failed: %s", operation, rule.name),
				Hard:    true,
			})
		}
	}
	return result(issues)
}
