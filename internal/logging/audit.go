package logging

import (
	"time"

	"aegis/internal/types"
)

// TargetType selects how audit filtering matches records.
type TargetType string

const (
	TargetUser    TargetType = "user"
	TargetSession TargetType = "session"
)

// Compliance is the audit verdict over a time window.
type Compliance string

const (
	ComplianceCompliant    Compliance = "compliant"
	ComplianceWarning      Compliance = "warning"
	ComplianceNonCompliant Compliance = "non_compliant"
)

// TimeRange bounds an audit or report query. A zero bound is open.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls within the range.
func (r TimeRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// AuditSummary aggregates the records in an audit trail.
type AuditSummary struct {
	TotalEntries   int
	TotalErrors    int
	ByLevel        map[types.LogLevel]int
	ByCategory     map[string]int
	EarliestRecord time.Time
	LatestRecord   time.Time
}

// AuditTrail is the assembled audit view for one target over a window.
type AuditTrail struct {
	TargetID   string
	TargetType TargetType
	Range      TimeRange
	Entries    []types.SafetyLogEntry
	Errors     []types.SafetyError
	Summary    AuditSummary
	Compliance Compliance
	Generated  time.Time
}

// GenerateAuditTrail filters stored entries and errors by target and time
// window, computes summary counts, and renders a compliance verdict.
func (l *SafetyLogger) GenerateAuditTrail(targetID string, targetType TargetType, timeRange TimeRange) *AuditTrail {
	l.mu.RLock()
	defer l.mu.RUnlock()

	trail := &AuditTrail{
		TargetID:   targetID,
		TargetType: targetType,
		Range:      timeRange,
		Generated:  l.now(),
	}
	trail.Summary.ByLevel = make(map[types.LogLevel]int)
	trail.Summary.ByCategory = make(map[string]int)

	matches := func(userID, sessionID string) bool {
		switch targetType {
		case TargetUser:
			return userID == targetID
		case TargetSession:
			return sessionID == targetID
		}
		return false
	}

	for _, entry := range l.entries {
		if !matches(entry.UserID, entry.SessionID) || !timeRange.Contains(entry.Timestamp) {
			continue
		}
		trail.Entries = append(trail.Entries, entry)
		trail.Summary.TotalEntries++
		trail.Summary.ByLevel[entry.Level]++
		trail.Summary.ByCategory[entry.Category]++
		trail.observe(entry.Timestamp)
	}
	for _, rec := range l.errors {
		if !matches(rec.UserID, rec.SessionID) || !timeRange.Contains(rec.Timestamp) {
			continue
		}
		trail.Errors = append(trail.Errors, rec)
		trail.Summary.TotalErrors++
		trail.Summary.ByCategory[string(rec.Kind)]++
		trail.observe(rec.Timestamp)
	}

	trail.Compliance = trail.verdict()
	return trail
}

func (t *AuditTrail) observe(ts time.Time) {
	if t.Summary.EarliestRecord.IsZero() || ts.Before(t.Summary.EarliestRecord) {
		t.Summary.EarliestRecord = ts
	}
	if ts.After(t.Summary.LatestRecord) {
		t.Summary.LatestRecord = ts
	}
}

// verdict: non_compliant if any critical error or event in range; warning if
// more than 5 high-severity errors; compliant otherwise.
func (t *AuditTrail) verdict() Compliance {
	highSeverity := 0
	for _, rec := range t.Errors {
		switch rec.Severity {
		case types.SeverityCritical:
			return ComplianceNonCompliant
		case types.SeverityHigh:
			highSeverity++
		}
	}
	for _, entry := range t.Entries {
		if entry.Level == types.LevelCritical {
			return ComplianceNonCompliant
		}
	}
	if highSeverity > 5 {
		return ComplianceWarning
	}
	return ComplianceCompliant
}
