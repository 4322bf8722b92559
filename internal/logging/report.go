package logging

import (
	"strings"
	"time"

	"aegis/internal/types"
)

// SafetyReport aggregates session, emergency, and violation activity over a
// window, with qualitative insights derived from the counts.
type SafetyReport struct {
	ReportType         string         `json:"report_type"`
	Range              TimeRange      `json:"-"`
	TotalSessions      int            `json:"total_sessions"`
	CompletedSessions  int            `json:"completed_sessions"`
	TerminatedSessions int            `json:"terminated_sessions"`
	EmergencyActions   int            `json:"emergency_actions"`
	ViolationsByType   map[string]int `json:"violations_by_type"`
	Insights           []string       `json:"insights"`
	Generated          time.Time      `json:"generated"`
}

// Log message markers the report counts against. The logger is the source of
// truth for session history, so reporting matches on the messages the
// framework writes rather than on live session state.
const (
	msgSessionStarted    = "session started"
	msgSessionEnded      = "session ended"
	msgSessionTerminated = "session terminated"
	msgEmergencyAction   = "emergency action"
	msgViolation         = "boundary violation"
)

// GenerateSafetyReportFromLogs walks the stored entries in the window and
// aggregates session counts, emergency actions, and violations by type.
func (l *SafetyLogger) GenerateSafetyReportFromLogs(reportType string, timeRange TimeRange) *SafetyReport {
	l.mu.RLock()
	defer l.mu.RUnlock()

	report := &SafetyReport{
		ReportType:       reportType,
		Range:            timeRange,
		ViolationsByType: make(map[string]int),
		Generated:        l.now(),
	}

	for _, entry := range l.entries {
		if !timeRange.Contains(entry.Timestamp) {
			continue
		}
		msg := strings.ToLower(entry.Message)
		switch {
		case strings.Contains(msg, msgSessionStarted):
			report.TotalSessions++
		case strings.Contains(msg, msgSessionTerminated):
			report.TerminatedSessions++
		case strings.Contains(msg, msgSessionEnded):
			report.CompletedSessions++
		case strings.Contains(msg, msgEmergencyAction):
			report.EmergencyActions++
		case strings.Contains(msg, msgViolation):
			vtype := "unknown"
			if entry.Fields != nil {
				if cat, ok := entry.Fields["category"].(string); ok && cat != "" {
					vtype = cat
				}
			}
			report.ViolationsByType[vtype]++
		}
	}

	report.Insights = deriveInsights(report)
	return report
}

func deriveInsights(r *SafetyReport) []string {
	var insights []string
	if r.EmergencyActions > 10 {
		insights = append(insights, "High Emergency Rate: emergency actions exceed 10 in the reporting window")
	}
	if r.TotalSessions > 0 && r.TerminatedSessions*2 > r.TotalSessions {
		insights = append(insights, "Elevated Termination Rate: more than half of sessions ended by termination")
	}
	totalViolations := 0
	worstCategory := ""
	worstCount := 0
	for cat, n := range r.ViolationsByType {
		totalViolations += n
		if n > worstCount {
			worstCount = n
			worstCategory = cat
		}
	}
	if totalViolations > 20 {
		insights = append(insights, "High Violation Volume: boundary violations exceed 20 in the reporting window")
	}
	if worstCount >= 5 {
		insights = append(insights, "Dominant Violation Category: "+worstCategory)
	}
	if len(insights) == 0 {
		insights = append(insights, "No anomalies detected in the reporting window")
	}
	return insights
}

// Event helpers used by the framework so report matching stays in one place.

// SessionStarted records the start of a session.
func (l *SafetyLogger) SessionStarted(userID, sessionID string) {
	l.LogSafetyEvent(types.LevelInfo, "session", "session started", userID, sessionID, nil)
}

// SessionEnded records a normal session end.
func (l *SafetyLogger) SessionEnded(userID, sessionID string) {
	l.LogSafetyEvent(types.LevelInfo, "session", "session ended", userID, sessionID, nil)
}

// SessionTerminated records an emergency session termination.
func (l *SafetyLogger) SessionTerminated(userID, sessionID, reason string) {
	l.LogSafetyEvent(types.LevelWarning, "session", "session terminated: "+reason, userID, sessionID, nil)
}

// EmergencyAction records an emergency intervention.
func (l *SafetyLogger) EmergencyAction(userID, sessionID, trigger string) {
	l.LogSafetyEvent(types.LevelCritical, "emergency", "emergency action: "+trigger, userID, sessionID, nil)
}

// BoundaryViolation records a boundary crossing.
func (l *SafetyLogger) BoundaryViolation(userID, sessionID string, category types.TriggerCategory) {
	l.LogSafetyEvent(types.LevelWarning, "boundary", "boundary violation", userID, sessionID,
		map[string]any{"category": string(category)})
}

// ContentAnalyzed records a completed content analysis.
func (l *SafetyLogger) ContentAnalyzed(userID, sessionID, contentID string, intensity types.ContentIntensity, warnings int) {
	l.LogSafetyEvent(types.LevelInfo, "filter", "content analyzed", userID, sessionID, map[string]any{
		"content_id": contentID,
		"intensity":  intensity.String(),
		"warnings":   warnings,
	})
}
