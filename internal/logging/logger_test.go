package logging

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aegis/internal/config"
	"aegis/internal/types"
)

func newTestLogger() *SafetyLogger {
	return NewSafetyLogger(config.LoggingConfig{
		MaxLogEntries:    20,
		MaxErrors:        5,
		LogRetentionDays: 30,
	})
}

func TestLogSafetyEvent(t *testing.T) {
	l := newTestLogger()
	l.LogSafetyEvent(types.LevelInfo, "session", "session started", "u-1", "s-1", nil)

	logs := l.GetLogs()
	require.Len(t, logs, 1)
	assert.NotEmpty(t, logs[0].ID)
	assert.Equal(t, types.LevelInfo, logs[0].Level)
	assert.Equal(t, "u-1", logs[0].UserID)
	assert.False(t, logs[0].Timestamp.IsZero())
}

func TestOverflowEvictsOldestTenPercent(t *testing.T) {
	l := newTestLogger()
	for i := 0; i < 21; i++ {
		l.LogSafetyEvent(types.LevelInfo, "test", string(rune('a'+i)), "", "", nil)
	}

	logs := l.GetLogs()
	// 21 entries over a cap of 20 evicts 10% of the cap, oldest first.
	require.Len(t, logs, 19)
	assert.Equal(t, "c", logs[0].Message)
	assert.Equal(t, "u", logs[len(logs)-1].Message)
}

func TestErrorCapKeepsMostRecent(t *testing.T) {
	l := newTestLogger()
	for i := 0; i < 7; i++ {
		l.LogSafetyError(types.ErrSystem, types.SeverityLow, string(rune('a'+i)), "", "")
	}

	errs := l.GetErrors()
	require.Len(t, errs, 5)
	assert.Equal(t, "c", errs[0].Message)
	assert.Equal(t, "g", errs[4].Message)
}

func TestRotateDropsExpiredEntries(t *testing.T) {
	l := newTestLogger()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := base
	l.SetClock(func() time.Time { return clock })

	l.LogSafetyEvent(types.LevelInfo, "test", "old", "", "", nil)
	clock = base.AddDate(0, 0, 40)
	l.LogSafetyEvent(types.LevelInfo, "test", "fresh", "", "", nil)

	evicted := l.Rotate()
	require.Len(t, evicted, 1)
	assert.Equal(t, "old", evicted[0].Message)

	logs := l.GetLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, "fresh", logs[0].Message)
}

func TestGetLogsReturnsCopy(t *testing.T) {
	l := newTestLogger()
	l.LogSafetyEvent(types.LevelInfo, "test", "original", "", "", nil)

	logs := l.GetLogs()
	logs[0].Message = "mutated"
	assert.Equal(t, "original", l.GetLogs()[0].Message)
}

// =============================================================================
// AUDIT TRAILS
// =============================================================================

func TestGenerateAuditTrail_FiltersByTarget(t *testing.T) {
	l := newTestLogger()
	l.LogSafetyEvent(types.LevelInfo, "session", "session started", "u-1", "s-1", nil)
	l.LogSafetyEvent(types.LevelInfo, "session", "session started", "u-2", "s-2", nil)
	l.LogSafetyError(types.ErrFilter, types.SeverityLow, "filter hiccup", "u-1", "s-1")

	trail := l.GenerateAuditTrail("u-1", TargetUser, TimeRange{})
	assert.Equal(t, 1, trail.Summary.TotalEntries)
	assert.Equal(t, 1, trail.Summary.TotalErrors)
	assert.Equal(t, ComplianceCompliant, trail.Compliance)

	trail = l.GenerateAuditTrail("s-2", TargetSession, TimeRange{})
	assert.Equal(t, 1, trail.Summary.TotalEntries)
	assert.Equal(t, 0, trail.Summary.TotalErrors)
}

func TestGenerateAuditTrail_CriticalMeansNonCompliant(t *testing.T) {
	l := newTestLogger()
	l.LogSafetyError(types.ErrUserSafety, types.SeverityCritical, "boundary breached", "u-1", "s-1")

	trail := l.GenerateAuditTrail("u-1", TargetUser, TimeRange{})
	assert.Equal(t, ComplianceNonCompliant, trail.Compliance)

	// A critical log entry alone triggers the same verdict.
	l = newTestLogger()
	l.LogSafetyEvent(types.LevelCritical, "emergency", "emergency action: safe word", "u-1", "s-1", nil)
	trail = l.GenerateAuditTrail("u-1", TargetUser, TimeRange{})
	assert.Equal(t, ComplianceNonCompliant, trail.Compliance)
}

func TestGenerateAuditTrail_HighSeverityWarning(t *testing.T) {
	l := NewSafetyLogger(config.LoggingConfig{MaxLogEntries: 100, MaxErrors: 100, LogRetentionDays: 30})
	for i := 0; i < 6; i++ {
		l.LogSafetyError(types.ErrFilter, types.SeverityHigh, "repeated failure", "u-1", "s-1")
	}

	trail := l.GenerateAuditTrail("u-1", TargetUser, TimeRange{})
	assert.Equal(t, ComplianceWarning, trail.Compliance,
		"more than five high-severity errors downgrade the verdict")
}

func TestGenerateAuditTrail_TimeWindow(t *testing.T) {
	l := newTestLogger()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := base
	l.SetClock(func() time.Time { return clock })

	l.LogSafetyEvent(types.LevelInfo, "session", "session started", "u-1", "s-1", nil)
	clock = base.AddDate(0, 0, 10)
	l.LogSafetyEvent(types.LevelInfo, "session", "session ended", "u-1", "s-1", nil)

	trail := l.GenerateAuditTrail("u-1", TargetUser, TimeRange{From: base.AddDate(0, 0, 5)})
	assert.Equal(t, 1, trail.Summary.TotalEntries)
}

// =============================================================================
// REPORTS
// =============================================================================

func TestGenerateSafetyReportFromLogs(t *testing.T) {
	l := NewSafetyLogger(config.LoggingConfig{MaxLogEntries: 1000, MaxErrors: 100, LogRetentionDays: 30})

	l.SessionStarted("u-1", "s-1")
	l.SessionStarted("u-2", "s-2")
	l.SessionStarted("u-3", "s-3")
	l.SessionEnded("u-1", "s-1")
	l.SessionTerminated("u-2", "s-2", "emergency stop")
	l.EmergencyAction("u-2", "s-2", "safe word")
	l.BoundaryViolation("u-3", "s-3", types.CategoryViolence)
	l.BoundaryViolation("u-3", "s-3", types.CategoryViolence)

	report := l.GenerateSafetyReportFromLogs("weekly", TimeRange{})
	assert.Equal(t, 3, report.TotalSessions)
	assert.Equal(t, 1, report.CompletedSessions)
	assert.Equal(t, 1, report.TerminatedSessions)
	assert.Equal(t, 1, report.EmergencyActions)
	assert.Equal(t, 2, report.ViolationsByType["violence"])
	assert.Equal(t, []string{"No anomalies detected in the reporting window"}, report.Insights)
}

func TestReportInsights(t *testing.T) {
	l := NewSafetyLogger(config.LoggingConfig{MaxLogEntries: 1000, MaxErrors: 100, LogRetentionDays: 30})

	for i := 0; i < 11; i++ {
		l.EmergencyAction("u-1", "s-1", "safe word")
	}
	l.SessionStarted("u-1", "s-1")
	l.SessionTerminated("u-1", "s-1", "emergency stop")
	for i := 0; i < 5; i++ {
		l.BoundaryViolation("u-1", "s-1", types.CategoryTrauma)
	}

	report := l.GenerateSafetyReportFromLogs("weekly", TimeRange{})

	joined := strings.Join(report.Insights, "; ")
	assert.Contains(t, joined, "High Emergency Rate")
	assert.Contains(t, joined, "Elevated Termination Rate")
	assert.Contains(t, joined, "Dominant Violation Category: trauma")
}

// =============================================================================
// EXPORT
// =============================================================================

func TestExportFormats(t *testing.T) {
	l := newTestLogger()
	l.LogSafetyEvent(types.LevelInfo, "session", "session started", "u-1", "s-1", nil)
	l.LogSafetyEvent(types.LevelWarning, "boundary", "boundary violation", "u-1", "s-1", nil)

	data, err := l.Export(ExportJSON, TimeRange{})
	require.NoError(t, err)
	var decoded []types.SafetyLogEntry
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 2)

	data, err = l.Export(ExportCSV, TimeRange{})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 3, "header plus two records")
	assert.True(t, strings.HasPrefix(lines[0], "id,timestamp,level"))

	data, err = l.Export(ExportXML, TimeRange{})
	require.NoError(t, err)
	assert.Contains(t, string(data), "<safety_log>")
	assert.Contains(t, string(data), "boundary violation")

	_, err = l.Export("yaml", TimeRange{})
	assert.Error(t, err)
}

func TestRotationRestartsAfterStop(t *testing.T) {
	l := newTestLogger()

	l.StartRotation(nil)
	l.StopRotation()
	l.StopRotation()
	l.StartRotation(nil)

	l.mu.RLock()
	restarted := l.rotateTicker != nil
	l.mu.RUnlock()
	assert.True(t, restarted, "a stopped tick can be started again")

	l.StopRotation()
}
