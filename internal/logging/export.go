package logging

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"aegis/internal/types"
)

// ExportFormat selects the serialization used for compliance handoff.
type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportCSV  ExportFormat = "csv"
	ExportXML  ExportFormat = "xml"
)

// Export serializes the log entries in the window for compliance handoff.
func (l *SafetyLogger) Export(format ExportFormat, timeRange TimeRange) ([]byte, error) {
	l.mu.RLock()
	var slice []types.SafetyLogEntry
	for _, entry := range l.entries {
		if timeRange.Contains(entry.Timestamp) {
			slice = append(slice, entry)
		}
	}
	l.mu.RUnlock()

	switch format {
	case ExportJSON:
		return json.MarshalIndent(slice, "", "  ")
	case ExportCSV:
		return exportCSV(slice)
	case ExportXML:
		return exportXML(slice)
	}
	return nil, fmt.Errorf("unknown export format %q", format)
}

func exportCSV(entries []types.SafetyLogEntry) ([]byte, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write([]string{"id", "timestamp", "level", "category", "message", "user_id", "session_id"}); err != nil {
		return nil, err
	}
	for _, e := range entries {
		record := []string{
			e.ID,
			e.Timestamp.Format(time.RFC3339),
			string(e.Level),
			e.Category,
			e.Message,
			e.UserID,
			e.SessionID,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

type xmlEntry struct {
	ID        string `xml:"id,attr"`
	Timestamp string `xml:"timestamp"`
	Level     string `xml:"level"`
	Category  string `xml:"category"`
	Message   string `xml:"message"`
	UserID    string `xml:"user_id,omitempty"`
	SessionID string `xml:"session_id,omitempty"`
}

type xmlLog struct {
	XMLName xml.Name   `xml:"safety_log"`
	Entries []xmlEntry `xml:"entry"`
}

func exportXML(entries []types.SafetyLogEntry) ([]byte, error) {
	doc := xmlLog{}
	for _, e := range entries {
		doc.Entries = append(doc.Entries, xmlEntry{
			ID:        e.ID,
			Timestamp: e.Timestamp.Format(time.RFC3339),
			Level:     string(e.Level),
			Category:  e.Category,
			Message:   e.Message,
			UserID:    e.UserID,
			SessionID: e.SessionID,
		})
	}
	return xml.MarshalIndent(doc, "", "  ")
}
