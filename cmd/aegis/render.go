package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"aegis/internal/logging"
	"aegis/internal/types"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	critStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

func printAnalysis(analysis *types.ContentAnalysis) {
	fmt.Println(titleStyle.Render("Content Analysis"))
	fmt.Printf("  intensity: %s\n", styleIntensity(analysis.ContentIntensity))
	fmt.Printf("  overall risk: %s\n", string(analysis.Risk.OverallRisk))
	if analysis.AgeRating.MinimumAge > 0 {
		fmt.Printf("  minimum age: %d\n", analysis.AgeRating.MinimumAge)
	}

	if len(analysis.TriggerWarnings) > 0 {
		fmt.Println(titleStyle.Render("Trigger Warnings"))
		for _, w := range analysis.TriggerWarnings {
			line := fmt.Sprintf("  %-16s %s (%d matches)", w.Category, w.Severity, w.MatchCount)
			if w.Severity == types.SeverityCritical {
				line = critStyle.Render(line)
			} else if w.Severity == types.SeverityHigh {
				line = warnStyle.Render(line)
			}
			fmt.Println(line)
		}
	}

	if analysis.FilteredContent != analysis.OriginalContent {
		fmt.Println(titleStyle.Render("Filtered Content"))
		fmt.Println("  " + analysis.FilteredContent)
	}

	if len(analysis.Risk.RecommendedActions) > 0 {
		actions := make([]string, len(analysis.Risk.RecommendedActions))
		for i, a := range analysis.Risk.RecommendedActions {
			actions[i] = string(a)
		}
		fmt.Println(dimStyle.Render("  recommended: " + strings.Join(actions, ", ")))
	}
}

func styleIntensity(i types.ContentIntensity) string {
	s := i.String()
	if i >= types.IntensityVeryIntense {
		return critStyle.Render(s)
	}
	if i >= types.IntensityIntense {
		return warnStyle.Render(s)
	}
	return s
}

func printReport(report *logging.SafetyReport) {
	fmt.Println(titleStyle.Render("Safety Report: " + report.ReportType))
	fmt.Printf("  sessions: %d total, %d completed, %d terminated\n",
		report.TotalSessions, report.CompletedSessions, report.TerminatedSessions)
	fmt.Printf("  emergency actions: %d\n", report.EmergencyActions)
	if len(report.ViolationsByType) > 0 {
		fmt.Println("  violations:")
		for vtype, n := range report.ViolationsByType {
			fmt.Printf("    %-16s %d\n", vtype, n)
		}
	}
	fmt.Println(titleStyle.Render("Insights"))
	for _, insight := range report.Insights {
		fmt.Println("  - " + insight)
	}
}
