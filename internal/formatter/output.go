package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/rahul4469/gitgrade/internal/analysis"
)

// Formats lists the accepted output formats.
var Formats = []string{"human", "json", "yaml"}

const barSlots = 20

// DisplayReport writes the report to w in the given format.
func DisplayReport(w io.Writer, report *analysis.Report, format string) error {
	switch format {
	case "json":
		return displayJSON(w, report)
	case "yaml":
		return displayYAML(w, report)
	case "human", "":
		displayHuman(w, report)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (use %s)", format, strings.Join(Formats, ", "))
	}
}

func displayJSON(w io.Writer, report *analysis.Report) error {
	output, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(output))
	return nil
}

func displayYAML(w io.Writer, report *analysis.Report) error {
	output, err := yaml.Marshal(report)
	if err != nil {
		return err
	}
	fmt.Fprint(w, string(output))
	return nil
}

func displayHuman(w io.Writer, report *analysis.Report) {
	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	white := color.New(color.FgWhite, color.Bold)

	fmt.Fprintln(w)
	bold.Fprintf(w, "📦 %s\n", report.RepositoryName)
	scoreColor(report.Score).Fprintf(w, "   Score: %d/100", report.Score)
	fmt.Fprint(w, "  ")
	levelColor(report.Level).Fprintf(w, "[%s]\n\n", report.Level)

	fmt.Fprintln(w, wrapText(report.Summary, 80, "   "))
	fmt.Fprintln(w)

	cyan.Fprintln(w, "📊 BREAKDOWN:")
	for _, dim := range report.Breakdown.Dimensions() {
		note := ""
		if !dim.Scored {
			note = color.HiBlackString(" (not scored)")
		}
		fmt.Fprintf(w, "   %-18s %s %3d%s\n", dim.Label, bar(dim.Score), dim.Score, note)
	}
	fmt.Fprintln(w)

	yellow.Fprintln(w, "🚀 ROADMAP:")
	if len(report.Roadmap) == 0 {
		fmt.Fprintln(w, "   Nothing to do.")
	}
	for i, step := range report.Roadmap {
		fmt.Fprintf(w, "   %d. %s\n", i+1, step)
	}
	fmt.Fprintln(w)

	if len(report.Checklist) > 0 {
		green.Fprintln(w, "✅ CHECKLIST:")
		for _, item := range report.Checklist {
			mark := color.RedString("✗")
			if item.Passed() {
				mark = color.GreenString("✓")
			}
			fmt.Fprintf(w, "   %s %s\n", mark, item.Item)
		}
		fmt.Fprintln(w)
	}

	if len(report.Tips) > 0 {
		cyan.Fprintln(w, "💡 TIPS:")
		for _, tip := range report.Tips {
			fmt.Fprintf(w, "   • %s\n", tip)
		}
		fmt.Fprintln(w)
	}

	if report.DetailedReport != "" {
		white.Fprintln(w, "📄 DETAILED REPORT:")
		fmt.Fprintln(w, wrapText(report.DetailedReport, 80, "   "))
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, strings.Repeat("─", 80))
	fmt.Fprintf(w, "💡 %s\n", color.HiBlackString("Run with -o json or -o yaml for machine-readable output"))
}

// bar draws a fixed-width gauge; scores outside 0..100 are clamped.
func bar(score int) string {
	score = max(0, min(100, score))
	filled := score * barSlots / 100
	return scoreColor(score).Sprint(strings.Repeat("█", filled)) + color.HiBlackString(strings.Repeat("░", barSlots-filled))
}

func scoreColor(score int) *color.Color {
	switch {
	case score >= 80:
		return color.New(color.FgGreen, color.Bold)
	case score >= 60:
		return color.New(color.FgCyan, color.Bold)
	case score >= 40:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

func levelColor(level analysis.Level) *color.Color {
	switch level {
	case analysis.LevelElite:
		return color.New(color.FgMagenta, color.Bold)
	case analysis.LevelAdvanced:
		return color.New(color.FgGreen)
	case analysis.LevelIntermediate:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgYellow)
	}
}

func wrapText(text string, width int, indent string) string {
	var result strings.Builder
	lines := strings.Split(text, "\n")

	for _, line := range lines {
		words := strings.Fields(line)
		if len(words) == 0 {
			result.WriteString("\n")
			continue
		}

		currentLine := indent
		for _, word := range words {
			if len(currentLine)+len(word)+1 > width {
				result.WriteString(currentLine + "\n")
				currentLine = indent + word
			} else if currentLine == indent {
				currentLine += word
			} else {
				currentLine += " " + word
			}
		}

		if currentLine != indent {
			result.WriteString(currentLine + "\n")
		}
	}

	return strings.TrimSuffix(result.String(), "\n")
}
