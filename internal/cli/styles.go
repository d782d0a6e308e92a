package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ironsheep/inertia-heatmap/internal/session"
)

// Color palette
var (
	primaryColor   = HeatRed
	accentColor    = HeatYellow
	successColor   = HeatGreen
	mutedColor     = SlateGray
	highlightColor = HeatYellow
	textColor      = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor).
			MarginTop(1).
			MarginBottom(1)

	SuccessStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(successColor)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	HighlightStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(highlightColor)

	KeyStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	ValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(HeatBlue).
			Padding(1, 2).
			MarginTop(1).
			MarginBottom(1)
)

const (
	appName    = "Inertia Heatmap"
	appTagline = "Find the visually quiet regions of an image."
)

// PrintBanner prints the application banner
func PrintBanner() {
	fmt.Println(TitleStyle.Render(appName))
	fmt.Println(SubtitleStyle.Render(appTagline))
	fmt.Println()
}

// PrintVersion prints version information
func PrintVersion(version string) {
	fmt.Println(TitleStyle.Render(appName))
	fmt.Printf("%s %s\n", KeyStyle.Render("Version:"), ValueStyle.Render(version))
	fmt.Println()
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("Error:"), message)
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", HighlightStyle.Render("Warning:"), message)
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("%s %s\n", SuccessStyle.Render("✓"), message)
}

// PrintInfo prints an informational message
func PrintInfo(key, value string) {
	fmt.Printf("%s %s\n", KeyStyle.Render(key+":"), ValueStyle.Render(value))
}

// StatusStyle colours a run state the way the web front-end does: failures
// red, work in progress yellow, completion green.
func StatusStyle(state session.State) lipgloss.Style {
	switch state {
	case session.StateFailed:
		return ErrorStyle
	case session.StateAnalyzing:
		return HighlightStyle
	case session.StateCompleted:
		return SuccessStyle
	default:
		return KeyStyle
	}
}

// FormatStatus renders a status line.
func FormatStatus(st session.Status) string {
	return fmt.Sprintf("%s %s", StatusStyle(st.State).Render(string(st.State)), st.Message)
}

// PrintStatus prints the status line to stderr.
func PrintStatus(st session.Status) {
	fmt.Fprintln(os.Stderr, FormatStatus(st))
}

// FormatDuration formats a duration nicely
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.0fms", d.Seconds()*1000)
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// FormatSummary renders the key facts of a finished run. output is the PNG
// path, or empty when no overlay was written.
func FormatSummary(res *session.Result, output string) string {
	var b strings.Builder

	b.WriteString(SuccessStyle.Render("✓ Analysis Complete!"))
	b.WriteString("\n\n")

	rows := [][2]string{
		{"Image:     ", res.ImageURL},
		{"Natural:   ", fmt.Sprintf("%dx%d", res.Natural.Width, res.Natural.Height)},
		{"Display:   ", fmt.Sprintf("%dx%d", res.Display.Width, res.Display.Height)},
		{"Step:      ", fmt.Sprintf("%d", res.Step)},
		{"Points:    ", fmt.Sprintf("%d", len(res.Dataset.Data))},
		{"Elapsed:   ", res.Elapsed},
	}
	if output != "" {
		rows = append(rows, [2]string{"Overlay:   ", output})
	}

	for i, r := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(KeyStyle.Render(r[0]))
		b.WriteString(ValueStyle.Render(r[1]))
	}
	return b.String()
}

// PrintBox prints content in a styled box
func PrintBox(content string) {
	fmt.Println(BoxStyle.Render(content))
}

// PrintSummary prints FormatSummary in a box.
func PrintSummary(res *session.Result, output string) {
	PrintBox(FormatSummary(res, output))
}
