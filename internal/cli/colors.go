package cli

import "github.com/charmbracelet/lipgloss"

// Heat palette, matching the default overlay gradient from cold to hot.
var (
	HeatBlue   = lipgloss.Color("#3B82F6")
	HeatGreen  = lipgloss.Color("#22C55E")
	HeatYellow = lipgloss.Color("#EAB308")
	HeatRed    = lipgloss.Color("#EF4444")

	// Accent colours
	SlateGray = lipgloss.Color("#94A3B8") // Subtle text
)
