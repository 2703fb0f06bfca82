package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/tempo/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// StatusColor returns the style for a project schedule status.
func StatusColor(status domain.ScheduleStatus) lipgloss.Style {
	switch status {
	case domain.ScheduleLate:
		return StyleRed
	case domain.SchedulePaused:
		return StyleYellow
	case domain.ScheduleOnTime:
		return StyleGreen
	case domain.ScheduleCompleted:
		return StyleBlue
	default:
		return StyleDim
	}
}

// StatusPill returns a colored schedule status such as "● Atrasado".
func StatusPill(status domain.ScheduleStatus) string {
	if status == "" {
		return StyleDim.Render("○ --")
	}
	mark := "●"
	switch status {
	case domain.ScheduleCompleted:
		mark = "✔"
	case domain.SchedulePaused:
		mark = "‖"
	}
	return StatusColor(status).Render(mark + " " + string(status))
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", lipgloss.Width(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

func Dim(text string) string {
	return StyleDim.Render(text)
}

func Bold(text string) string {
	return StyleBold.Render(text)
}
