package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/tempo/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

var plain bool

// SetPlain disables box borders, for output that is not a terminal.
func SetPlain(v bool) {
	plain = v
}

// RenderBox wraps content in a rounded-border box with an optional title.
func RenderBox(title string, content string) string {
	if plain {
		if title == "" {
			return content
		}
		return strings.ToUpper(title) + "\n\n" + content
	}

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDim).
		PaddingLeft(2).
		PaddingRight(2).
		PaddingTop(1).
		PaddingBottom(1)

	if title != "" {
		return boxStyle.Render(StyleHeader.Render(strings.ToUpper(title)) + "\n\n" + content)
	}
	return boxStyle.Render(content)
}

// FormatDate renders an optional civil date, or a dim placeholder.
func FormatDate(t *time.Time) string {
	if t == nil {
		return Dim("--")
	}
	return t.Format(domain.DateLayout)
}

// FormatDays renders an optional day count.
func FormatDays(d *int) string {
	if d == nil {
		return Dim("--")
	}
	if *d == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", *d)
}

// DelayBadge colors a delay: green when zero, red otherwise.
func DelayBadge(d *int) string {
	switch {
	case d == nil:
		return Dim("--")
	case *d == 0:
		return StyleGreen.Render("0")
	default:
		return StyleRed.Render(fmt.Sprintf("+%d", *d))
	}
}

// Computed marks a derived planned value with a trailing asterisk.
func Computed(text string, computed bool) string {
	if !computed {
		return text
	}
	return text + Dim("*")
}

// TruncID returns the first 8 characters of an ID, dimmed.
func TruncID(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return StyleDim.Render(id)
}

// FormatMoney renders an optional cost with two decimals.
func FormatMoney(v *float64) string {
	if v == nil {
		return Dim("--")
	}
	return fmt.Sprintf("%.2f", *v)
}
