package formatter

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TreeItem is one row of a WBS outline. Items must be in preorder.
type TreeItem struct {
	Code      string
	Title     string
	Level     int
	IsLast    bool
	Completed bool
	Milestone bool
	Detail    string
}

const (
	treeBranch = "├─ "
	treeCorner = "└─ "
	treePipe   = "│  "
	treeBlank  = "   "
)

// RenderTree renders items as an indented outline with box-drawing
// connectors and right-aligned detail columns.
func RenderTree(items []TreeItem) string {
	if len(items) == 0 {
		return ""
	}

	contents := make([]string, len(items))
	width := 0
	// open[l] records whether the ancestor at level l still has siblings
	// below, which decides between a pipe and a blank.
	open := map[int]bool{}
	for i, item := range items {
		var prefix strings.Builder
		for l := 1; l < item.Level; l++ {
			if open[l] {
				prefix.WriteString(treePipe)
			} else {
				prefix.WriteString(treeBlank)
			}
		}
		if item.IsLast {
			prefix.WriteString(treeCorner)
		} else {
			prefix.WriteString(treeBranch)
		}
		open[item.Level] = !item.IsLast

		title := item.Title
		switch {
		case item.Completed:
			title = StyleGreen.Render("✔ ") + Dim(title)
		case item.Milestone:
			title = StylePurple.Render("◆ ") + title
		}
		contents[i] = StyleDim.Render(prefix.String()) + StyleBlue.Render(item.Code) + " " + title
		width = max(width, lipgloss.Width(contents[i]))
	}

	var b strings.Builder
	for i, item := range items {
		b.WriteString(contents[i])
		if item.Detail != "" {
			b.WriteString(strings.Repeat(" ", width-lipgloss.Width(contents[i])+colGap))
			b.WriteString(item.Detail)
		}
		b.WriteString("\n")
	}
	return b.String()
}
