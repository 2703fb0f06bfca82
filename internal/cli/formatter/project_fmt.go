package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/tempo/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// FormatProjectList renders projects with their rollup inside a bordered box.
func FormatProjectList(projects []*domain.Project) string {
	table := Table{
		Headers:    []string{"ID", "NAME", "STATUS", "DELAY", "PLANNED", "PROJECTED FINISH"},
		RightAlign: map[int]bool{3: true},
	}
	for _, p := range projects {
		id := p.DisplayID()
		if strings.TrimSpace(id) == "" {
			id = "--"
		}
		table.Rows = append(table.Rows, []string{
			id,
			Bold(p.Name),
			StatusPill(p.ScheduleStatus),
			DelayBadge(p.Delay),
			FormatDays(p.PlannedDuration),
			FormatDate(p.ProjectedFinish),
		})
	}
	return RenderBox("Projects", table.Render())
}

// ProjectShowData holds what the project card renders.
type ProjectShowData struct {
	Project        *domain.Project
	TaskCount      int
	Accompaniments []*domain.Accompaniment
}

// FormatProjectShow renders the project card: settings and rollup on the
// left, recent follow-ups on the right.
func FormatProjectShow(data ProjectShowData) string {
	left := buildProjectPanel(data.Project, data.TaskCount)
	right := buildAccompanimentPanel(data.Accompaniments)
	return RenderBox("", lipgloss.JoinHorizontal(lipgloss.Top, left, "    ", right))
}

func buildProjectPanel(p *domain.Project, tasks int) string {
	var b strings.Builder
	field := func(label, value string) {
		b.WriteString(fmt.Sprintf("%s  %s\n", StyleDim.Render(fmt.Sprintf("%-10s", label)), value))
	}

	b.WriteString(StyleBold.Render(p.Name) + "\n\n")
	field("STATUS", StatusPill(p.ScheduleStatus))
	field("ID", p.DisplayID())
	field("UUID", TruncID(p.ID))
	field("TASKS", fmt.Sprintf("%d", tasks))
	field("PLANNED", FormatDays(p.PlannedDuration))
	field("TOLERANCE", fmt.Sprintf("%d%%", p.TolerancePct))
	field("MAX DEPTH", fmt.Sprintf("%d", p.MaxTaskDepth))
	b.WriteString("\n")
	field("DELAY", DelayBadge(p.Delay))
	if p.LatePct != nil {
		field("LATE", StatusColor(p.ScheduleStatus).Render(fmt.Sprintf("%d%%", *p.LatePct)))
	}
	field("PROJECTED", FormatDate(p.ProjectedFinish))
	if p.ActualFinish != nil {
		field("FINISHED", FormatDate(p.ActualFinish))
	}
	if p.NextRecomputeAt != nil {
		field("NEXT SWEEP", Dim(p.NextRecomputeAt.Format("2006-01-02 15:04")))
	}

	return lipgloss.NewStyle().Width(40).Render(b.String())
}

func buildAccompanimentPanel(list []*domain.Accompaniment) string {
	if len(list) == 0 {
		return StyleDim.Render("No follow-ups recorded")
	}

	var b strings.Builder
	b.WriteString(StyleHeader.Render("FOLLOW-UPS") + "\n\n")
	// Most recent first, at most five.
	for i := len(list) - 1; i >= 0 && i >= len(list)-5; i-- {
		a := list[i]
		mark := StyleGreen.Render("●")
		if a.SchedulePaused {
			mark = StyleYellow.Render("‖")
		}
		line := fmt.Sprintf("%s %s", mark, a.RecordedAt.Format(domain.DateLayout))
		if a.Notes != "" {
			line += "  " + Dim(a.Notes)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}
