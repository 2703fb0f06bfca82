package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/tempo/internal/domain"
	"github.com/alexanderramin/tempo/internal/schedule"
)

// FormatTaskTree renders a project's WBS outline with planned and projected
// finish and delay per task. tasks must be in preorder; codes maps task IDs
// to outline codes.
func FormatTaskTree(project *domain.Project, tasks []*domain.Task, codes map[string]string) string {
	if len(tasks) == 0 {
		return RenderBox(project.DisplayID(), Dim("No tasks"))
	}

	last := lastSiblings(tasks)
	items := make([]TreeItem, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, TreeItem{
			Code:      codes[t.ID],
			Title:     t.Title,
			Level:     t.Level,
			IsLast:    last[t.ID],
			Completed: t.IsCompleted(),
			Milestone: t.IsMilestone,
			Detail: fmt.Sprintf("%s %s  %s %s  %s",
				Dim("plan"), FormatDate(t.PlannedFinish),
				Dim("proj"), FormatDate(t.ProjectedFinish),
				DelayBadge(t.ProjectedDelay)),
		})
	}

	title := fmt.Sprintf("%s  %s", project.DisplayID(), project.Name)
	return RenderBox(title, RenderTree(items))
}

// lastSiblings marks the final task of every sibling set.
func lastSiblings(tasks []*domain.Task) map[string]bool {
	lastOf := make(map[string]string)
	for _, t := range tasks {
		key := ""
		if t.ParentID != nil {
			key = *t.ParentID
		}
		lastOf[key] = t.ID
	}
	out := make(map[string]bool, len(lastOf))
	for _, id := range lastOf {
		out[id] = true
	}
	return out
}

// FormatTask renders the detail card of one task. label renders dependency
// prerequisites.
func FormatTask(t *domain.Task, code string, label func(id string) string) string {
	var b strings.Builder
	field := func(name, value string) {
		b.WriteString(fmt.Sprintf("%s  %s\n", StyleDim.Render(fmt.Sprintf("%-10s", name)), value))
	}

	b.WriteString(StyleBlue.Render(code) + " " + StyleBold.Render(t.Title) + "\n")
	if t.Description != "" {
		b.WriteString(Dim(t.Description) + "\n")
	}
	b.WriteString("\n")
	field("ID", TruncID(t.ID))
	field("LEVEL", fmt.Sprintf("%d", t.Level))
	if t.ResponsibleOrg != "" {
		field("RESPONSIBLE", t.ResponsibleOrg)
	}
	if t.IsMilestone {
		field("MILESTONE", StylePurple.Render("yes"))
	}

	b.WriteString("\n" + Header("Schedule") + "\n")
	table := Table{
		Headers:    []string{"", "START", "FINISH", "DURATION"},
		RightAlign: map[int]bool{3: true},
		Rows: [][]string{
			{"planned",
				Computed(FormatDate(t.PlannedStart), t.PlannedStartComputed),
				Computed(FormatDate(t.PlannedFinish), t.PlannedFinishComputed),
				Computed(FormatDays(t.PlannedDuration), t.PlannedDurationComputed)},
			{"actual", FormatDate(t.ActualStart), FormatDate(t.ActualFinish), FormatDays(t.ActualDuration)},
			{"projected", FormatDate(t.ProjectedStart), FormatDate(t.ProjectedFinish), ""},
		},
	}
	b.WriteString(table.Render())
	field("DELAY", DelayBadge(t.ProjectedDelay))
	if t.CompletionPercent != nil {
		field("PROGRESS", RenderProgress(*t.CompletionPercent, 20))
	}
	if t.EstimatedCost != nil || t.ActualCost != nil {
		field("COST", fmt.Sprintf("%s / %s", FormatMoney(t.ActualCost), FormatMoney(t.EstimatedCost)))
	}

	if len(t.Dependencies) > 0 {
		b.WriteString("\n" + Header("Depends on") + "\n")
		for _, d := range t.Dependencies {
			b.WriteString(fmt.Sprintf("  %s  %s%s\n", label(d.PrerequisiteID), Dim(string(d.Type)), formatLatency(d.Latency)))
		}
	}
	return RenderBox("", b.String())
}

func formatLatency(days int) string {
	if days == 0 {
		return ""
	}
	return StyleYellow.Render(fmt.Sprintf(" %+dd", days))
}

// FormatDependencyCheck renders the orders and dates a dependency set would
// produce.
func FormatDependencyCheck(order *schedule.Order, res *schedule.Resolution, label func(id string) string) string {
	var b strings.Builder
	b.WriteString(StyleGreen.Render("✔ dependencies are acyclic") + "\n\n")
	if order != nil {
		b.WriteString(fmt.Sprintf("%s  %s\n", StyleDim.Render("start order "), joinLabels(order.Start, label)))
		b.WriteString(fmt.Sprintf("%s  %s\n", StyleDim.Render("finish order"), joinLabels(order.Finish, label)))
	}
	if res != nil {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%s  %s\n", StyleDim.Render("start   "), Computed(FormatDate(res.Start.Value), res.Start.Computed)))
		b.WriteString(fmt.Sprintf("%s  %s\n", StyleDim.Render("finish  "), Computed(FormatDate(res.Finish.Value), res.Finish.Computed)))
		b.WriteString(fmt.Sprintf("%s  %s\n", StyleDim.Render("duration"), Computed(FormatDays(res.Duration.Value), res.Duration.Computed)))
	}
	return b.String()
}

func joinLabels(ids []string, label func(id string) string) string {
	if len(ids) == 0 {
		return Dim("--")
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = label(id)
	}
	return strings.Join(out, " → ")
}
