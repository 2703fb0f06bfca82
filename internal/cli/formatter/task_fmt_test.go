package formatter

import (
	"strings"
	"testing"
	"time"

	"github.com/alexanderramin/tempo/internal/domain"
	"github.com/alexanderramin/tempo/internal/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func strPtr(s string) *string { return &s }

func TestFormatTaskTree(t *testing.T) {
	project := &domain.Project{ID: "p1", ShortID: "ESC01", Name: "Escola"}
	tasks := []*domain.Task{
		{ID: "a", Title: "Fundação", Level: 1, ChildCount: 2},
		{ID: "b", ParentID: strPtr("a"), Title: "Escavação", Level: 2, ActualFinish: datePtr(2024, 1, 5)},
		{ID: "c", ParentID: strPtr("a"), Title: "Concretagem", Level: 2,
			PlannedFinish: datePtr(2024, 1, 15), ProjectedFinish: datePtr(2024, 1, 18), ProjectedDelay: intPtr(3)},
		{ID: "d", Title: "Entrega", Level: 1, IsMilestone: true},
	}
	codes := map[string]string{"a": "1", "b": "1.1", "c": "1.2", "d": "2"}

	SetPlain(true)
	defer SetPlain(false)
	out := stripANSI(FormatTaskTree(project, tasks, codes))

	assert.True(t, strings.HasPrefix(out, "ESC01  ESCOLA"))
	assert.Contains(t, out, "├─ 1 Fundação")
	assert.Contains(t, out, "│  ├─ 1.1 ✔ Escavação")
	assert.Contains(t, out, "│  └─ 1.2 Concretagem")
	assert.Contains(t, out, "└─ 2 ◆ Entrega")
	assert.Contains(t, out, "2024-01-18")
	assert.Contains(t, out, "+3")
}

func TestFormatTaskTree_Empty(t *testing.T) {
	SetPlain(true)
	defer SetPlain(false)

	out := stripANSI(FormatTaskTree(&domain.Project{ShortID: "OBR"}, nil, nil))
	assert.Contains(t, out, "No tasks")
}

func TestFormatTask(t *testing.T) {
	task := &domain.Task{
		ID:                    "t-1",
		Title:                 "Alvenaria",
		Level:                 2,
		PlannedStart:          datePtr(2024, 1, 7),
		PlannedFinish:         datePtr(2024, 1, 9),
		PlannedDuration:       intPtr(3),
		PlannedStartComputed:  true,
		PlannedFinishComputed: true,
		Dependencies: []domain.Dependency{
			{TaskID: "t-1", PrerequisiteID: "t-0", Type: domain.FinishToStart, Latency: 2},
		},
	}
	label := func(id string) string { return "1.1 Fundação" }

	out := stripANSI(FormatTask(task, "1.2", label))

	assert.Contains(t, out, "1.2 Alvenaria")
	assert.Contains(t, out, "2024-01-07*")
	assert.Contains(t, out, "3 days")
	assert.NotContains(t, out, "3 days*")
	assert.Contains(t, out, "DEPENDS ON")
	assert.Contains(t, out, "1.1 Fundação  finish_to_start +2d")
}

func TestFormatDependencyCheck(t *testing.T) {
	order := &schedule.Order{Start: []string{"a", "b"}, Finish: []string{"a"}}
	res := &schedule.Resolution{
		Start:    schedule.FieldValue[time.Time]{Value: datePtr(2024, 1, 7), Computed: true},
		Finish:   schedule.FieldValue[time.Time]{Value: datePtr(2024, 1, 9)},
		Duration: schedule.FieldValue[int]{Value: intPtr(3)},
	}
	label := strings.ToUpper

	out := stripANSI(FormatDependencyCheck(order, res, label))

	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 7)
	assert.Contains(t, out, "acyclic")
	assert.Contains(t, out, "A → B")
	assert.Contains(t, out, "2024-01-07*")
	assert.Contains(t, out, "2024-01-09")
	assert.NotContains(t, out, "2024-01-09*")
}
