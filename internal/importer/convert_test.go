package importer

import (
	"testing"
	"time"

	"github.com/alexanderramin/tempo/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func refsOf(plan *Plan) []string {
	refs := make([]string, len(plan.Tasks))
	for i, pt := range plan.Tasks {
		refs[i] = pt.Ref
	}
	return refs
}

func plannedByRef(plan *Plan) map[string]PlannedTask {
	out := make(map[string]PlannedTask, len(plan.Tasks))
	for _, pt := range plan.Tasks {
		out[pt.Ref] = pt
	}
	return out
}

func TestConvert_MinimalProject(t *testing.T) {
	plan, err := Convert(validMinimalSchema())
	require.NoError(t, err)

	p := plan.Project
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "OBR01", p.ShortID)
	assert.Equal(t, domain.DefaultMaxTaskDepth, p.MaxTaskDepth)
	assert.Equal(t, 0, p.TolerancePct)
	assert.Nil(t, p.PlannedDuration)

	require.Len(t, plan.Tasks, 1)
	task := plan.Tasks[0].Task
	assert.Equal(t, "Task 1", task.Title)
	assert.Equal(t, p.ID, task.ProjectID)
	assert.Equal(t, day(2024, 1, 1), *task.PlannedStart)
	assert.Equal(t, 5, *task.PlannedDuration)
	assert.Equal(t, 1, plan.Tasks[0].Number)
}

func TestConvert_WBSHierarchyAndDefaults(t *testing.T) {
	plan, err := Convert(validWBSSchema())
	require.NoError(t, err)

	assert.Equal(t, 90, *plan.Project.PlannedDuration)
	assert.Equal(t, 10, plan.Project.TolerancePct)
	assert.Equal(t, 3, plan.Project.MaxTaskDepth)

	byRef := plannedByRef(plan)
	assert.Equal(t, "fund", byRef["fund.esc"].ParentRef)
	assert.Equal(t, 1, byRef["fund.esc"].Number)
	assert.Equal(t, 2, byRef["fund.conc"].Number)
	assert.Equal(t, 2, byRef["estr"].Number)
	assert.Equal(t, "Secretaria de Obras", byRef["estr"].Task.ResponsibleOrg)

	conc := byRef["fund.conc"]
	require.Len(t, conc.Dependencies, 1)
	assert.Equal(t, PlannedDependency{PrerequisiteRef: "fund.esc", Type: domain.FinishToStart, Latency: 1}, conc.Dependencies[0])
	assert.Equal(t, 0, byRef["estr"].Dependencies[0].Latency)
}

func TestConvert_TaskOverridesDefaults(t *testing.T) {
	schema := validWBSSchema()
	schema.Tasks[3].ResponsibleOrg = "Construtora"
	schema.Defaults.Latency = ptrInt(3)
	schema.Dependencies[1].Type = "ss"

	plan, err := Convert(schema)
	require.NoError(t, err)

	estr := plannedByRef(plan)["estr"]
	assert.Equal(t, "Construtora", estr.Task.ResponsibleOrg)
	assert.Equal(t, domain.StartToStart, estr.Dependencies[0].Type)
	assert.Equal(t, 3, estr.Dependencies[0].Latency)
}

func TestConvert_CreationOrderPutsPrerequisitesFirst(t *testing.T) {
	schema := validMinimalSchema()
	schema.Tasks = []TaskImport{
		{Ref: "late", Title: "Late", PlannedDuration: ptrInt(2)},
		{Ref: "early", Title: "Early", PlannedStart: ptrStr("2024-01-01"), PlannedDuration: ptrInt(2)},
	}
	schema.Dependencies = []DependencyImport{{TaskRef: "late", PrerequisiteRef: "early"}}

	plan, err := Convert(schema)
	require.NoError(t, err)
	assert.Equal(t, []string{"early", "late"}, refsOf(plan))

	byRef := plannedByRef(plan)
	assert.Equal(t, 1, byRef["late"].Number, "numbering follows file order")
	assert.Equal(t, 2, byRef["early"].Number)
}

func TestConvert_ParentsBeforeChildren(t *testing.T) {
	plan, err := Convert(validWBSSchema())
	require.NoError(t, err)

	pos := make(map[string]int)
	for i, ref := range refsOf(plan) {
		pos[ref] = i
	}
	assert.Less(t, pos["fund"], pos["fund.esc"])
	assert.Less(t, pos["fund"], pos["fund.conc"])
	assert.Less(t, pos["fund.esc"], pos["fund.conc"])
	assert.Less(t, pos["fund.conc"], pos["estr"])
}

func TestConvert_ActualDates(t *testing.T) {
	schema := validMinimalSchema()
	schema.Tasks[0].ActualStart = ptrStr("2024-01-02")
	schema.Tasks[0].ActualFinish = ptrStr("2024-01-06")
	schema.Tasks[0].Milestone = func() *bool { b := true; return &b }()

	plan, err := Convert(schema)
	require.NoError(t, err)

	task := plan.Tasks[0].Task
	assert.Equal(t, day(2024, 1, 2), *task.ActualStart)
	assert.Equal(t, day(2024, 1, 6), *task.ActualFinish)
	assert.True(t, task.IsMilestone)
}

func TestParseImportSchema_YAML(t *testing.T) {
	data := []byte(`
project:
  short_id: ESC02
  name: Escola
  planned_duration: 90
defaults:
  dependency_type: fs
tasks:
  - ref: a
    title: A
    planned_start: "2024-01-01"
    planned_duration: 5
  - ref: b
    title: B
    planned_duration: 3
dependencies:
  - task_ref: b
    prerequisite_ref: a
    latency: 2
`)
	schema, err := ParseImportSchema(data, ".yaml")
	require.NoError(t, err)
	assert.Equal(t, "ESC02", schema.Project.ShortID)
	assert.Equal(t, 90, *schema.Project.PlannedDuration)
	require.Len(t, schema.Tasks, 2)
	assert.Equal(t, "2024-01-01", *schema.Tasks[0].PlannedStart)
	require.Len(t, schema.Dependencies, 1)
	assert.Equal(t, 2, *schema.Dependencies[0].Latency)
	assert.Empty(t, ValidateImportSchema(schema))
}

func TestParseImportSchema_JSON(t *testing.T) {
	data := []byte(`{"project":{"short_id":"OBR01","name":"Obra"},"tasks":[{"ref":"a","title":"A"}]}`)
	schema, err := ParseImportSchema(data, ".json")
	require.NoError(t, err)
	assert.Equal(t, "Obra", schema.Project.Name)
	assert.Len(t, schema.Tasks, 1)
}

func TestParseImportSchema_Malformed(t *testing.T) {
	_, err := ParseImportSchema([]byte("{not json"), ".json")
	assert.Error(t, err)
}
