package formatter

import (
	"strings"
	"testing"
	"time"

	"github.com/alexanderramin/tempo/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestFormatProjectList_UsesShortIDWhenPresent(t *testing.T) {
	finish := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	projects := []*domain.Project{{
		ID:              "12345678-aaaa-bbbb-cccc-1234567890ab",
		ShortID:         "ESC01",
		Name:            "Escola Municipal",
		PlannedDuration: intPtr(60),
		Delay:           intPtr(9),
		ProjectedFinish: &finish,
		ScheduleStatus:  domain.ScheduleLate,
	}}

	out := stripANSI(FormatProjectList(projects))

	assert.Contains(t, out, "ESC01")
	assert.NotContains(t, out, "12345678")
	assert.Contains(t, out, "Atrasado")
	assert.Contains(t, out, "+9")
	assert.Contains(t, out, "60 days")
	assert.Contains(t, out, "2024-02-10")
}

func TestFormatProjectList_FallsBackToUUIDPrefix(t *testing.T) {
	projects := []*domain.Project{{ID: "abcdef12-3456-7890-abcd-ef1234567890", Name: "Obra"}}

	out := stripANSI(FormatProjectList(projects))
	assert.Contains(t, out, "abcdef12")
}

func TestFormatProjectShow(t *testing.T) {
	p := &domain.Project{
		ID:             "abcdef12-3456-7890-abcd-ef1234567890",
		ShortID:        "ESC01",
		Name:           "Escola Municipal",
		TolerancePct:   10,
		MaxTaskDepth:   5,
		LatePct:        intPtr(15),
		ScheduleStatus: domain.ScheduleLate,
	}
	out := stripANSI(FormatProjectShow(ProjectShowData{
		Project:   p,
		TaskCount: 4,
		Accompaniments: []*domain.Accompaniment{
			{RecordedAt: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), Notes: "chuva"},
			{RecordedAt: time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC), SchedulePaused: true, Notes: "embargo"},
		},
	}))

	assert.Contains(t, out, "Escola Municipal")
	assert.Contains(t, out, "15%")
	assert.Contains(t, out, "embargo")
	assert.Less(t, strings.Index(out, "2024-01-12"), strings.Index(out, "2024-01-05"), "latest follow-up first")
}

func TestFormatProjectShow_NoFollowUps(t *testing.T) {
	out := stripANSI(FormatProjectShow(ProjectShowData{Project: &domain.Project{Name: "Obra"}}))
	assert.Contains(t, out, "No follow-ups recorded")
}
