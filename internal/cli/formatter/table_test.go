package formatter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_AlignsColumns(t *testing.T) {
	out := stripANSI(Table{
		Headers:    []string{"CODE", "DAYS"},
		Rows:       [][]string{{"1", "5"}, {"1.2.3", "120"}},
		RightAlign: map[int]bool{1: true},
	}.Render())

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "CODE   DAYS", lines[0])
	assert.Equal(t, "─────  ────", lines[1])
	assert.Equal(t, "1         5", lines[2])
	assert.Equal(t, "1.2.3   120", lines[3])
}

func TestRenderTable_Empty(t *testing.T) {
	assert.Equal(t, "", RenderTable(nil, nil))
}

func TestRenderTree_Connectors(t *testing.T) {
	out := stripANSI(RenderTree([]TreeItem{
		{Code: "1", Title: "Fundação", Level: 1},
		{Code: "1.1", Title: "Escavação", Level: 2},
		{Code: "1.2", Title: "Concretagem", Level: 2, IsLast: true},
		{Code: "2", Title: "Estrutura", Level: 1, IsLast: true, Detail: "+3"},
	}))

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "├─ 1 Fundação", lines[0])
	assert.Equal(t, "│  ├─ 1.1 Escavação", lines[1])
	assert.Equal(t, "│  └─ 1.2 Concretagem", lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "└─ 2 Estrutura"))
	assert.True(t, strings.HasSuffix(lines[3], "+3"))
}
