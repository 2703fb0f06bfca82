package importer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ImportSchema is the top-level structure of a WBS import file.
type ImportSchema struct {
	Project      ProjectImport      `json:"project" yaml:"project"`
	Defaults     *DefaultsImport    `json:"defaults,omitempty" yaml:"defaults,omitempty"`
	Tasks        []TaskImport       `json:"tasks" yaml:"tasks"`
	Dependencies []DependencyImport `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

// ProjectImport defines the project-level fields in the import file.
type ProjectImport struct {
	ShortID         string `json:"short_id" yaml:"short_id"`
	Name            string `json:"name" yaml:"name"`
	PlannedDuration *int   `json:"planned_duration,omitempty" yaml:"planned_duration,omitempty"`
	TolerancePct    *int   `json:"tolerance_pct,omitempty" yaml:"tolerance_pct,omitempty"`
	MaxTaskDepth    *int   `json:"max_task_depth,omitempty" yaml:"max_task_depth,omitempty"`
}

// DefaultsImport defines values that cascade to tasks and dependencies.
type DefaultsImport struct {
	ResponsibleOrg string `json:"responsible_org,omitempty" yaml:"responsible_org,omitempty"`
	DependencyType string `json:"dependency_type,omitempty" yaml:"dependency_type,omitempty"`
	Latency        *int   `json:"latency,omitempty" yaml:"latency,omitempty"`
}

// TaskImport defines one WBS task. Parents must appear before their children.
type TaskImport struct {
	Ref             string   `json:"ref" yaml:"ref"`
	ParentRef       *string  `json:"parent_ref,omitempty" yaml:"parent_ref,omitempty"`
	Title           string   `json:"title" yaml:"title"`
	Description     string   `json:"description,omitempty" yaml:"description,omitempty"`
	ResponsibleOrg  string   `json:"responsible_org,omitempty" yaml:"responsible_org,omitempty"`
	Milestone       *bool    `json:"milestone,omitempty" yaml:"milestone,omitempty"`
	PlannedStart    *string  `json:"planned_start,omitempty" yaml:"planned_start,omitempty"`
	PlannedFinish   *string  `json:"planned_finish,omitempty" yaml:"planned_finish,omitempty"`
	PlannedDuration *int     `json:"planned_duration,omitempty" yaml:"planned_duration,omitempty"`
	ActualStart     *string  `json:"actual_start,omitempty" yaml:"actual_start,omitempty"`
	ActualFinish    *string  `json:"actual_finish,omitempty" yaml:"actual_finish,omitempty"`
	EstimatedCost   *float64 `json:"estimated_cost,omitempty" yaml:"estimated_cost,omitempty"`
}

// DependencyImport makes TaskRef depend on PrerequisiteRef.
type DependencyImport struct {
	TaskRef         string `json:"task_ref" yaml:"task_ref"`
	PrerequisiteRef string `json:"prerequisite_ref" yaml:"prerequisite_ref"`
	Type            string `json:"type,omitempty" yaml:"type,omitempty"`
	Latency         *int   `json:"latency,omitempty" yaml:"latency,omitempty"`
}

// LoadImportSchema reads an import file. Files ending in .yaml or .yml are
// parsed as YAML, everything else as JSON.
func LoadImportSchema(path string) (*ImportSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseImportSchema(data, filepath.Ext(path))
}

// ParseImportSchema decodes data according to the file extension ext.
func ParseImportSchema(data []byte, ext string) (*ImportSchema, error) {
	var schema ImportSchema
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &schema); err != nil {
			return nil, fmt.Errorf("parsing import file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &schema); err != nil {
			return nil, fmt.Errorf("parsing import file: %w", err)
		}
	}
	return &schema, nil
}
