package domain

// DependencyType names which boundary of the prerequisite drives which
// boundary of the dependent task.
type DependencyType string

const (
	FinishToStart  DependencyType = "finish_to_start"
	StartToStart   DependencyType = "start_to_start"
	StartToFinish  DependencyType = "start_to_finish"
	FinishToFinish DependencyType = "finish_to_finish"
)

// ValidDependencyTypes is the canonical set of accepted dependency type strings.
var ValidDependencyTypes = map[string]bool{
	string(FinishToStart):  true,
	string(StartToStart):   true,
	string(StartToFinish):  true,
	string(FinishToFinish): true,
}

// AffectsStart reports whether the dependency constrains the dependent's start.
func (t DependencyType) AffectsStart() bool {
	return t == FinishToStart || t == StartToStart
}

// AffectsFinish reports whether the dependency constrains the dependent's finish.
func (t DependencyType) AffectsFinish() bool {
	return t == StartToFinish || t == FinishToFinish
}

// UsesPrerequisiteFinish reports whether the boundary is read from the
// prerequisite's finish date (otherwise its start date).
func (t DependencyType) UsesPrerequisiteFinish() bool {
	return t == FinishToStart || t == FinishToFinish
}

// ParseDependencyType accepts the canonical names plus the short forms
// fs, ss, sf and ff.
func ParseDependencyType(s string) (DependencyType, bool) {
	switch s {
	case "fs", string(FinishToStart):
		return FinishToStart, true
	case "ss", string(StartToStart):
		return StartToStart, true
	case "sf", string(StartToFinish):
		return StartToFinish, true
	case "ff", string(FinishToFinish):
		return FinishToFinish, true
	default:
		return "", false
	}
}

type ScheduleStatus string

const (
	ScheduleCompleted ScheduleStatus = "Concluído"
	SchedulePaused    ScheduleStatus = "Paralisado"
	ScheduleOnTime    ScheduleStatus = "Em dia"
	ScheduleLate      ScheduleStatus = "Atrasado"
)

// DependencyClass separates the two graphs the validator maintains.
type DependencyClass string

const (
	ClassStart  DependencyClass = "start"
	ClassFinish DependencyClass = "finish"
)

// Class returns the graph class the dependency type belongs to.
func (t DependencyType) Class() DependencyClass {
	if t.AffectsFinish() {
		return ClassFinish
	}
	return ClassStart
}
