package instance

import (
	"sort"
	"strings"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
)

// Issue describes why an instance failed validation
type Issue struct {
	InstanceID string                     `json:"instance_id"`
	Instance   *types.ApplicationInstance `json:"instance"`
	Problems   []string                   `json:"problems"`
}

// Validate returns every instance that breaks a registry invariant. Nothing
// is modified.
func (m *Manager) Validate() []Issue {
	now := m.now()
	var issues []Issue
	for _, inst := range m.load() {
		var problems []string

		if strings.TrimSpace(inst.InstanceID) == "" {
			problems = append(problems, "missing instance id")
		}
		if inst.Application == nil {
			problems = append(problems, "missing application")
		}
		if inst.ProcessID <= 0 {
			problems = append(problems, "non-positive process id")
		}
		if strings.TrimSpace(inst.LaunchedBy) == "" {
			problems = append(problems, "missing launched-by user")
		}
		if inst.State.IsTerminated() && inst.EndTime == nil {
			problems = append(problems, "terminal state without end time")
		}
		if inst.IsActiveInstance() && inst.EndTime != nil {
			problems = append(problems, "active state with end time")
		}
		if inst.IsActiveInstance() && now.Sub(inst.LastUpdated) > StaleAfter {
			problems = append(problems, "stale last update")
		}

		if len(problems) > 0 {
			issues = append(issues, Issue{InstanceID: inst.InstanceID, Instance: inst.Clone(), Problems: problems})
		}
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].InstanceID < issues[j].InstanceID })
	return issues
}
