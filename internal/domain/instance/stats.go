package instance

import (
	"math"
	"time"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
	"gonum.org/v1/gonum/stat"
)

// Statistics summarizes the registry at one point in time
type Statistics struct {
	Total          int                           `json:"total"`
	Active         int                           `json:"active"`
	Virtual        int                           `json:"virtual"`
	TotalMemoryMB  float64                       `json:"total_memory_mb"`
	MeanMemoryMB   float64                       `json:"mean_memory_mb"`
	StdDevMemoryMB float64                       `json:"stddev_memory_mb"`
	MaxMemoryMB    float64                       `json:"max_memory_mb"`
	ByType         map[types.ApplicationType]int `json:"by_type"`
	ByState        map[types.State]int           `json:"by_state"`
	Users          int                           `json:"users"`
	OldestStart    *time.Time                    `json:"oldest_start,omitempty"`
	GeneratedAt    time.Time                     `json:"generated_at"`
}

// Statistics computes counts by type and state plus memory figures over
// the active instances.
func (m *Manager) Statistics() Statistics {
	s := Statistics{
		ByType:      make(map[types.ApplicationType]int),
		ByState:     make(map[types.State]int),
		GeneratedAt: m.now(),
	}

	users := make(map[string]struct{})
	var memory []float64
	for _, inst := range m.load() {
		s.Total++
		s.ByType[inst.Type()]++
		s.ByState[inst.State]++
		if !inst.IsActiveInstance() {
			continue
		}
		s.Active++
		if inst.IsVirtual {
			s.Virtual++
		}
		users[inst.LaunchedBy] = struct{}{}
		memory = append(memory, inst.MemoryUsageMB)
		if s.OldestStart == nil || inst.StartTime.Before(*s.OldestStart) {
			start := inst.StartTime
			s.OldestStart = &start
		}
	}
	s.Users = len(users)

	for _, mb := range memory {
		s.TotalMemoryMB += mb
		s.MaxMemoryMB = math.Max(s.MaxMemoryMB, mb)
	}
	switch len(memory) {
	case 0:
	case 1:
		s.MeanMemoryMB = memory[0]
	default:
		s.MeanMemoryMB, s.StdDevMemoryMB = stat.MeanStdDev(memory, nil)
	}
	return s
}
