package lifecycle

import (
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/domain/instance"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
)

// Get returns a copy of the instance with the given id
func (s *Service) Get(id string) (*types.ApplicationInstance, bool) {
	return s.instances.Get(id)
}

// All returns every tracked instance, terminated ones included
func (s *Service) All() []*types.ApplicationInstance {
	return s.instances.All()
}

// Running returns the active instances
func (s *Service) Running() []*types.ApplicationInstance {
	return s.instances.Active()
}

func (s *Service) ByApplication(appID string) []*types.ApplicationInstance {
	return s.instances.ByApplication(appID)
}

func (s *Service) ByUser(user string) []*types.ApplicationInstance {
	return s.instances.ByUser(user)
}

// Count returns the number of active instances
func (s *Service) Count() int {
	return s.instances.ActiveCount()
}

func (s *Service) TotalMemoryMB() float64 {
	return s.instances.TotalMemoryMB()
}

func (s *Service) Statistics() instance.Statistics {
	return s.instances.Statistics()
}

// Cleanup drops terminated and errored instances from the registry
func (s *Service) Cleanup() int {
	n := s.instances.CleanupTerminated()
	if n > 0 {
		s.log.Info("Removed finished instances", zap.Int("count", n))
	}
	return n
}

// CleanupOlderThan drops instances started more than maxAge ago
func (s *Service) CleanupOlderThan(maxAge time.Duration) int {
	n := s.instances.CleanupOlderThan(maxAge)
	if n > 0 {
		s.log.Info("Removed aged instances", zap.Int("count", n), zap.Duration("max_age", maxAge))
	}
	return n
}

// Validate reports inconsistent instance records
func (s *Service) Validate() []instance.Issue {
	issues := s.instances.Validate()
	for _, is := range issues {
		s.log.Warn("Invalid instance", zap.String("instance_id", is.InstanceID), zap.Strings("problems", is.Problems))
	}
	return issues
}
