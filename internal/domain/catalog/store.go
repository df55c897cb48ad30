package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/domain/lifecycle"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
)

// Store holds the current catalog. Readers get copies; Replace swaps the
// whole catalog at once.
type Store struct {
	mu          sync.RWMutex
	apps        map[string]*types.Application
	roles       map[string]types.Role
	defaultRole types.Role
	version     int
	log         *logging.Logger
	metrics     *monitoring.Metrics
}

// NewStore creates an empty store
func NewStore(log *logging.Logger) *Store {
	return &Store{
		apps:  make(map[string]*types.Application),
		roles: make(map[string]types.Role),
		log:   logging.OrNop(log).Named("catalog"),
	}
}

// WithMetrics adds metrics tracking to the store
func (s *Store) WithMetrics(metrics *monitoring.Metrics) *Store {
	s.metrics = metrics
	return s
}

// Replace installs c as the current catalog
func (s *Store) Replace(c *Catalog) {
	apps := make(map[string]*types.Application, len(c.Applications))
	for _, a := range c.Applications {
		apps[a.ID] = a.Clone()
	}
	roles := make(map[string]types.Role, len(c.Roles))
	for name, r := range c.Roles {
		roles[strings.ToLower(name)] = r
	}

	s.mu.Lock()
	s.apps, s.roles, s.defaultRole = apps, roles, c.DefaultRole
	s.version++
	v := s.version
	s.mu.Unlock()

	s.metrics.SetCatalogApps(len(apps))
	s.log.Info("Catalog loaded", zap.Int("applications", len(apps)), zap.Int("users", len(roles)), zap.Int("version", v))
}

// Merge adds applications whose ids are not already present and returns
// how many were added.
func (s *Store) Merge(apps []*types.Application) int {
	s.mu.Lock()
	added := 0
	for _, a := range apps {
		if a == nil || a.ID == "" {
			continue
		}
		if _, exists := s.apps[a.ID]; exists {
			continue
		}
		s.apps[a.ID] = a.Clone()
		added++
	}
	total := len(s.apps)
	s.mu.Unlock()

	if added > 0 {
		s.metrics.SetCatalogApps(total)
	}
	return added
}

// Load reads path and replaces the catalog with it
func (s *Store) Load(path string) error {
	c, err := LoadFile(path)
	if err != nil {
		return err
	}
	s.Replace(c)
	return nil
}

// Version increases on every Replace
func (s *Store) Version() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *Store) Get(id string) (*types.Application, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.apps[id]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// List returns every application sorted by category and name
func (s *Store) List() []*types.Application {
	return s.filter(func(*types.Application) bool { return true })
}

// ForRole returns the enabled applications a holder of role may launch
func (s *Store) ForRole(role types.Role) []*types.Application {
	return s.filter(func(a *types.Application) bool {
		return a.Enabled && role.Allows(a.MinimumRole)
	})
}

// ForUser is ForRole for the role of user
func (s *Store) ForUser(user string) []*types.Application {
	return s.ForRole(s.RoleOf(user))
}

func (s *Store) filter(keep func(*types.Application) bool) []*types.Application {
	s.mu.RLock()
	out := make([]*types.Application, 0, len(s.apps))
	for _, a := range s.apps {
		if keep(a) {
			out = append(out, a.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// RoleOf returns the role assigned to user, or the default role
func (s *Store) RoleOf(user string) types.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.roles[strings.ToLower(strings.TrimSpace(user))]; ok {
		return r
	}
	return s.defaultRole
}

// RoleAuthorizer permits a launch when the user's catalog role meets the
// application's minimum role.
type RoleAuthorizer struct {
	store *Store
}

// NewRoleAuthorizer creates an authorizer backed by store
func NewRoleAuthorizer(store *Store) *RoleAuthorizer {
	return &RoleAuthorizer{store: store}
}

func (a *RoleAuthorizer) Authorize(_ context.Context, user string, app *types.Application) error {
	role := a.store.RoleOf(user)
	if !role.Allows(app.MinimumRole) {
		return fmt.Errorf("%w: %s has role %s, %q requires %s",
			lifecycle.ErrNotPermitted, user, role, app.Name, app.MinimumRole)
	}
	return nil
}
