package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
)

// Format is a catalog file encoding
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// ErrUnknownFormat is returned for catalog files with an unrecognised extension
var ErrUnknownFormat = errors.New("unknown catalog format")

// FormatOf picks the format from a file extension
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// AppEntry is one application as written in a catalog file
type AppEntry struct {
	ID               string `yaml:"id" toml:"id" json:"id"`
	Name             string `yaml:"name" toml:"name" json:"name"`
	Type             string `yaml:"type" toml:"type" json:"type"`
	Path             string `yaml:"path" toml:"path" json:"path"`
	Arguments        string `yaml:"arguments,omitempty" toml:"arguments,omitempty" json:"arguments,omitempty"`
	WorkingDirectory string `yaml:"working_directory,omitempty" toml:"working_directory,omitempty" json:"working_directory,omitempty"`
	Category         string `yaml:"category,omitempty" toml:"category,omitempty" json:"category,omitempty"`
	MinimumRole      string `yaml:"minimum_role,omitempty" toml:"minimum_role,omitempty" json:"minimum_role,omitempty"`
	Enabled          *bool  `yaml:"enabled,omitempty" toml:"enabled,omitempty" json:"enabled,omitempty"`
	InstancePolicy   string `yaml:"instance_policy,omitempty" toml:"instance_policy,omitempty" json:"instance_policy,omitempty"`
	Icon             string `yaml:"icon,omitempty" toml:"icon,omitempty" json:"icon,omitempty"`
	Description      string `yaml:"description,omitempty" toml:"description,omitempty" json:"description,omitempty"`
}

// UserEntry assigns a role to a user name
type UserEntry struct {
	Name string `yaml:"name" toml:"name" json:"name"`
	Role string `yaml:"role" toml:"role" json:"role"`
}

// File is the on-disk catalog document
type File struct {
	DefaultRole  string      `yaml:"default_role,omitempty" toml:"default_role,omitempty" json:"default_role,omitempty"`
	Applications []AppEntry  `yaml:"applications" toml:"applications" json:"applications"`
	Users        []UserEntry `yaml:"users,omitempty" toml:"users,omitempty" json:"users,omitempty"`
}

// Catalog is a validated catalog
type Catalog struct {
	Applications []*types.Application
	Roles        map[string]types.Role
	DefaultRole  types.Role
}

// Decode parses data in the given format
func Decode(data []byte, format Format) (*File, error) {
	var f File
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &f)
	case FormatTOML:
		err = toml.Unmarshal(data, &f)
	case FormatJSON:
		err = sonic.Unmarshal(data, &f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s catalog: %w", format, err)
	}
	return &f, nil
}

// LoadFile reads and validates the catalog at path
func LoadFile(path string) (*Catalog, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	f, err := Decode(data, format)
	if err != nil {
		return nil, err
	}
	return f.Build()
}

// Build validates the document. Every problem is reported, not just the
// first.
func (f *File) Build() (*Catalog, error) {
	c := &Catalog{Roles: make(map[string]types.Role)}
	var errs []error

	def, err := types.ParseRole(f.DefaultRole)
	if err != nil {
		errs = append(errs, fmt.Errorf("default_role: %w", err))
	}
	c.DefaultRole = def

	seen := make(map[string]bool, len(f.Applications))
	for i, e := range f.Applications {
		app, err := e.toApplication()
		if err != nil {
			errs = append(errs, fmt.Errorf("applications[%d]: %w", i, err))
			continue
		}
		if seen[app.ID] {
			errs = append(errs, fmt.Errorf("applications[%d]: duplicate id %q", i, app.ID))
			continue
		}
		seen[app.ID] = true
		c.Applications = append(c.Applications, app)
	}

	for i, u := range f.Users {
		name := strings.ToLower(strings.TrimSpace(u.Name))
		if name == "" {
			errs = append(errs, fmt.Errorf("users[%d]: missing name", i))
			continue
		}
		role, err := types.ParseRole(u.Role)
		if err != nil {
			errs = append(errs, fmt.Errorf("users[%d]: %w", i, err))
			continue
		}
		c.Roles[name] = role
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, nil
}

func (e AppEntry) toApplication() (*types.Application, error) {
	id := strings.TrimSpace(e.ID)
	if id == "" {
		return nil, errors.New("missing id")
	}
	if strings.TrimSpace(e.Path) == "" {
		return nil, fmt.Errorf("%s: missing path", id)
	}
	typ, err := types.ParseApplicationType(e.Type)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	role := types.RoleUser
	if e.MinimumRole != "" {
		if role, err = types.ParseRole(e.MinimumRole); err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}
	}
	policy, err := types.ParseInstancePolicy(e.InstancePolicy)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	name := e.Name
	if name == "" {
		name = id
	}
	return &types.Application{
		ID:               id,
		Name:             name,
		Type:             typ,
		ExecutablePath:   strings.TrimSpace(e.Path),
		Arguments:        e.Arguments,
		WorkingDirectory: e.WorkingDirectory,
		Category:         e.Category,
		MinimumRole:      role,
		Enabled:          e.Enabled == nil || *e.Enabled,
		InstancePolicy:   policy,
		IconPath:         e.Icon,
		Description:      e.Description,
	}, nil
}
