package types

import (
	"fmt"
	"strings"
)

// ApplicationType selects the launcher family for an application
type ApplicationType string

const (
	TypeDesktop   ApplicationType = "desktop"
	TypeChromeApp ApplicationType = "chrome_app"
	TypeWeb       ApplicationType = "web"
	TypeFolder    ApplicationType = "folder"
	TypeAndroid   ApplicationType = "android"
)

// ApplicationTypes lists every supported type in display order
var ApplicationTypes = []ApplicationType{TypeDesktop, TypeChromeApp, TypeWeb, TypeFolder, TypeAndroid}

// ParseApplicationType accepts the canonical names plus a few aliases used
// in hand-written catalogs.
func ParseApplicationType(s string) (ApplicationType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "desktop", "exe", "executable":
		return TypeDesktop, nil
	case "chrome_app", "chromeapp", "chrome":
		return TypeChromeApp, nil
	case "web", "url", "webapp":
		return TypeWeb, nil
	case "folder", "directory":
		return TypeFolder, nil
	case "android", "apk", "wsa":
		return TypeAndroid, nil
	}
	return "", fmt.Errorf("unknown application type %q", s)
}

// Role is an ordered authorization level
type Role int

const (
	RoleGuest Role = iota
	RoleUser
	RolePowerUser
	RoleAdministrator
)

var roleNames = map[Role]string{
	RoleGuest:         "guest",
	RoleUser:          "user",
	RolePowerUser:     "power_user",
	RoleAdministrator: "administrator",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// Allows reports whether a holder of r may use something requiring min.
func (r Role) Allows(min Role) bool {
	return r >= min
}

// ParseRole parses a role name
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "guest":
		return RoleGuest, nil
	case "user", "standard":
		return RoleUser, nil
	case "power_user", "poweruser", "power":
		return RolePowerUser, nil
	case "administrator", "admin":
		return RoleAdministrator, nil
	}
	return RoleGuest, fmt.Errorf("unknown role %q", s)
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// InstancePolicy decides what a launch does when the application already
// has a live instance.
type InstancePolicy string

const (
	// PolicyMultiple always starts a new instance
	PolicyMultiple InstancePolicy = "multiple"
	// PolicySingle returns the existing instance untouched
	PolicySingle InstancePolicy = "single"
	// PolicySingleActivate returns the existing instance after bringing it forward
	PolicySingleActivate InstancePolicy = "single_activate"
)

// ParseInstancePolicy parses a policy name; empty means PolicyMultiple.
func ParseInstancePolicy(s string) (InstancePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "multiple", "multi":
		return PolicyMultiple, nil
	case "single":
		return PolicySingle, nil
	case "single_activate", "activate":
		return PolicySingleActivate, nil
	}
	return "", fmt.Errorf("unknown instance policy %q", s)
}

// Application is a catalog record. The lifecycle layer never mutates it.
type Application struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Type             ApplicationType `json:"type"`
	ExecutablePath   string          `json:"executable_path"`
	Arguments        string          `json:"arguments,omitempty"`
	WorkingDirectory string          `json:"working_directory,omitempty"`
	Category         string          `json:"category,omitempty"`
	MinimumRole      Role            `json:"minimum_role"`
	Enabled          bool            `json:"enabled"`
	InstancePolicy   InstancePolicy  `json:"instance_policy,omitempty"`
	IconPath         string          `json:"icon_path,omitempty"`
	Description      string          `json:"description,omitempty"`
}

// Policy returns the effective instance policy
func (a *Application) Policy() InstancePolicy {
	if a.InstancePolicy == "" {
		return PolicyMultiple
	}
	return a.InstancePolicy
}

// Clone returns a copy of the record
func (a *Application) Clone() *Application {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}
