package model

import (
	"encoding/json"
	"fmt"
)

// Role is a totally ordered access level: RoleViewer < RoleEditor < RoleOwner.
// RoleNone is the zero value and ranks below every real role.
type Role int

const (
	RoleNone Role = iota
	RoleViewer
	RoleEditor
	RoleOwner
)

var roleNames = [...]string{
	RoleNone:   "",
	RoleViewer: "viewer",
	RoleEditor: "editor",
	RoleOwner:  "owner",
}

// ParseRole converts a stored or user-supplied role name.
func ParseRole(s string) (Role, error) {
	switch s {
	case "viewer":
		return RoleViewer, nil
	case "editor":
		return RoleEditor, nil
	case "owner":
		return RoleOwner, nil
	default:
		return RoleNone, fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) String() string {
	if r < RoleNone || r > RoleOwner {
		return fmt.Sprintf("Role(%d)", int(r))
	}
	return roleNames[r]
}

// Satisfies reports whether r grants at least the required role.
func (r Role) Satisfies(required Role) bool {
	return r != RoleNone && r >= required
}

// Max returns the higher of two roles.
func (r Role) Max(other Role) Role {
	if other > r {
		return other
	}
	return r
}

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// ResourceType distinguishes the two kinds of resource a permission can target.
type ResourceType string

const (
	ResourceFile   ResourceType = "file"
	ResourceFolder ResourceType = "folder"
)

// ParseResourceType validates a resource type name.
func ParseResourceType(s string) (ResourceType, error) {
	switch ResourceType(s) {
	case ResourceFile, ResourceFolder:
		return ResourceType(s), nil
	default:
		return "", fmt.Errorf("unknown resource type %q", s)
	}
}
