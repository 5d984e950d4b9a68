package drive

import (
	"context"
	"fmt"

	"drive-go/internal/model"
)

// DenyReason tells why an authorization decision denied access. Callers must
// not expose it; both reasons surface as the same Forbidden error.
type DenyReason string

const (
	DenyNoPermission DenyReason = "no_permission"
	DenyRoleTooLow   DenyReason = "role_too_low"
)

// Resource identifies the target of an authorization decision.
type Resource struct {
	ID      string
	Type    model.ResourceType
	OwnerID string
	Trashed bool
}

func fileResource(f *model.File) Resource {
	return Resource{ID: f.ID, Type: model.ResourceFile, OwnerID: f.OwnerID, Trashed: f.IsTrashed()}
}

func folderResource(f *model.Folder) Resource {
	return Resource{ID: f.ID, Type: model.ResourceFolder, OwnerID: f.OwnerID, Trashed: f.IsTrashed()}
}

// Decision is the outcome of Authorize. Role is the effective role the actor
// holds on the resource, RoleNone when nothing applies.
type Decision struct {
	Allowed bool
	Role    model.Role
	Reason  DenyReason
}

// decide compares the effective role against the required one. found reports
// whether any grant applied at all.
func decide(effective model.Role, found bool, required model.Role) Decision {
	switch {
	case !found:
		return Decision{Reason: DenyNoPermission}
	case !effective.Satisfies(required):
		return Decision{Role: effective, Reason: DenyRoleTooLow}
	default:
		return Decision{Allowed: true, Role: effective}
	}
}

// Authorize decides whether actor holds at least required on res.
// Ownership is checked first and counts as an implicit owner grant. Then the
// actor's share link applies if it targets res and res is not trashed. Then
// the highest of the actor's own permission rows. Grants never flow from a
// folder to its children.
//
// Authorize does not check that res exists; callers load the resource first.
// An error is returned only when a permission lookup fails.
func (s *DriveService) Authorize(ctx context.Context, actor Actor, res Resource, required model.Role) (Decision, error) {
	if actor.Authenticated() && actor.UserID == res.OwnerID {
		return Decision{Allowed: true, Role: model.RoleOwner}, nil
	}

	effective := model.RoleNone
	found := false

	if actor.LinkToken != "" && !res.Trashed {
		perm, err := s.database.FindPermissionByLink(ctx, actor.LinkToken)
		if err != nil {
			return Decision{}, fmt.Errorf("finding link permission: %w", err)
		}
		if perm != nil && perm.ResourceID == res.ID && perm.ResourceType == res.Type {
			effective = effective.Max(perm.Role)
			found = true
		}
	}

	if actor.Authenticated() {
		perms, err := s.database.FindUserPermissions(ctx, actor.UserID, res.ID, res.Type)
		if err != nil {
			return Decision{}, fmt.Errorf("finding user permissions: %w", err)
		}
		for _, p := range perms {
			effective = effective.Max(p.Role)
			found = true
		}
	}

	d := decide(effective, found, required)
	if !d.Allowed {
		authorizationDenials.WithLabelValues(string(d.Reason)).Inc()
		s.logger.Debug("access denied",
			"resource_id", res.ID,
			"resource_type", string(res.Type),
			"required", required.String(),
			"reason", string(d.Reason))
	}
	return d, nil
}

// require turns a denial into ErrForbidden.
func (s *DriveService) require(ctx context.Context, actor Actor, res Resource, required model.Role) error {
	if actor.Anonymous() {
		return fmt.Errorf("%w: credential required", ErrUnauthenticated)
	}
	d, err := s.Authorize(ctx, actor, res, required)
	if err != nil {
		return upstream("authorizing", err)
	}
	if !d.Allowed {
		return fmt.Errorf("%w: %s role required on %s %s", ErrForbidden, required, res.Type, res.ID)
	}
	return nil
}

// lifecycle selects which states a lookup accepts.
type lifecycle int

const (
	activeOnly lifecycle = iota
	trashedOnly
	anyState
)

func (l lifecycle) accepts(trashed bool) bool {
	switch l {
	case activeOnly:
		return !trashed
	case trashedOnly:
		return trashed
	default:
		return true
	}
}

// loadFile fetches a file in the wanted state and checks the actor's role on
// it. Existence is checked before authorization. Link-only actors never see
// trashed resources.
func (s *DriveService) loadFile(ctx context.Context, actor Actor, id string, state lifecycle, required model.Role) (*model.File, error) {
	if actor.Anonymous() {
		return nil, fmt.Errorf("%w: credential required", ErrUnauthenticated)
	}
	f, err := s.database.FindFile(ctx, id)
	if err != nil {
		return nil, upstream("finding file", err)
	}
	if f == nil || !state.accepts(f.IsTrashed()) || (f.IsTrashed() && !actor.Authenticated()) {
		return nil, fmt.Errorf("%w: file %s", ErrNotFound, id)
	}
	if err := s.require(ctx, actor, fileResource(f), required); err != nil {
		return nil, err
	}
	return f, nil
}

// loadFolder is loadFile for folders.
func (s *DriveService) loadFolder(ctx context.Context, actor Actor, id string, state lifecycle, required model.Role) (*model.Folder, error) {
	if actor.Anonymous() {
		return nil, fmt.Errorf("%w: credential required", ErrUnauthenticated)
	}
	f, err := s.database.FindFolder(ctx, id)
	if err != nil {
		return nil, upstream("finding folder", err)
	}
	if f == nil || !state.accepts(f.IsTrashed()) || (f.IsTrashed() && !actor.Authenticated()) {
		return nil, fmt.Errorf("%w: folder %s", ErrNotFound, id)
	}
	if err := s.require(ctx, actor, folderResource(f), required); err != nil {
		return nil, err
	}
	return f, nil
}
