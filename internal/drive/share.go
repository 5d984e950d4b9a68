package drive

import (
	"context"
	"fmt"

	"drive-go/internal/model"
)

// loadResource loads a file or folder by type and checks the actor's role on
// it.
func (s *DriveService) loadResource(ctx context.Context, actor Actor, id string, typ model.ResourceType, state lifecycle, required model.Role) (Resource, error) {
	switch typ {
	case model.ResourceFile:
		f, err := s.loadFile(ctx, actor, id, state, required)
		if err != nil {
			return Resource{}, err
		}
		return fileResource(f), nil
	case model.ResourceFolder:
		f, err := s.loadFolder(ctx, actor, id, state, required)
		if err != nil {
			return Resource{}, err
		}
		return folderResource(f), nil
	default:
		return Resource{}, fmt.Errorf("%w: invalid resource type %q", ErrBadRequest, typ)
	}
}

// grantableRole reports whether a link or grant may carry role. Ownership is
// never delegated.
func grantableRole(role model.Role) error {
	if role != model.RoleViewer && role != model.RoleEditor {
		return fmt.Errorf("%w: invalid role %q, want viewer or editor", ErrBadRequest, role)
	}
	return nil
}

func validResourceType(typ model.ResourceType) error {
	if typ != model.ResourceFile && typ != model.ResourceFolder {
		return fmt.Errorf("%w: invalid resource type %q", ErrBadRequest, typ)
	}
	return nil
}

// CreateLink mints a share link granting role on an active resource. Only the
// owner may share, and only viewer or editor links exist.
func (s *DriveService) CreateLink(ctx context.Context, actor Actor, resourceID string, typ model.ResourceType, role model.Role) (_ *model.Permission, err error) {
	defer observe("create_link", &err)

	if err := requireUser(actor); err != nil {
		return nil, err
	}
	if err := validResourceType(typ); err != nil {
		return nil, err
	}
	if err := grantableRole(role); err != nil {
		return nil, err
	}
	if _, err := s.loadResource(ctx, actor, resourceID, typ, activeOnly, model.RoleOwner); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < linkTokenAttempts; attempt++ {
		token, err := s.tokens.New()
		if err != nil {
			return nil, fmt.Errorf("%w: generating link token: %w", ErrInternal, err)
		}
		perm := &model.Permission{
			ID:           s.idgen.New(),
			UserID:       actor.UserID,
			ResourceID:   resourceID,
			ResourceType: typ,
			Role:         role,
			SharedLink:   &token,
			CreatedAt:    s.now(),
		}
		err = s.database.CreatePermission(ctx, perm)
		if err == nil {
			s.logger.Info("share link created", "resource_id", resourceID, "resource_type", string(typ), "role", role.String())
			return perm, nil
		}
		if KindOf(err) != KindConflict {
			return nil, upstream("creating link", err)
		}
		s.logger.Warn("link token collision, retrying", "attempt", attempt+1)
	}
	return nil, fmt.Errorf("%w: could not mint a unique link token", ErrInternal)
}

// SharedResource is what a share link points at.
type SharedResource struct {
	ResourceType model.ResourceType `json:"resource_type"`
	Role         model.Role         `json:"role"`
	File         *model.File        `json:"file,omitempty"`
	Folder       *model.Folder      `json:"folder,omitempty"`
}

// ResolveLink returns the resource and role a token grants. No principal is
// needed. Unknown tokens and links to missing or trashed resources are
// NotFound.
func (s *DriveService) ResolveLink(ctx context.Context, token string) (_ *SharedResource, err error) {
	defer observe("resolve_link", &err)

	if token == "" {
		return nil, fmt.Errorf("%w: link", ErrNotFound)
	}
	perm, err := s.database.FindPermissionByLink(ctx, token)
	if err != nil {
		return nil, upstream("finding link", err)
	}
	if perm == nil {
		return nil, fmt.Errorf("%w: link not found", ErrNotFound)
	}

	shared := &SharedResource{ResourceType: perm.ResourceType, Role: perm.Role}
	switch perm.ResourceType {
	case model.ResourceFile:
		f, err := s.database.FindFile(ctx, perm.ResourceID)
		if err != nil {
			return nil, upstream("finding shared file", err)
		}
		if f == nil || f.IsTrashed() {
			return nil, fmt.Errorf("%w: link not found", ErrNotFound)
		}
		shared.File = f
	case model.ResourceFolder:
		f, err := s.database.FindFolder(ctx, perm.ResourceID)
		if err != nil {
			return nil, upstream("finding shared folder", err)
		}
		if f == nil || f.IsTrashed() {
			return nil, fmt.Errorf("%w: link not found", ErrNotFound)
		}
		shared.Folder = f
	default:
		return nil, fmt.Errorf("%w: link has resource type %q", ErrInternal, perm.ResourceType)
	}
	return shared, nil
}

// GrantRole gives granteeID role on a resource the actor owns.
func (s *DriveService) GrantRole(ctx context.Context, actor Actor, resourceID string, typ model.ResourceType, granteeID string, role model.Role) (_ *model.Permission, err error) {
	defer observe("grant_role", &err)

	if err := requireUser(actor); err != nil {
		return nil, err
	}
	if err := validResourceType(typ); err != nil {
		return nil, err
	}
	if err := grantableRole(role); err != nil {
		return nil, err
	}
	if granteeID == "" {
		return nil, fmt.Errorf("%w: grantee is required", ErrBadRequest)
	}
	res, err := s.loadResource(ctx, actor, resourceID, typ, activeOnly, model.RoleOwner)
	if err != nil {
		return nil, err
	}
	if granteeID == res.OwnerID {
		return nil, fmt.Errorf("%w: the owner already holds every role", ErrBadRequest)
	}

	perm := &model.Permission{
		ID:           s.idgen.New(),
		UserID:       granteeID,
		ResourceID:   resourceID,
		ResourceType: typ,
		Role:         role,
		CreatedAt:    s.now(),
	}
	if err := s.database.CreatePermission(ctx, perm); err != nil {
		return nil, upstream("granting role", err)
	}

	s.logger.Info("role granted", "resource_id", resourceID, "grantee", granteeID, "role", role.String())
	return perm, nil
}

// ListPermissions returns the grants and links on a resource the actor owns.
func (s *DriveService) ListPermissions(ctx context.Context, actor Actor, resourceID string, typ model.ResourceType) (_ []*model.Permission, err error) {
	defer observe("list_permissions", &err)

	if err := requireUser(actor); err != nil {
		return nil, err
	}
	if _, err := s.loadResource(ctx, actor, resourceID, typ, anyState, model.RoleOwner); err != nil {
		return nil, err
	}
	perms, err := s.database.ListPermissions(ctx, resourceID, typ)
	if err != nil {
		return nil, upstream("listing permissions", err)
	}
	return perms, nil
}

// RevokePermission deletes a grant or link. The actor must own its resource.
func (s *DriveService) RevokePermission(ctx context.Context, actor Actor, permissionID string) (err error) {
	defer observe("revoke_permission", &err)

	if err := requireUser(actor); err != nil {
		return err
	}
	perm, err := s.database.FindPermission(ctx, permissionID)
	if err != nil {
		return upstream("finding permission", err)
	}
	if perm == nil {
		return fmt.Errorf("%w: permission %s", ErrNotFound, permissionID)
	}
	if _, err := s.loadResource(ctx, actor, perm.ResourceID, perm.ResourceType, anyState, model.RoleOwner); err != nil {
		return err
	}
	if err := s.database.DeletePermission(ctx, permissionID); err != nil {
		return upstream("revoking permission", err)
	}

	s.logger.Info("permission revoked", "permission_id", permissionID, "resource_id", perm.ResourceID)
	return nil
}

// Shared lists resources other principals granted to the actor.
type Shared struct {
	Folders []*model.Folder `json:"folders"`
	Files   []*model.File   `json:"files"`
}

// ListShared returns the active resources on which the actor holds a grant.
func (s *DriveService) ListShared(ctx context.Context, actor Actor) (_ *Shared, err error) {
	defer observe("list_shared", &err)

	if err := requireUser(actor); err != nil {
		return nil, err
	}
	folders, err := s.database.ListSharedFolders(ctx, actor.UserID)
	if err != nil {
		return nil, upstream("listing shared folders", err)
	}
	files, err := s.database.ListSharedFiles(ctx, actor.UserID)
	if err != nil {
		return nil, upstream("listing shared files", err)
	}
	return &Shared{Folders: folders, Files: files}, nil
}
