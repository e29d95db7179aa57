package project

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/example/taskboard/domain/board"
	"github.com/example/taskboard/modules/cache"
)

// AccessService resolves an actor's effective role for a project. Results are
// cached in Redis; concurrent misses for the same pair collapse through
// singleflight.
type AccessService struct {
	repo  *Repository
	cache *cache.Cache
	group singleflight.Group
}

// NewAccessService creates an access service. cache may be nil, in which case
// every lookup hits the database.
func NewAccessService(repo *Repository, c *cache.Cache) *AccessService {
	return &AccessService{
		repo:  repo,
		cache: c,
	}
}

// EffectiveRole resolves the actor's role for the project: owner by identity
// equality, otherwise the roster row, otherwise none. The project must exist.
func (a *AccessService) EffectiveRole(ctx context.Context, actorID, projectID string) (board.Role, error) {
	if a.cache != nil {
		var cached board.Role
		if hit, err := a.cache.Get(ctx, roleKey(projectID, actorID), &cached); err == nil && hit {
			return cached, nil
		}
	}

	v, err, _ := a.group.Do(roleKey(projectID, actorID), func() (any, error) {
		role, err := a.resolve(actorID, projectID)
		if err != nil {
			return board.RoleNone, err
		}
		if a.cache != nil {
			// Best effort; a cold cache only costs another lookup.
			_ = a.cache.Set(ctx, roleKey(projectID, actorID), role)
		}
		return role, nil
	})
	if err != nil {
		return board.RoleNone, err
	}
	return v.(board.Role), nil
}

func (a *AccessService) resolve(actorID, projectID string) (board.Role, error) {
	p, err := a.repo.FindByID(projectID)
	if err != nil {
		return board.RoleNone, err
	}
	if p.OwnerID == actorID {
		return board.RoleOwner, nil
	}
	member, err := a.repo.FindMember(projectID, actorID)
	if err != nil {
		if errors.Is(err, board.ErrNotFound) {
			return board.ResolveRole(actorID, p, nil), nil
		}
		return board.RoleNone, err
	}
	return board.ResolveRole(actorID, p, member), nil
}

// Require resolves the actor's role and checks it against the required
// minimum, returning the role on success and ErrAccessDenied otherwise.
func (a *AccessService) Require(ctx context.Context, actorID, projectID string, required board.Role) (board.Role, error) {
	role, err := a.EffectiveRole(ctx, actorID, projectID)
	if err != nil {
		return board.RoleNone, err
	}
	if !role.AtLeast(required) {
		return role, fmt.Errorf("%s role required: %w", required, board.ErrAccessDenied)
	}
	return role, nil
}

// RequireOwner checks for the owner role exactly. Project deletion is the
// one operation admins cannot perform.
func (a *AccessService) RequireOwner(ctx context.Context, actorID, projectID string) error {
	role, err := a.EffectiveRole(ctx, actorID, projectID)
	if err != nil {
		return err
	}
	if role != board.RoleOwner {
		return fmt.Errorf("owner role required: %w", board.ErrAccessDenied)
	}
	return nil
}

// Invalidate drops cached roles for one (project, user) pair.
func (a *AccessService) Invalidate(ctx context.Context, projectID, userID string) {
	if a.cache == nil {
		return
	}
	_ = a.cache.Delete(ctx, roleKey(projectID, userID))
}

func roleKey(projectID, userID string) string {
	return "role:" + projectID + ":" + userID
}
