package authorization

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gymcore/internal/permission"
)

// Grant is the outcome of a successful check: the caller, the role that
// was evaluated and its permissions as read for this request.
type Grant struct {
	UserID      snowflake.ID
	GymID       snowflake.ID
	RoleID      snowflake.ID
	RoleName    string
	Permissions permission.Permissions
}

// Allows evaluates another action against the permissions already loaded
// for this request.
func (g *Grant) Allows(resource permission.Resource, action permission.Action) bool {
	if g == nil {
		return false
	}
	return Evaluate(g.Permissions, resource, action, Unscoped)
}

type grantContextKey struct{}

func WithGrant(ctx context.Context, grant *Grant) context.Context {
	return context.WithValue(ctx, grantContextKey{}, grant)
}

func GrantFromContext(ctx context.Context) (*Grant, bool) {
	if ctx == nil {
		return nil, false
	}
	grant, ok := ctx.Value(grantContextKey{}).(*Grant)
	return grant, ok && grant != nil
}
