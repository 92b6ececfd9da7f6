package authorization

import (
	"testing"

	"github.com/smallbiznis/gymcore/internal/permission"
	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	perms := permission.Permissions{
		permission.Orders:   {Read: true, Delete: true},
		permission.Students: {Read: true, Update: false},
	}

	cases := []struct {
		name     string
		perms    permission.Permissions
		resource permission.Resource
		action   permission.Action
		own      Ownership
		want     bool
	}{
		{"explicit true", perms, permission.Orders, permission.ActionRead, Unscoped, true},
		{"explicit false", perms, permission.Students, permission.ActionUpdate, Unscoped, false},
		{"missing flag", perms, permission.Orders, permission.ActionCreate, Unscoped, false},
		{"missing resource", perms, permission.Products, permission.ActionRead, Unscoped, false},
		{"nil set", nil, permission.Orders, permission.ActionRead, Unscoped, false},
		{"unknown resource", perms, permission.Resource("gyms"), permission.ActionRead, Unscoped, false},
		{"empty action", perms, permission.Orders, "", Unscoped, false},
		{"owned record", perms, permission.Orders, permission.ActionDelete, Ownership{Scoped: true, Owned: true}, true},
		{"someone else's record", perms, permission.Orders, permission.ActionDelete, Ownership{Scoped: true}, false},
		{"ownership does not replace permission", perms, permission.Orders, permission.ActionUpdate, Ownership{Scoped: true, Owned: true}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Evaluate(tc.perms, tc.resource, tc.action, tc.own))
		})
	}
}

func TestGrantContext(t *testing.T) {
	grant := &Grant{RoleName: "Coach", Permissions: permission.Permissions{permission.Workouts: permission.All()}}
	ctx := WithGrant(t.Context(), grant)

	got, ok := GrantFromContext(ctx)
	assert.True(t, ok)
	assert.Same(t, grant, got)
	assert.True(t, got.Allows(permission.Workouts, permission.ActionDelete))
	assert.False(t, got.Allows(permission.Orders, permission.ActionRead))

	_, ok = GrantFromContext(t.Context())
	assert.False(t, ok)

	var empty *Grant
	assert.False(t, empty.Allows(permission.Workouts, permission.ActionRead))
}
