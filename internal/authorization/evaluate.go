package authorization

import "github.com/smallbiznis/gymcore/internal/permission"

// Ownership qualifies a check with a relationship between the caller and
// the target record. When Scoped is set the caller must also own the
// record; the base permission is still required.
type Ownership struct {
	Scoped bool
	Owned  bool
}

// Unscoped is the ownership value for plain resource checks.
var Unscoped = Ownership{}

// Evaluate decides a single check against a permission set. Only an
// explicit true flag grants access.
func Evaluate(perms permission.Permissions, resource permission.Resource, action permission.Action, own Ownership) bool {
	if !resource.Valid() || action == "" {
		return false
	}
	if !perms.Allows(resource, action) {
		return false
	}
	if own.Scoped && !own.Owned {
		return false
	}
	return true
}
