// Package permission models the per-resource action flags carried by roles.
//
// A role stores its permissions as a JSON object keyed by resource name:
//
//	{"products": {"create": true, "read": true}, "orders": {"read": true}}
//
// Absent resources and absent flags both mean "not allowed".
package permission

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrMalformed       = errors.New("invalid_permissions")
	ErrUnknownResource = errors.New("unknown_resource")
	ErrInvalidFlag     = errors.New("invalid_permission_flag")
)

// Resource names a protected entity kind.
type Resource string

const (
	Users             Resource = "users"
	Roles             Resource = "roles"
	Students          Resource = "students"
	Trainers          Resource = "trainers"
	TrainerMatches    Resource = "trainer_matches"
	Exercises         Resource = "exercises"
	Programs          Resource = "programs"
	Workouts          Resource = "workouts"
	Equipment         Resource = "equipment"
	Products          Resource = "products"
	ProductCategories Resource = "product_categories"
	Orders            Resource = "orders"
	AuditLogs         Resource = "audit_logs"
)

var knownResources = map[Resource]struct{}{
	Users:             {},
	Roles:             {},
	Students:          {},
	Trainers:          {},
	TrainerMatches:    {},
	Exercises:         {},
	Programs:          {},
	Workouts:          {},
	Equipment:         {},
	Products:          {},
	ProductCategories: {},
	Orders:            {},
	AuditLogs:         {},
}

// Resources returns every known resource in a stable order.
func Resources() []Resource {
	out := make([]Resource, 0, len(knownResources))
	for r := range knownResources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Valid reports whether r is a known resource.
func (r Resource) Valid() bool {
	_, ok := knownResources[r]
	return ok
}

// Action is a verb performed against a resource. The four CRUD verbs have
// dedicated flags; any other action is looked up in the custom flag set.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Flags is the set of allowed actions for one resource.
type Flags struct {
	Create bool
	Read   bool
	Update bool
	Delete bool
	Custom map[string]bool
}

// All grants the four CRUD actions.
func All() Flags {
	return Flags{Create: true, Read: true, Update: true, Delete: true}
}

// ReadOnly grants read only.
func ReadOnly() Flags {
	return Flags{Read: true}
}

// Allows reports whether the flag set grants action.
func (f Flags) Allows(action Action) bool {
	switch action {
	case ActionCreate:
		return f.Create
	case ActionRead:
		return f.Read
	case ActionUpdate:
		return f.Update
	case ActionDelete:
		return f.Delete
	default:
		return f.Custom[string(action)]
	}
}

func (f Flags) clone() Flags {
	out := f
	if f.Custom != nil {
		out.Custom = make(map[string]bool, len(f.Custom))
		for k, v := range f.Custom {
			out.Custom[k] = v
		}
	}
	return out
}

func (f Flags) MarshalJSON() ([]byte, error) {
	out := make(map[string]bool, 4+len(f.Custom))
	for k, v := range f.Custom {
		out[k] = v
	}
	out[string(ActionCreate)] = f.Create
	out[string(ActionRead)] = f.Read
	out[string(ActionUpdate)] = f.Update
	out[string(ActionDelete)] = f.Delete
	return json.Marshal(out)
}

func (f *Flags) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: flags must be an object", ErrMalformed)
	}
	if raw == nil {
		return fmt.Errorf("%w: flags must be an object", ErrMalformed)
	}

	var parsed Flags
	for key, value := range raw {
		name := strings.TrimSpace(key)
		if name == "" {
			return fmt.Errorf("%w: empty flag name", ErrInvalidFlag)
		}
		var allowed bool
		if err := json.Unmarshal(value, &allowed); err != nil {
			return fmt.Errorf("%w: %s must be a boolean", ErrInvalidFlag, name)
		}
		switch Action(name) {
		case ActionCreate:
			parsed.Create = allowed
		case ActionRead:
			parsed.Read = allowed
		case ActionUpdate:
			parsed.Update = allowed
		case ActionDelete:
			parsed.Delete = allowed
		default:
			if parsed.Custom == nil {
				parsed.Custom = make(map[string]bool)
			}
			parsed.Custom[name] = allowed
		}
	}
	*f = parsed
	return nil
}

// Permissions maps each resource to its flag set.
type Permissions map[Resource]Flags

// Parse decodes and validates a raw permission document. Empty input and
// JSON null decode to an empty set.
func Parse(raw []byte) (Permissions, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Permissions{}, nil
	}
	if trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: permissions must be an object", ErrMalformed)
	}

	var perms Permissions
	if err := json.Unmarshal(trimmed, &perms); err != nil {
		if errors.Is(err, ErrInvalidFlag) || errors.Is(err, ErrMalformed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if perms == nil {
		perms = Permissions{}
	}
	if err := perms.Validate(); err != nil {
		return nil, err
	}
	return perms, nil
}

// Validate rejects resources outside the closed resource set.
func (p Permissions) Validate() error {
	for resource := range p {
		if !resource.Valid() {
			return fmt.Errorf("%w: %s", ErrUnknownResource, resource)
		}
	}
	return nil
}

// Allows reports whether the permission set grants action on resource.
// A nil set grants nothing.
func (p Permissions) Allows(resource Resource, action Action) bool {
	if p == nil {
		return false
	}
	flags, ok := p[resource]
	if !ok {
		return false
	}
	return flags.Allows(action)
}

// Clone returns a deep copy.
func (p Permissions) Clone() Permissions {
	if p == nil {
		return nil
	}
	out := make(Permissions, len(p))
	for r, f := range p {
		out[r] = f.clone()
	}
	return out
}

// Marshal encodes the set for storage. A nil set encodes as an empty object.
func (p Permissions) Marshal() ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[Resource]Flags(p))
}

// Merge applies patch on top of base and returns a new set. Each resource
// present in patch replaces that resource's flag set in full; resources
// absent from patch keep their base flags. Neither input is modified.
func Merge(base, patch Permissions) Permissions {
	out := base.Clone()
	if out == nil {
		out = Permissions{}
	}
	for r, f := range patch {
		out[r] = f.clone()
	}
	return out
}
