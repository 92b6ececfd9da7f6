package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRoleTemplatesAreValid(t *testing.T) {
	cfg := DefaultRoleTemplates()
	require.NoError(t, ValidateRoleTemplates(cfg))

	holder := NewStaticRoleTemplateHolder(cfg)
	owner, ok := holder.Lookup(TemplateGymOwner)
	require.True(t, ok)
	assert.Equal(t, "GymOwner", owner.Name)
	assert.True(t, owner.Permissions["audit_logs"]["read"])

	student, ok := holder.Lookup(TemplateStudent)
	require.True(t, ok)
	assert.True(t, student.Permissions["orders"]["delete"])
	assert.False(t, student.Permissions["orders"]["update"])

	_, ok = holder.Lookup("missing")
	assert.False(t, ok)
}

func TestValidateRoleTemplates(t *testing.T) {
	base := DefaultRoleTemplates()

	t.Run("empty", func(t *testing.T) {
		assert.Error(t, ValidateRoleTemplates(RoleTemplateConfig{}))
	})

	t.Run("unknown resource", func(t *testing.T) {
		cfg := RoleTemplateConfig{Templates: append([]RoleTemplate{}, base.Templates...)}
		cfg.Templates = append(cfg.Templates, RoleTemplate{
			Key:         "janitor",
			Name:        "Janitor",
			Permissions: map[string]map[string]bool{"mops": {"read": true}},
		})
		assert.ErrorContains(t, ValidateRoleTemplates(cfg), "unknown resource")
	})

	t.Run("duplicate key", func(t *testing.T) {
		cfg := RoleTemplateConfig{Templates: append([]RoleTemplate{}, base.Templates...)}
		cfg.Templates = append(cfg.Templates, base.Templates[0])
		assert.ErrorContains(t, ValidateRoleTemplates(cfg), "duplicate")
	})

	t.Run("missing system template", func(t *testing.T) {
		cfg := RoleTemplateConfig{Templates: []RoleTemplate{base.Templates[0]}}
		assert.ErrorContains(t, ValidateRoleTemplates(cfg), "is required")
	})
}
