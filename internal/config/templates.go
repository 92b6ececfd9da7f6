package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/smallbiznis/gymcore/internal/permission"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Template keys of the built-in role templates. The first three back the
// system roles every gym is provisioned with.
const (
	TemplateGymOwner  = "gym_owner"
	TemplateTrainer   = "trainer"
	TemplateStudent   = "student"
	TemplateFrontDesk = "front_desk"
	TemplateReadOnly  = "read_only"
)

// RoleTemplate is a named permission preset used to create roles.
type RoleTemplate struct {
	Key         string                     `mapstructure:"key" json:"key"`
	Name        string                     `mapstructure:"name" json:"name"`
	Description string                     `mapstructure:"description" json:"description"`
	Permissions map[string]map[string]bool `mapstructure:"permissions" json:"permissions"`
}

type RoleTemplateConfig struct {
	Templates []RoleTemplate `mapstructure:"templates"`
}

func crud() map[string]bool {
	return map[string]bool{"create": true, "read": true, "update": true, "delete": true}
}

func flags(actions ...string) map[string]bool {
	out := make(map[string]bool, len(actions))
	for _, a := range actions {
		out[a] = true
	}
	return out
}

func DefaultRoleTemplates() RoleTemplateConfig {
	owner := make(map[string]map[string]bool)
	for _, r := range permission.Resources() {
		owner[string(r)] = crud()
	}

	readOnly := make(map[string]map[string]bool)
	for _, r := range permission.Resources() {
		if r == permission.AuditLogs || r == permission.Roles {
			continue
		}
		readOnly[string(r)] = flags("read")
	}

	return RoleTemplateConfig{Templates: []RoleTemplate{
		{
			Key:         TemplateGymOwner,
			Name:        "GymOwner",
			Description: "Full access to every resource of the gym.",
			Permissions: owner,
		},
		{
			Key:         TemplateTrainer,
			Name:        "Trainer",
			Description: "Coaches assigned students and manages training content.",
			Permissions: map[string]map[string]bool{
				"users":              flags("read"),
				"students":           flags("read", "update"),
				"trainers":           flags("read"),
				"trainer_matches":    flags("read", "update"),
				"exercises":          crud(),
				"programs":           crud(),
				"workouts":           crud(),
				"equipment":          flags("read"),
				"products":           flags("read"),
				"product_categories": flags("read"),
				"orders":             flags("create", "read"),
			},
		},
		{
			Key:         TemplateStudent,
			Name:        "Student",
			Description: "Members who train and buy from the gym shop.",
			Permissions: map[string]map[string]bool{
				"trainers":           flags("read"),
				"trainer_matches":    flags("read"),
				"exercises":          flags("read"),
				"programs":           flags("read"),
				"workouts":           flags("create", "read"),
				"products":           flags("read"),
				"product_categories": flags("read"),
				"orders":             flags("create", "read", "delete"),
			},
		},
		{
			Key:         TemplateFrontDesk,
			Name:        "Front Desk",
			Description: "Registers members, pairs trainers and handles shop orders.",
			Permissions: map[string]map[string]bool{
				"users":              flags("create", "read", "update"),
				"students":           flags("read"),
				"trainers":           flags("read"),
				"trainer_matches":    crud(),
				"equipment":          flags("read"),
				"products":           flags("read", "update"),
				"product_categories": flags("read"),
				"orders":             flags("read", "update"),
			},
		},
		{
			Key:         TemplateReadOnly,
			Name:        "Read Only",
			Description: "Can view gym data but not change it.",
			Permissions: readOnly,
		},
	}}
}

// RoleTemplateHolder serves the current template set and swaps it when the
// backing file changes.
type RoleTemplateHolder struct {
	current atomic.Value // holds RoleTemplateConfig
}

// NewStaticRoleTemplateHolder returns a holder that never reloads.
func NewStaticRoleTemplateHolder(cfg RoleTemplateConfig) *RoleTemplateHolder {
	holder := &RoleTemplateHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewRoleTemplateHolder(log *zap.Logger) (*RoleTemplateHolder, error) {
	log = log.Named("config.role_templates")
	v := viper.New()

	v.SetConfigName("role_templates")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/gymcore")
	v.AddConfigPath(".")

	v.SetEnvPrefix("GYMCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		v.SetDefault("role.templates", DefaultRoleTemplates().Templates)
	}

	var cfg RoleTemplateConfig
	if err := v.UnmarshalKey("role", &cfg); err != nil {
		return nil, err
	}
	if err := ValidateRoleTemplates(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticRoleTemplateHolder(cfg)

	if v.ConfigFileUsed() != "" {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated RoleTemplateConfig
			if err := v.UnmarshalKey("role", &updated); err != nil {
				log.Warn("reload failed", zap.Error(err))
				return
			}
			if err := ValidateRoleTemplates(updated); err != nil {
				log.Warn("invalid templates ignored", zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

func (h *RoleTemplateHolder) Get() RoleTemplateConfig {
	return h.current.Load().(RoleTemplateConfig)
}

// Lookup returns the template with key, if any.
func (h *RoleTemplateHolder) Lookup(key string) (RoleTemplate, bool) {
	key = strings.TrimSpace(key)
	for _, tpl := range h.Get().Templates {
		if tpl.Key == key {
			return tpl, true
		}
	}
	return RoleTemplate{}, false
}

// ValidateRoleTemplates rejects template sets that would provision broken
// gyms: the system templates must exist and every resource must be known.
func ValidateRoleTemplates(cfg RoleTemplateConfig) error {
	if len(cfg.Templates) == 0 {
		return errors.New("role.templates cannot be empty")
	}
	seen := make(map[string]struct{}, len(cfg.Templates))
	for _, tpl := range cfg.Templates {
		key := strings.TrimSpace(tpl.Key)
		if key == "" || strings.TrimSpace(tpl.Name) == "" {
			return errors.New("role template requires key and name")
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate role template %q", key)
		}
		seen[key] = struct{}{}
		for resource := range tpl.Permissions {
			if !permission.Resource(resource).Valid() {
				return fmt.Errorf("role template %q: unknown resource %q", key, resource)
			}
		}
	}
	for _, required := range []string{TemplateGymOwner, TemplateTrainer, TemplateStudent} {
		if _, ok := seen[required]; !ok {
			return fmt.Errorf("role template %q is required", required)
		}
	}
	return nil
}
