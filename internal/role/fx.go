package role

import (
	"github.com/smallbiznis/gymcore/internal/role/repository"
	"github.com/smallbiznis/gymcore/internal/role/service"
	"go.uber.org/fx"
)

var Module = fx.Module("role.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
