package user

import (
	"github.com/smallbiznis/gymcore/internal/user/repository"
	"github.com/smallbiznis/gymcore/internal/user/service"
	"go.uber.org/fx"
)

var Module = fx.Module("user.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
