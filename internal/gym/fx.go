package gym

import (
	"github.com/smallbiznis/gymcore/internal/gym/repository"
	"github.com/smallbiznis/gymcore/internal/gym/service"
	"go.uber.org/fx"
)

var Module = fx.Module("gym.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
