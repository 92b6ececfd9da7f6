package trainermatch

import (
	"github.com/smallbiznis/gymcore/internal/trainermatch/repository"
	"github.com/smallbiznis/gymcore/internal/trainermatch/service"
	"go.uber.org/fx"
)

var Module = fx.Module("trainermatch.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
