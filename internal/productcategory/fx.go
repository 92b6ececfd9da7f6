package productcategory

import (
	"github.com/smallbiznis/gymcore/internal/productcategory/domain"
	"github.com/smallbiznis/gymcore/internal/productcategory/service"
	"github.com/smallbiznis/gymcore/pkg/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("productcategory.service",
	fx.Provide(repository.ProvideStore[domain.ProductCategory]),
	fx.Provide(service.New),
)
