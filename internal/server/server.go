package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/gymcore/internal/audit"
	auditdomain "github.com/smallbiznis/gymcore/internal/audit/domain"
	"github.com/smallbiznis/gymcore/internal/auth"
	authdomain "github.com/smallbiznis/gymcore/internal/auth/domain"
	"github.com/smallbiznis/gymcore/internal/auth/session"
	"github.com/smallbiznis/gymcore/internal/authorization"
	"github.com/smallbiznis/gymcore/internal/config"
	"github.com/smallbiznis/gymcore/internal/gym"
	gymdomain "github.com/smallbiznis/gymcore/internal/gym/domain"
	"github.com/smallbiznis/gymcore/internal/observability"
	obslogger "github.com/smallbiznis/gymcore/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/gymcore/internal/observability/metrics"
	obstracing "github.com/smallbiznis/gymcore/internal/observability/tracing"
	"github.com/smallbiznis/gymcore/internal/order"
	orderdomain "github.com/smallbiznis/gymcore/internal/order/domain"
	"github.com/smallbiznis/gymcore/internal/permission"
	"github.com/smallbiznis/gymcore/internal/product"
	productdomain "github.com/smallbiznis/gymcore/internal/product/domain"
	"github.com/smallbiznis/gymcore/internal/productcategory"
	categorydomain "github.com/smallbiznis/gymcore/internal/productcategory/domain"
	"github.com/smallbiznis/gymcore/internal/ratelimit"
	"github.com/smallbiznis/gymcore/internal/role"
	roledomain "github.com/smallbiznis/gymcore/internal/role/domain"
	"github.com/smallbiznis/gymcore/internal/trainermatch"
	matchdomain "github.com/smallbiznis/gymcore/internal/trainermatch/domain"
	"github.com/smallbiznis/gymcore/internal/user"
	userdomain "github.com/smallbiznis/gymcore/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	auth.Module,
	role.Module,
	user.Module,
	gym.Module,
	trainermatch.Module,
	productcategory.Module,
	product.Module,
	order.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	sessions     *session.Manager
	authsvc      authdomain.Service
	authzSvc     authorization.Service
	auditSvc     auditdomain.Service
	gymSvc       gymdomain.Service
	roleSvc      roledomain.Service
	userSvc      userdomain.Service
	matchSvc     matchdomain.Service
	categorySvc  categorydomain.Service
	productSvc   productdomain.Service
	orderSvc     orderdomain.Service
	loginLimiter *ratelimit.LoginLimiter
	obsMetrics   *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	Sessions     *session.Manager
	Authsvc      authdomain.Service
	AuthzSvc     authorization.Service
	AuditSvc     auditdomain.Service
	GymSvc       gymdomain.Service
	RoleSvc      roledomain.Service
	UserSvc      userdomain.Service
	MatchSvc     matchdomain.Service
	CategorySvc  categorydomain.Service
	ProductSvc   productdomain.Service
	OrderSvc     orderdomain.Service
	LoginLimiter *ratelimit.LoginLimiter `optional:"true"`
	ObsMetrics   *obsmetrics.Metrics     `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		sessions:     p.Sessions,
		authsvc:      p.Authsvc,
		authzSvc:     p.AuthzSvc,
		auditSvc:     p.AuditSvc,
		gymSvc:       p.GymSvc,
		roleSvc:      p.RoleSvc,
		userSvc:      p.UserSvc,
		matchSvc:     p.MatchSvc,
		categorySvc:  p.CategorySvc,
		productSvc:   p.ProductSvc,
		orderSvc:     p.OrderSvc,
		loginLimiter: p.LoginLimiter,
		obsMetrics:   p.ObsMetrics,
	}

	svc.engine.GET("/health", svc.Health)
	svc.registerAuthRoutes()
	svc.registerPlatformRoutes()
	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) Health(c *gin.Context) {
	status := gin.H{"status": "ok"}
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
			return
		}
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/api/auth")

	auth.POST("/login", s.LoginRateLimit(), s.Login)
	auth.POST("/logout", s.Logout)
	auth.GET("/me", s.AuthRequired(), s.Me)
	auth.POST("/change-password", s.AuthRequired(), s.ChangePassword)
}

func (s *Server) registerPlatformRoutes() {
	platform := s.engine.Group("/api/platform", s.AuthRequired())

	platform.POST("/gyms", s.platformAuthorize(authorization.ObjectGym, authorization.ActionGymCreate), s.CreateGym)
	platform.GET("/gyms", s.platformAuthorize(authorization.ObjectGym, authorization.ActionGymRead), s.ListGyms)
	platform.GET("/gyms/:id", s.platformAuthorize(authorization.ObjectGym, authorization.ActionGymRead), s.GetGymByID)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	// -------- Roles --------
	api.GET("/roles", s.authorize(permission.Roles, permission.ActionRead), s.ListRoles)
	api.POST("/roles", s.authorize(permission.Roles, permission.ActionCreate), s.CreateRole)
	api.GET("/roles/templates", s.authorize(permission.Roles, permission.ActionRead), s.ListRoleTemplates)
	api.POST("/roles/from-template", s.authorize(permission.Roles, permission.ActionCreate), s.CreateRoleFromTemplate)
	api.GET("/roles/:id", s.authorize(permission.Roles, permission.ActionRead), s.GetRoleByID)
	api.PATCH("/roles/:id", s.authorize(permission.Roles, permission.ActionUpdate), s.UpdateRole)
	api.DELETE("/roles/:id", s.authorize(permission.Roles, permission.ActionDelete), s.DeleteRole)

	// -------- Users --------
	api.GET("/users", s.authorize(permission.Users, permission.ActionRead), s.ListUsers)
	api.POST("/users", s.authorize(permission.Users, permission.ActionCreate), s.CreateUser)
	api.GET("/users/:id", s.authorize(permission.Users, permission.ActionRead), s.GetUserByID)
	api.PUT("/users/:id/role", s.authorize(permission.Users, permission.ActionUpdate), s.ChangeUserRole)
	api.PATCH("/users/:id/status", s.authorize(permission.Users, permission.ActionUpdate), s.UpdateUserStatus)

	// -------- Students --------
	api.GET("/students", s.authorize(permission.Students, permission.ActionRead), s.ListStudents)
	api.PATCH("/students/:id/status", s.authorize(permission.Students, permission.ActionUpdate), s.UpdateStudentStatus)

	// -------- Trainer matches --------
	api.POST("/trainer-matches", s.authorize(permission.TrainerMatches, permission.ActionCreate), s.CreateTrainerMatch)
	api.GET("/trainer-matches/history", s.authorize(permission.TrainerMatches, permission.ActionRead), s.ListTrainerMatchHistory)
	api.GET("/trainer-matches/:id", s.authorize(permission.TrainerMatches, permission.ActionRead), s.GetTrainerMatchByID)
	api.PATCH("/trainer-matches/:id/status", s.authorize(permission.TrainerMatches, permission.ActionUpdate), s.UpdateTrainerMatchStatus)
	api.POST("/trainer-matches/:id/end", s.authorize(permission.TrainerMatches, permission.ActionDelete), s.EndTrainerMatch)
	api.GET("/trainers/:id/students", s.authorize(permission.TrainerMatches, permission.ActionRead), s.ListTrainerStudents)
	api.GET("/students/:id/trainer", s.authorize(permission.TrainerMatches, permission.ActionRead), s.GetStudentTrainer)

	// -------- Catalog --------
	api.GET("/product-categories", s.authorize(permission.ProductCategories, permission.ActionRead), s.ListProductCategories)
	api.POST("/product-categories", s.authorize(permission.ProductCategories, permission.ActionCreate), s.CreateProductCategory)
	api.GET("/product-categories/:id", s.authorize(permission.ProductCategories, permission.ActionRead), s.GetProductCategoryByID)
	api.PATCH("/product-categories/:id", s.authorize(permission.ProductCategories, permission.ActionUpdate), s.UpdateProductCategory)

	api.GET("/products", s.authorize(permission.Products, permission.ActionRead), s.ListProducts)
	api.POST("/products", s.authorize(permission.Products, permission.ActionCreate), s.CreateProduct)
	api.GET("/products/:id", s.authorize(permission.Products, permission.ActionRead), s.GetProductByID)
	api.PATCH("/products/:id", s.authorize(permission.Products, permission.ActionUpdate), s.UpdateProduct)

	// -------- Orders --------
	s.registerOrderRoutes(api)

	// -------- Audit --------
	api.GET("/audit-logs", s.authorize(permission.AuditLogs, permission.ActionRead), s.ListAuditLogs)
}

func (s *Server) registerOrderRoutes(api gin.IRoutes) {
	api.POST("/orders", s.authorize(permission.Orders, permission.ActionCreate), s.CreateOrder)
	api.GET("/orders", s.authorize(permission.Orders, permission.ActionRead), s.ListOrders)
	api.GET("/orders/mine", s.authorize(permission.Orders, permission.ActionRead), s.ListMyOrders)
	api.GET("/orders/:id", s.authorize(permission.Orders, permission.ActionRead), s.GetOrderByID)
	api.PATCH("/orders/:id/status", s.authorize(permission.Orders, permission.ActionUpdate), s.UpdateOrderStatus)
	// orders.delete is checked before the lookup; ownership once the order
	// is loaded.
	api.POST("/orders/:id/cancel", s.authorize(permission.Orders, permission.ActionDelete), s.CancelOrder)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
