package router

import (
	"fmt"

	"accessctl/internal/handlers"
	"accessctl/internal/metrics"
	"accessctl/internal/middleware"
	"accessctl/internal/models"
	"accessctl/internal/services"
	"accessctl/pkg/config"
	"accessctl/pkg/jwt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Dependencies 路由所需的服务，由调用方构造一次后共享
type Dependencies struct {
	Config     *config.Config
	DB         *gorm.DB
	JWTManager *jwt.JWTManager
	Users      *services.UserService
	Roles      *services.RoleService
	Menus      *services.MenuService
	Auth       *services.AuthService
}

// NewDependencies 按配置构造令牌管理器和各服务
func NewDependencies(cfg *config.Config, db *gorm.DB) (*Dependencies, error) {
	jwtManager, err := jwt.NewJWTManager(jwt.Options{
		SecretKey:         cfg.JWT.SecretKey,
		TokenDuration:     cfg.JWT.TokenDuration,
		SelectionDuration: cfg.JWT.SelectionDuration,
		Issuer:            cfg.JWT.Issuer,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化JWT失败: %w", err)
	}

	users := services.NewUserService(db, cfg.Auth.BcryptCost)
	roles := services.NewRoleService(db)
	menus := services.NewMenuService(db, roles)
	return &Dependencies{
		Config:     cfg,
		DB:         db,
		JWTManager: jwtManager,
		Users:      users,
		Roles:      roles,
		Menus:      menus,
		Auth:       services.NewAuthService(users, roles, menus, jwtManager),
	}, nil
}

// SetupRouter 设置路由
func SetupRouter(deps *Dependencies) (*gin.Engine, error) {
	if err := handlers.RegisterValidators(); err != nil {
		return nil, err
	}

	policy, err := services.NewAccessPolicy(deps.Config.Auth, deps.Roles)
	if err != nil {
		return nil, err
	}

	router := gin.New()

	// 中间件
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.SetupCORS(deps.Config.CORS))
	router.Use(metrics.Middleware())

	router.GET("/metrics", metrics.Handler())

	registerRoutes(router, deps, middleware.NewAuthMiddleware(deps.JWTManager, policy))
	return router, nil
}

// 注册所有路由
func registerRoutes(router *gin.Engine, deps *Dependencies, auth *middleware.AuthMiddleware) {
	api := router.Group("/api")

	// 健康检查接口
	api.GET("/health", handlers.NewHealthHandler(deps.DB).Check)

	// 认证
	authHandler := handlers.NewAuthHandler(deps.Auth)
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/select-role", authHandler.SelectRole)
		authGroup.GET("/profile", auth.RequireLogin(), authHandler.Profile)
		authGroup.POST("/refresh-token", auth.RequireLogin(), authHandler.RefreshToken)
		authGroup.POST("/logout", auth.RequireLogin(), authHandler.Logout)
	}

	create := auth.Require(models.PermissionCreate)
	update := auth.Require(models.PermissionUpdate)
	remove := auth.Require(models.PermissionDelete)

	// 菜单，:menuId 同时作为鉴权目标
	menuHandler := handlers.NewMenuHandler(deps.Menus)
	menus := api.Group("/menus", auth.RequireLogin())
	{
		menus.GET("", menuHandler.List)
		menus.GET("/hierarchical", menuHandler.Hierarchical)
		menus.GET("/role/:roleId", menuHandler.ByRole)
		menus.GET("/code/:code", menuHandler.ByCode)
		menus.GET("/:menuId", menuHandler.GetByID)
		menus.GET("/:menuId/children", menuHandler.Children)
		menus.POST("", create, menuHandler.Create)
		menus.PUT("/:menuId", update, menuHandler.Update)
		menus.DELETE("/:menuId", remove, menuHandler.Delete)
	}

	// 角色
	roleHandler := handlers.NewRoleHandler(deps.Roles)
	roles := api.Group("/roles", auth.RequireLogin())
	{
		roles.GET("", roleHandler.List)
		roles.GET("/:id", roleHandler.GetByID)
		roles.GET("/:id/details", roleHandler.GetDetails)
		roles.GET("/:id/statistics", roleHandler.Statistics)
		roles.POST("", create, roleHandler.Create)
		roles.PUT("/:id", update, roleHandler.Update)
		roles.DELETE("/:id", remove, roleHandler.Delete)
		roles.POST("/:id/clone", create, roleHandler.Clone)

		roles.GET("/:id/users", roleHandler.GetUsers)
		roles.POST("/:id/users", create, roleHandler.AssignUser)
		roles.DELETE("/:id/users/:user_id", remove, roleHandler.RemoveUser)
		roles.POST("/:id/users/bulk-assign", create, roleHandler.BulkAssignUsers)
		roles.POST("/:id/users/bulk-remove", remove, roleHandler.BulkRemoveUsers)

		roles.GET("/:id/menus", roleHandler.GetMenus)
		roles.POST("/:id/menus", create, roleHandler.AssignMenu)
		roles.DELETE("/:id/menus/:menu_id", remove, roleHandler.RemoveMenu)
		roles.POST("/:id/menus/bulk-grant", create, roleHandler.BulkGrantMenus)
		roles.POST("/:id/menus/bulk-revoke", remove, roleHandler.BulkRevokeMenus)
	}

	// 用户
	userHandler := handlers.NewUserHandler(deps.Users)
	users := api.Group("/users", auth.RequireLogin())
	{
		users.GET("", userHandler.List)
		users.GET("/:id", userHandler.GetByID)
		users.POST("", create, userHandler.Create)
		users.PUT("/:id", update, userHandler.Update)
		users.PUT("/:id/password", update, userHandler.UpdatePassword)
		users.POST("/:id/activate", update, userHandler.Activate)
		users.POST("/:id/deactivate", update, userHandler.Deactivate)
		users.DELETE("/:id", remove, userHandler.Delete)

		users.GET("/:id/roles", userHandler.GetRoles)
		users.POST("/:id/roles", create, userHandler.AssignRole)
		users.DELETE("/:id/roles/:role_id", remove, userHandler.RemoveRole)
	}
}
