package router

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"regulations/backend/config"
	"regulations/backend/internal/api/handler"
	"regulations/backend/internal/api/middleware"
	"regulations/backend/internal/workflow"
	"regulations/backend/pkg/jwt"
	"regulations/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时跳过 Token 吊销检查与限流
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1（全部需要认证）──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr, rdb, logger))
	v1.Use(middleware.RateLimit(rdb, cfg.Server.RateLimit, cfg.Server.RateWindow, logger))
	{
		// 教学计划课程（细粒度权限由 Service 层判定）
		items := v1.Group("/scheme-items")
		{
			items.GET("", h.Scheme.ListItems)
			items.POST("", h.Scheme.CreateItem)
			items.POST("/status", h.Scheme.ChangeStatus)
			items.POST("/mapping-status", h.Scheme.ChangeMappingStatus)
			items.GET("/:id", h.Scheme.GetItem)
			items.PUT("/:id", h.Scheme.UpdateItem)
			items.DELETE("/:id", h.Scheme.DeleteItem)
			items.PUT("/:id/outcomes", h.Scheme.UpdateOutcomes)
			items.PUT("/:id/mapping", h.Scheme.UpdateMapping)
		}

		// 作用域
		scopes := v1.Group("/scopes")
		{
			scopes.GET("", h.Scope.GetScope)
			scopes.PUT("/freeze", middleware.RoleAuth(workflow.RoleAdmin), h.Scope.FreezeSemesters)
			scopes.PUT("/unfreeze", middleware.RoleAuth(workflow.RoleAdmin), h.Scope.UnfreezeSemesters)
		}

		// 参考属性
		attributes := v1.Group("/attributes")
		{
			attributes.GET("", h.Attribute.ListAttributes)
			attributes.PUT("/:id", middleware.RoleAuth(workflow.RoleAdmin), h.Attribute.RenameAttribute)
		}
	}

	return r
}
