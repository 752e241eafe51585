package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Tahatra21/solarhub-sub000/config"
	"github.com/Tahatra21/solarhub-sub000/internal/api/handler"
	"github.com/Tahatra21/solarhub-sub000/internal/api/middleware"
	"github.com/Tahatra21/solarhub-sub000/internal/model"
	"github.com/Tahatra21/solarhub-sub000/pkg/jwt"
	"github.com/Tahatra21/solarhub-sub000/pkg/metrics"
	"github.com/Tahatra21/solarhub-sub000/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// db 仅用于 /health 探活，可为 nil；m 为 nil 时不暴露 /metrics
func Setup(
	cfg *config.Config,
	h *handler.Handler,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	m *metrics.Metrics,
	db *gorm.DB,
	logger *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimitMB << 20))
	r.Use(middleware.Metrics(m))

	// ── 健康检查 / 指标 / 上传文件 ──
	r.GET("/health", healthHandler(db))
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}
	if cfg.Server.PublicURLPrefix != "" {
		r.Static(cfg.Server.PublicURLPrefix, cfg.Server.UploadDir)
	}

	// 写权限角色组合
	admin := middleware.RoleAuth(model.RoleAdmin)
	writer := middleware.RoleAuth(model.RoleAdmin, model.RoleContributor)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(rdb, middleware.RateLimitOptions{
				Limit:  cfg.RateLimit.LoginLimit,
				Window: cfg.RateLimit.LoginWindow,
				RPS:    cfg.RateLimit.LoginRPS,
				Burst:  cfg.RateLimit.LoginBurst,
			}), h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)
			authorized.GET("/auth/activity-log", h.Auth.ActivityLog)
			authorized.GET("/menu-items", h.Role.Menu)

			// 用户模块（管理员）
			users := authorized.Group("/users", admin)
			{
				users.GET("", h.User.ListUsers)
				users.GET("/options", h.User.Options)
				users.GET("/:id", h.User.GetUser)
				users.POST("", h.User.CreateUser)
				users.PUT("/:id", h.User.UpdateUser)
				users.DELETE("/:id", h.User.DeleteUser)
			}

			// 角色与权限（管理员）
			roles := authorized.Group("/roles", admin)
			{
				roles.GET("", h.Role.ListRoles)
				roles.GET("/:id", h.Role.GetRole)
				roles.POST("", h.Role.CreateRole)
				roles.PUT("/:id", h.Role.UpdateRole)
				roles.DELETE("/:id", h.Role.DeleteRole)
				roles.GET("/:id/permissions", h.Role.GetPermissions)
				roles.PUT("/:id/permissions", h.Role.UpdatePermissions)
			}

			// 职位（管理员）
			positions := authorized.Group("/positions", admin)
			{
				positions.GET("", h.Position.ListPositions)
				positions.GET("/:id", h.Position.GetPosition)
				positions.POST("", h.Position.CreatePosition)
				positions.PUT("/:id", h.Position.UpdatePosition)
				positions.DELETE("/:id", h.Position.DeletePosition)
			}

			// 主数据：类别 / 细分市场 / 阶段（读：所有用户，写：管理员）
			registerMasterData(authorized.Group("/categories"), h.Category, admin)
			registerMasterData(authorized.Group("/segments"), h.Segment, admin)
			registerMasterData(authorized.Group("/stages"), h.Stage, admin)

			// 阶段间隔
			intervals := authorized.Group("/intervals")
			{
				intervals.GET("", h.Interval.ListIntervals)
				intervals.GET("/:id", h.Interval.GetInterval)
				intervals.POST("", admin, h.Interval.CreateInterval)
				intervals.PUT("/:id", admin, h.Interval.UpdateInterval)
				intervals.DELETE("/:id", admin, h.Interval.DeleteInterval)
			}

			// 产品模块
			products := authorized.Group("/products")
			{
				products.GET("", h.Product.ListProducts)
				products.GET("/options", h.Product.Options)
				products.GET("/template", h.Product.Template)
				products.POST("/import", writer, h.Product.ImportProducts)
				products.GET("/:id", h.Product.GetProduct)
				products.POST("", writer, h.Product.CreateProduct)
				products.PUT("/:id", writer, h.Product.UpdateProduct)
				products.DELETE("/:id", writer, h.Product.DeleteProduct)
				products.GET("/:id/attachments", h.Product.ListAttachments)
				products.POST("/:id/attachments", writer, h.Product.AddAttachment)
			}
			authorized.DELETE("/attachments/:id", writer, h.Product.DeleteAttachment)

			// 开发历史
			devHistories := authorized.Group("/dev-histories")
			{
				devHistories.GET("", h.DevHistory.List)
				devHistories.GET("/products", h.DevHistory.ProductOptions)
				devHistories.GET("/template", h.DevHistory.Template)
				devHistories.POST("/import", writer, h.DevHistory.Import)
				devHistories.GET("/:id", h.DevHistory.Get)
				devHistories.POST("", writer, h.DevHistory.Create)
				devHistories.PUT("/:id", writer, h.DevHistory.Update)
				devHistories.DELETE("/:id", writer, h.DevHistory.Delete)
			}

			// 首页仪表盘
			dashboard := authorized.Group("/dashboard")
			{
				dashboard.GET("/stats", h.Dashboard.Stats)
				dashboard.GET("/segments", h.Dashboard.Segments)
				dashboard.GET("/by-stage/:id", h.Dashboard.ByStage)
				dashboard.GET("/by-segment/:id", h.Dashboard.BySegment)
				dashboard.GET("/all-products", h.Dashboard.AllProducts)
				dashboard.GET("/license-stats", h.Dashboard.LicenseStats)
				dashboard.GET("/crjr-stats", h.Dashboard.CRJRStats)
				dashboard.GET("/run-insights", h.Dashboard.RunInsights)
				dashboard.GET("/export-pdf", h.Export.DashboardPDF)
			}

			// 生命周期分析
			lifecycle := authorized.Group("/lifecycle")
			{
				lifecycle.GET("/transition-matrix", h.Lifecycle.TransitionMatrix)
				lifecycle.GET("/transition-matrix/products", h.Lifecycle.MatrixProducts)
				lifecycle.GET("/transition-matrix/export", h.Export.LifecycleMatrix)
				lifecycle.GET("/timeline", h.Lifecycle.Timeline)
				lifecycle.GET("/timeline/export", h.Export.LifecycleTimeline)
				lifecycle.GET("/transition-speed", h.Lifecycle.TransitionSpeed)
				lifecycle.GET("/transition-speed/export", h.Export.LifecycleSpeed)
				lifecycle.GET("/distribution", h.Lifecycle.Distribution)
				lifecycle.GET("/distribution/export", h.Export.LifecycleDistribution)
				lifecycle.GET("/export-pdf", h.Export.LifecyclePDF)
			}

			// 许可证监控
			licenses := authorized.Group("/monitoring-license")
			{
				licenses.GET("", h.License.List)
				licenses.GET("/statistics", h.License.Statistics)
				licenses.GET("/filters", h.License.Filters)
				licenses.GET("/notifications", h.License.Notifications)
				licenses.GET("/calendar.ics", h.License.Calendar)
				licenses.GET("/export", h.Export.Licenses)
				licenses.GET("/:id", h.License.Get)
				licenses.POST("", writer, h.License.Create)
				licenses.PUT("/:id", writer, h.License.Update)
				licenses.DELETE("/:id", writer, h.License.Delete)
			}

			// CR/JR 监控
			crjr := authorized.Group("/monitoring-crjr")
			{
				crjr.GET("", h.CRJR.List)
				crjr.GET("/statistics", h.CRJR.Statistics)
				crjr.GET("/filters", h.CRJR.Filters)
				crjr.GET("/export", h.Export.CRJR)
				crjr.GET("/:id", h.CRJR.Get)
				crjr.POST("", writer, h.CRJR.Create)
				crjr.PUT("/:id", writer, h.CRJR.Update)
				crjr.DELETE("/:id", writer, h.CRJR.Delete)
			}

			// 运营任务监控
			runProgram := authorized.Group("/monitoring-run-program")
			{
				runProgram.GET("", h.RunProgram.List)
				runProgram.GET("/statistics", h.RunProgram.Statistics)
				runProgram.GET("/filters", h.RunProgram.Filters)
				runProgram.POST("/import", writer, h.RunProgram.Import)
				runProgram.GET("/:id", h.RunProgram.Get)
				runProgram.POST("", writer, h.RunProgram.Create)
				runProgram.PUT("/:id", writer, h.RunProgram.Update)
				runProgram.DELETE("/:id", writer, h.RunProgram.Delete)
			}
		}
	}

	return r
}

// registerMasterData 类别、细分市场、阶段的路由结构相同
func registerMasterData(g *gin.RouterGroup, h *handler.MasterDataHandler, write gin.HandlerFunc) {
	g.GET("", h.List)
	g.GET("/options", h.Options)
	g.GET("/:id", h.Get)
	g.POST("", write, h.Create)
	g.POST("/icon", write, h.UploadIcon)
	g.PUT("/:id", write, h.Update)
	g.DELETE("/:id", write, h.Delete)
}

func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(c.Request.Context())
			}
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "down"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
