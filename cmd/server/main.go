package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"regulations/backend/config"
	"regulations/backend/internal/api/handler"
	"regulations/backend/internal/api/router"
	"regulations/backend/internal/repository"
	"regulations/backend/internal/service"
	"regulations/backend/pkg/database"
	"regulations/backend/pkg/jwt"
	applogger "regulations/backend/pkg/logger"
	"regulations/backend/pkg/redis"
	"regulations/backend/pkg/telemetry"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log, cfg.Telemetry.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 2.1 初始化链路追踪（未启用时为空操作）
	shutdownTracing, err := telemetry.Setup(context.Background(), cfg.Telemetry, logger)
	if err != nil {
		logger.Fatal("初始化链路追踪失败", zap.Error(err))
	}

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var rdb *redis.Client
	rdb, err = redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 吊销检查、限流与事件发布将降级", zap.Error(err))
		rdb = nil
	}

	// 5. 初始化 JWT 管理器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, rdb, logger)
	h := handler.NewHandler(svc, logger)

	// 7. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	// 8. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 等待审计日志与事件发布完成
	svc.Flush()

	if err := shutdownTracing(ctx); err != nil {
		logger.Warn("链路追踪关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	closeDB, _ := db.DB()
	if closeDB != nil {
		closeDB.Close()
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
