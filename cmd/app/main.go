package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/KartikLabhshetwar/oneurl/constant"
	"github.com/KartikLabhshetwar/oneurl/internal/auth"
	"github.com/KartikLabhshetwar/oneurl/internal/handler"
	"github.com/KartikLabhshetwar/oneurl/internal/i18n"
	"github.com/KartikLabhshetwar/oneurl/internal/middleware"
	"github.com/KartikLabhshetwar/oneurl/internal/preview"
	"github.com/KartikLabhshetwar/oneurl/internal/repository"
	"github.com/KartikLabhshetwar/oneurl/internal/service"
	"github.com/KartikLabhshetwar/oneurl/internal/storage"
	"github.com/KartikLabhshetwar/oneurl/pkg/logging"
)

func initConfig() {
	wd, _ := os.Getwd()
	log.Printf("Loading config from: %s/config.yaml", wd)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}
}

func startServer(r *gin.Engine, pool *preview.Pool, c *cron.Cron) {
	addr := viper.GetString("server.addr")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	// 启动服务器
	go func() {
		logging.Logger.Info("Server is running on " + addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中断信号以优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// 停掉定时任务，排空在途的预览任务再退出
	c.Stop()
	pool.Stop()

	if err := repository.RedisPool.Close(); err != nil {
		logging.Logger.Warn("Redis pool close failed", zap.Error(err))
	}

	logging.Logger.Info("Server exiting")
}

func main() {

	initConfig()
	logging.InitLoggerFromConfig()

	logging.Logger.Info("Application started")

	repository.InitDB(logging.Logger, logging.AtomicLevel)
	repository.InitRedis()
	repository.Idempotency = repository.NewRedisIdempotencyStore(repository.RedisPool)
	repository.Counters = repository.NewRedisCounterStore(repository.RedisPool)
	storage.InitStorage()

	// 预览流水线：有界工作池，和请求处理完全解耦
	fetchTimeout := time.Duration(viper.GetInt("preview.fetch_timeout_seconds")) * time.Second
	fetcher := preview.NewFetcher(fetchTimeout)
	mirror := preview.NewMirror(storage.Storage, time.Duration(viper.GetInt("preview.mirror_timeout_seconds"))*time.Second)
	pool := preview.NewPool(
		viper.GetInt("preview.workers"),
		viper.GetInt("preview.queue_size"),
		fetcher,
		mirror,
		time.Duration(viper.GetInt("preview.job_timeout_seconds"))*time.Second,
	)
	service.PreviewPool = pool
	handler.PreviewFetcher = fetcher

	// 初始化 i18n（加载 TOML 文件）
	bundle, err := i18n.InitI18n([]string{
		"./i18n/en.toml",
		"./i18n/zh.toml",
	}, "en")
	if err != nil {
		panic(err)
	}

	r := gin.New()
	r.Use(gin.Recovery()) // 显式添加 Recovery 中间件

	// 注册全局错误中间件
	r.Use(middleware.GlobalErrorMiddleware())
	r.Use(middleware.ZapGinLogger(logging.Logger))
	r.Use(middleware.CorsMiddleware())
	// 使用 i18n 中间件
	r.Use(middleware.I18nMiddleware(bundle))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC().Format(time.RFC3339)})
	})

	api := r.Group("/api")
	{
		// 公开打点接口，挂一般限流层级
		api.POST("/track", middleware.RateLimit(constant.RateLimitTierAPI), handler.TrackClickHandler)

		// 外部抓取昂贵，strict 和 api 两层限流叠加
		api.GET("/preview",
			middleware.RateLimit(constant.RateLimitTierStrict),
			middleware.RateLimit(constant.RateLimitTierAPI),
			auth.RequireAuth(),
			handler.GetPreviewHandler,
		)

		authed := api.Group("", auth.RequireAuth())
		{
			authed.GET("/analytics", handler.GetAnalyticsHandler)
			authed.GET("/analytics/links", handler.GetLinkCountsHandler)

			authed.GET("/links", handler.ListLinksHandler)
			authed.POST("/links", handler.CreateLinkHandler)
			authed.PATCH("/links/:id", handler.UpdateLinkHandler)
			authed.DELETE("/links/:id", handler.DeleteLinkHandler)
			authed.POST("/links/reorder", handler.ReorderLinksHandler)

			authed.GET("/profile", handler.GetProfileHandler)
			authed.PATCH("/profile", handler.UpdateProfileHandler)
			authed.POST("/profile/publish", handler.PublishProfileHandler)
			authed.POST("/profile/avatar", handler.UploadAvatarHandler)
		}
	}

	c := cron.New()

	// 数据保留：每天凌晨清理过期点击事件
	_, addErr := c.AddFunc("0 3 * * *", func() {
		if err := service.PurgeExpiredClickEvents(); err != nil {
			logging.Logger.Error("Failed to purge expired click events via cron job", zap.Error(err))
		}
	})

	if addErr != nil {
		logging.Logger.Fatal("Failed to schedule cron job", zap.Error(addErr))
	}

	c.Start()

	startServer(r, pool, c)
}
