package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	httpHandler "github.com/paragishere/Cyvance-chat/internal/handler/http"
	"github.com/paragishere/Cyvance-chat/internal/infra/lock"
	gormpersistence "github.com/paragishere/Cyvance-chat/internal/infra/persistence/gorm"
	"github.com/paragishere/Cyvance-chat/internal/infra/setup"
	redisstate "github.com/paragishere/Cyvance-chat/internal/infra/state/redis"
	"github.com/paragishere/Cyvance-chat/internal/infra/storage"
	"github.com/paragishere/Cyvance-chat/internal/middleware"
	"github.com/paragishere/Cyvance-chat/internal/repository"
	"github.com/paragishere/Cyvance-chat/internal/service"
	"github.com/paragishere/Cyvance-chat/internal/tasks"
	"github.com/paragishere/Cyvance-chat/internal/worker"
)

// App 结构体包含应用的所有组件和配置
type App struct {
	Config        *Config
	Log           *logrus.Logger
	DB            *gorm.DB
	RedisClient   *redis.Client // 未配置 Redis 时为 nil
	AsynqClient   *asynq.Client
	AsynqServer   *worker.WorkerServer
	Cron          *cron.Cron // 未配置 PURGE_SCHEDULE 时为 nil
	HttpServer    *http.Server
	ExpiryService *service.ExpiryService
}

// NewLogger 按配置创建 logrus Logger，并同步到全局 logger
func NewLogger(cfg *Config) *logrus.Logger {
	log := logrus.New()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logLevel, _ := logrus.ParseLevel(cfg.LogLevel)
	log.SetLevel(logLevel)
	log.SetOutput(os.Stdout)

	// 各层通过 logrus 包级函数记录日志
	logrus.SetFormatter(log.Formatter)
	logrus.SetLevel(logLevel)
	logrus.SetOutput(log.Out)
	return log
}

// NewApp 创建并初始化应用的所有组件
func NewApp() (*App, error) {
	// 1. 加载配置
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	// 2. 初始化 Logger
	log := NewLogger(cfg)
	log.Infof("Logger initialized (Level: %s)", log.GetLevel())
	app := &App{Config: cfg, Log: log}

	// 3. 初始化基础设施
	log.Info("Initializing infrastructure...")
	db, err := setup.InitDB(cfg.DBOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to init DB: %w", err)
	}
	app.DB = db
	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}
	log.Info("Database migrated")

	attachments, err := storage.NewLocalStore(cfg.MediaRoot, cfg.MediaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to init media storage: %w", err)
	}
	log.WithField("media_root", attachments.Root()).Info("Media storage initialized")

	// 4. 初始化 Repositories
	roomRepo := gormpersistence.NewGormRoomRepository(db)
	messageRepo := gormpersistence.NewGormMessageRepository(db)

	// 5. 房间锁与附件清理：有 Redis 时跨实例共享，否则进程内处理
	var locker repository.RoomLocker
	var reaper service.AttachmentReaper = service.NewInlineReaper(attachments)
	var redisOpt asynq.RedisClientOpt
	if cfg.UseRedis() {
		redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to init Redis: %w", err)
		}
		app.RedisClient = redisClient
		locker = redisstate.NewRedisRoomLocker(redisClient, cfg.KeyPrefix)

		redisOpt = asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}
		app.AsynqClient = asynq.NewClient(redisOpt)
		reaper = worker.NewAsynqReaper(app.AsynqClient, reaper)
		log.Info("Redis room locks and asynq attachment cleanup enabled")
	} else {
		locker = lock.NewKeyedLocker()
		log.Warn("REDIS_ADDR not set, using in-process room locks; run a single instance only")
	}

	// 6. 初始化 Services
	settings := cfg.Settings()
	roomService := service.NewRoomService(roomRepo, messageRepo, attachments, locker, settings)
	messageService := service.NewMessageService(roomRepo, messageRepo, attachments, locker, settings)
	app.ExpiryService = service.NewExpiryService(roomRepo, locker, reaper, settings)
	log.WithField("idle_minutes", settings.IdleMinutes()).Info("Services initialized")

	if cfg.UseRedis() {
		app.AsynqServer = worker.NewWorkerServer(redisOpt, attachments, app.ExpiryService, log)
	}
	if cfg.PurgeSchedule != "" {
		if app.Cron, err = app.newPurgeCron(cfg.PurgeSchedule); err != nil {
			return nil, err
		}
	}

	// 7. 初始化 Gin Engine 和路由
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(log))
	router.SetHTMLTemplate(httpHandler.Templates())

	router.GET("/healthz", httpHandler.Healthz)
	router.Static(strings.TrimSuffix(cfg.MediaURL, "/"), cfg.MediaRoot)
	httpHandler.RegisterStatic(router)
	chatHandler := httpHandler.NewChatHandler(roomService, messageService)
	chatHandler.RegisterRoutes(router, middleware.PurgeOnAccess(app.ExpiryService))
	log.Info("Router setup complete")

	var handler http.Handler = router
	if len(cfg.CORSAllowedOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Content-Type", "X-Requested-With"},
		}).Handler(router)
		log.WithField("origins", cfg.CORSAllowedOrigins).Info("CORS enabled")
	}

	// 8. 初始化 HTTP Server
	app.HttpServer = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Info("Application assembled successfully")
	return app, nil
}

// newPurgeCron 注册后台清理任务。
// 有 asynq 时投递 rooms:purge 任务，多个实例同一时刻只会执行一次；否则直接在进程内清理。
func (a *App) newPurgeCron(schedule string) (*cron.Cron, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	_, err := c.AddFunc(schedule, a.runScheduledPurge)
	if err != nil {
		return nil, fmt.Errorf("invalid PURGE_SCHEDULE %q: %w", schedule, err)
	}
	a.Log.WithField("schedule", schedule).Info("Background purge scheduled")
	return c, nil
}

func (a *App) runScheduledPurge() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if a.AsynqClient != nil {
		task, err := tasks.NewRoomPurgeTask(time.Now())
		if err == nil {
			_, err = a.AsynqClient.EnqueueContext(ctx, task, asynq.Unique(time.Minute))
		}
		if err == nil || errors.Is(err, asynq.ErrDuplicateTask) {
			return
		}
		a.Log.WithError(err).Warn("Failed to enqueue room purge task, purging in-process")
	}
	if _, err := a.ExpiryService.Purge(ctx); err != nil {
		a.Log.WithError(err).Error("Scheduled purge failed")
	}
}

// Start 启动后台 Goroutine 和 HTTP 服务器
func (a *App) Start() {
	if a.AsynqServer != nil {
		go a.AsynqServer.Start()
		a.Log.Info("Asynq worker server routine started")
	}
	if a.Cron != nil {
		a.Cron.Start()
		a.Log.Info("Purge scheduler started")
	}

	go func() {
		a.Log.Infof("HTTP server starting to listen on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
}

// Shutdown 优雅地关闭应用
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 1. 先停止接收请求
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	} else {
		a.Log.Info("HTTP server shut down gracefully.")
	}

	// 2. 停止定时清理，等待正在运行的清理结束
	if a.Cron != nil {
		select {
		case <-a.Cron.Stop().Done():
			a.Log.Info("Purge scheduler stopped.")
		case <-ctx.Done():
			a.Log.Warn("Timed out waiting for scheduled purge to finish")
		}
	}

	// 3. 关闭 Worker Server
	if a.AsynqServer != nil {
		a.AsynqServer.Shutdown()
	}

	// 4. 关闭 Asynq Client 与 Redis
	if a.AsynqClient != nil {
		if err := a.AsynqClient.Close(); err != nil {
			a.Log.Errorf("Error closing Asynq client: %v", err)
		}
	}
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing Redis connection: %v", err)
		} else {
			a.Log.Info("Redis connection closed.")
		}
	}

	// 5. 关闭数据库连接池
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.Log.Errorf("Error closing database connection: %v", err)
			}
		}
	}

	a.Log.Info("Application shutdown complete.")
}
