package handler

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"community-meetings-backend/pkg/config"
	"community-meetings-backend/pkg/database"
	"community-meetings-backend/pkg/handlers"
	"community-meetings-backend/pkg/logger"
	customMiddleware "community-meetings-backend/pkg/middleware"
	"community-meetings-backend/pkg/storage"
	"community-meetings-backend/pkg/utils"
)

var (
	processLogger     *zap.Logger
	processLoggerOnce sync.Once
)

// getLogger 进程级日志实例；构建失败时退回生产默认配置
func getLogger(cfg *config.Config) *zap.Logger {
	processLoggerOnce.Do(func() {
		l, err := logger.New(cfg)
		if err != nil {
			l, _ = zap.NewProduction()
			l.Warn("invalid logger configuration, using defaults", zap.Error(err))
		}
		processLogger = l
	})
	return processLogger
}

// DatabaseConfig 从应用配置得到数据库配置
func DatabaseConfig(cfg *config.Config) database.DatabaseConfig {
	return database.DatabaseConfig{
		Driver:       cfg.DBDriver,
		SQLitePath:   cfg.SQLitePath,
		PostgresDSN:  cfg.PostgresDSN,
		SeedDefaults: cfg.SeedDefaults,
	}
}

// Handler 是无服务器函数的入口点
// 所有API端点集中在一个Chi路由器中管理，数据库连接在调用间复用
func Handler(w http.ResponseWriter, r *http.Request) {
	cfg := config.GetCached()

	if err := cfg.Validate(); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Configuration error: "+err.Error())
		return
	}
	log := getLogger(cfg)

	// 首次调用时执行结构守卫，之后复用同一连接
	db, err := database.GetDatabase(r.Context(), DatabaseConfig(cfg), log)
	if err != nil {
		log.Error("database unavailable", zap.Error(err))
		utils.WriteInternalServerErrorResponse(w, "Database unavailable")
		return
	}

	files, err := storage.NewFileStore(cfg.UploadDir, cfg.MaxUploadBytes, log)
	if err != nil {
		log.Error("upload dir unavailable", zap.Error(err))
		utils.WriteInternalServerErrorResponse(w, "Upload storage unavailable")
		return
	}

	NewRouter(cfg, db, files, log).ServeHTTP(w, r)
}

// NewRouter 构建完整的路由器（长驻进程与无服务器入口共用）
func NewRouter(cfg *config.Config, db database.DatabaseInterface, files *storage.FileStore, log *zap.Logger) http.Handler {
	router := chi.NewRouter()

	setupMiddleware(router, cfg, log)
	setupRoutes(router, cfg, db, files, log)

	return router
}

// setupMiddleware 设置全局中间件
func setupMiddleware(router *chi.Mux, cfg *config.Config, log *zap.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	// 规整路径（含旧版路径改写）必须早于日志与路由
	router.Use(customMiddleware.Normalize())
	router.Use(customMiddleware.Logger(log))
	router.Use(customMiddleware.Recovery(cfg, log))
	router.Use(customMiddleware.Metrics())

	router.Use(customMiddleware.CORS(cfg))

	// 附件上传可能较慢，超时放宽到 60 秒
	router.Use(middleware.Timeout(60 * time.Second))

	router.Use(middleware.Compress(5))

	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

// setupRoutes 设置所有API路由
func setupRoutes(router *chi.Mux, cfg *config.Config, db database.DatabaseInterface, files *storage.FileStore, log *zap.Logger) {
	tokens := utils.NewJWTService(cfg.JWTSecret, cfg.TokenTTL)
	gate := customMiddleware.AuthMiddleware(tokens, log)

	authHandler := handlers.NewAuthHandler(cfg, db, tokens, log)
	unitHandler := handlers.NewUnitHandler(db, log)
	meetingHandler := handlers.NewMeetingHandler(cfg, db, files, log)
	statisticsHandler := handlers.NewStatisticsHandler(db, log)
	healthHandler := handlers.NewHealthHandler(cfg, db, files, log)

	// 健康检查端点
	router.Get("/", healthHandler.HealthCheck)

	if cfg.PublicMetrics {
		router.Handle("/metrics", promhttp.Handler())
	} else {
		router.With(gate).Handle("/metrics", promhttp.Handler())
	}

	// 调试端点
	if cfg.IsDevelopment() {
		router.Get("/debug/db-pool", healthHandler.DBPool)
		router.Get("/debug/integrity", healthHandler.Integrity)
	}

	jsonOnly := customMiddleware.RequireContentType(customMiddleware.ContentTypeJSON)
	jsonOrMultipart := customMiddleware.RequireContentType(customMiddleware.ContentTypeJSON, customMiddleware.ContentTypeMultipart)
	// 每个文件的上限乘以单次请求的文件数，再留出表单字段的余量
	uploadLimit := customMiddleware.MaxBodySize(files.MaxBytes()*storage.MaxFilesPerRequest + 1<<20)

	router.Route("/api", func(r chi.Router) {
		// 公开路由
		r.With(jsonOnly).Post("/login", authHandler.Login)

		// 需要认证的路由
		r.Group(func(r chi.Router) {
			r.Use(gate)

			r.Route("/units", func(r chi.Router) {
				r.Get("/", unitHandler.ListUnits)
				r.With(jsonOnly).Post("/", unitHandler.CreateUnit)
				r.With(jsonOnly).Put("/{id}", unitHandler.UpdateUnit)
				r.Delete("/{id}", unitHandler.DeleteUnit)
			})

			r.Route("/meetings", func(r chi.Router) {
				r.Get("/", meetingHandler.ListMeetings)
				r.Get("/export", meetingHandler.ExportMeetings)
				r.With(jsonOrMultipart, uploadLimit).Post("/", meetingHandler.CreateMeeting)
				r.Get("/{id}", meetingHandler.GetMeeting)
				r.With(jsonOrMultipart, uploadLimit).Put("/{id}", meetingHandler.UpdateMeeting)
				r.Delete("/{id}", meetingHandler.DeleteMeeting)
			})

			r.Route("/statistics", func(r chi.Router) {
				r.Get("/", statisticsHandler.GetStatistics)
				r.Get("/export", statisticsHandler.ExportStatistics)
			})

			r.Route("/profile", func(r chi.Router) {
				r.Get("/", authHandler.GetProfile)
				r.With(jsonOnly).Put("/", authHandler.UpdateProfile)
				r.With(jsonOnly).Put("/password", authHandler.ChangePassword)
			})
		})
	})

	// 附件同样需要通过门禁
	router.With(gate).Get("/uploads/*", meetingHandler.ServeAttachment)

	// 404处理
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})

	// 405处理
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path), "")
	})
}
