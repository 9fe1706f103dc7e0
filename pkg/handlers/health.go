package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"community-meetings-backend/pkg/config"
	"community-meetings-backend/pkg/database"
	"community-meetings-backend/pkg/storage"
	"community-meetings-backend/pkg/utils"
)

// HealthHandler 健康检查与调试端点
type HealthHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	files  *storage.FileStore
	logger *zap.Logger
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(cfg *config.Config, db database.DatabaseInterface, files *storage.FileStore, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{config: cfg, db: db, files: files, logger: logger.Named("health")}
}

// HealthCheck 健康检查：数据库连通性与当前生效的表结构
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]interface{}{
		"status":      "ok",
		"service":     "community-meetings-backend",
		"environment": h.config.Environment,
		"database":    "healthy",
		"driver":      h.config.DBDriver,
		"layout":      h.db.Layout().Describe(),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}

	if err := h.db.HealthCheck(); err != nil {
		h.logger.Warn("database health check failed", zap.Error(err))
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["database"] = "unhealthy"
	}

	utils.WriteJSONResponse(w, status, body)
}

// DBPool 数据库连接池状态（仅开发环境）
func (h *HealthHandler) DBPool(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccessResponse(w, database.GetConnectionStats())
}

// Integrity 只读完整性报告：孤儿聚会、孤儿附件、缺失与多余的上传文件（仅开发环境）
func (h *HealthHandler) Integrity(w http.ResponseWriter, r *http.Request) {
	names, err := h.files.List()
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}

	report, err := h.db.CheckIntegrity(r.Context(), names)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.WriteSuccessResponse(w, report)
}
