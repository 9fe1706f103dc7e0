package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"community-meetings-backend/pkg/database"
	"community-meetings-backend/pkg/export"
	"community-meetings-backend/pkg/models"
	"community-meetings-backend/pkg/utils"
)

// StatisticsHandler 统计处理器
type StatisticsHandler struct {
	db     database.DatabaseInterface
	logger *zap.Logger
}

// NewStatisticsHandler 创建统计处理器
func NewStatisticsHandler(db database.DatabaseInterface, logger *zap.Logger) *StatisticsHandler {
	return &StatisticsHandler{db: db, logger: logger.Named("statistics")}
}

// statisticsFilterFromQuery 解析统计条件；groupBy 为旧客户端参数名
func statisticsFilterFromQuery(r *http.Request) (models.StatisticsFilter, error) {
	groupBy, err := models.ParseGroupBy(utils.FirstQueryParam(r, "group_by", "groupBy"))
	if err != nil {
		return models.StatisticsFilter{}, err
	}
	q := r.URL.Query()
	return models.StatisticsFilter{
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
		GroupBy:   groupBy,
	}, nil
}

// GetStatistics 按项目/单位类型分组统计聚会次数与人数
func (h *StatisticsHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	filter, err := statisticsFilterFromQuery(r)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}

	rows, err := h.db.Statistics(r.Context(), filter)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.WriteSuccessResponse(w, rows)
}

// ExportStatistics 导出统计结果（xlsx 或 csv）
func (h *StatisticsHandler) ExportStatistics(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	filter, err := statisticsFilterFromQuery(r)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}

	rows, err := h.db.Statistics(r.Context(), filter)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	writeExport(w, h.logger, export.StatisticsTable(rows, filter.GroupBy), format, "statistics")
}
