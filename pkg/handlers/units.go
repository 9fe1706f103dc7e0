package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"community-meetings-backend/pkg/database"
	"community-meetings-backend/pkg/models"
	"community-meetings-backend/pkg/utils"
)

// UnitHandler 单位（组/排/社区/区域/教会）处理器
type UnitHandler struct {
	db     database.DatabaseInterface
	logger *zap.Logger
}

// NewUnitHandler 创建单位处理器
func NewUnitHandler(db database.DatabaseInterface, logger *zap.Logger) *UnitHandler {
	return &UnitHandler{db: db, logger: logger.Named("units")}
}

// ListUnits 按名称排序返回全部单位
func (h *UnitHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.db.ListUnits(r.Context())
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.WriteSuccessResponse(w, units)
}

// CreateUnit 新建单位
func (h *UnitHandler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	var in models.UnitInput
	if err := utils.ParseJSONBody(r, &in); err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}

	unit, err := h.db.CreateUnit(r.Context(), in)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.WriteCreatedResponse(w, unit)
}

// UpdateUnit 修改单位
func (h *UnitHandler) UpdateUnit(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}

	var in models.UnitInput
	if err := utils.ParseJSONBody(r, &in); err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}

	unit, err := h.db.UpdateUnit(r.Context(), id, in)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.WriteSuccessResponse(w, unit)
}

// DeleteUnit 删除单位；不检查引用，旧结构下的聚会记录会成为孤儿
func (h *UnitHandler) DeleteUnit(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}

	if err := h.db.DeleteUnit(r.Context(), id); err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.WriteMessage(w, "删除成功")
}
