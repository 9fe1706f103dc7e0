package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"community-meetings-backend/pkg/config"
	"community-meetings-backend/pkg/database"
	"community-meetings-backend/pkg/middleware"
	"community-meetings-backend/pkg/models"
	"community-meetings-backend/pkg/utils"
)

// AuthHandler 登录与个人资料处理器
type AuthHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	tokens *utils.JWTService
	logger *zap.Logger
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg *config.Config, db database.DatabaseInterface, tokens *utils.JWTService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		config: cfg,
		db:     db,
		tokens: tokens,
		logger: logger.Named("auth"),
	}
}

// Login 管理员登录，成功返回访问令牌与管理员信息
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}

	admin, err := h.db.GetAdminByUsername(r.Context(), req.Username)
	if err != nil {
		// 用户不存在与密码错误返回同一响应
		if models.IsNotFound(err) {
			err = models.ErrInvalidCredentials
		}
		utils.WriteError(w, h.logger, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		h.logger.Info("login rejected", zap.String("username", req.Username))
		utils.WriteError(w, h.logger, models.ErrInvalidCredentials)
		return
	}

	token, _, err := h.tokens.GenerateAccessToken(admin)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}

	h.logger.Info("admin logged in", zap.Int64("admin_id", admin.ID), zap.String("username", admin.Username))
	utils.WriteSuccessResponse(w, models.LoginResponse{
		Token: token,
		User:  admin.Summary(),
	})
}

// currentAdmin 读取门禁写入的令牌并加载管理员记录
func (h *AuthHandler) currentAdmin(r *http.Request) (*models.Admin, error) {
	claims, err := middleware.RequireAdmin(r.Context())
	if err != nil {
		return nil, err
	}
	return h.db.GetAdminByID(r.Context(), claims.AdminID)
}

// GetProfile 当前管理员资料
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	admin, err := h.currentAdmin(r)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.WriteSuccessResponse(w, admin)
}

// UpdateProfile 修改显示名称
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, err := middleware.RequireAdmin(r.Context())
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}

	var req models.ProfileUpdateRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}

	if err := h.db.UpdateAdminName(r.Context(), claims.AdminID, req.Name); err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.WriteMessage(w, "个人信息更新成功")
}

// ChangePassword 修改密码；当前密码校验失败返回400
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req models.PasswordChangeRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}

	admin, err := h.currentAdmin(r)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			utils.WriteError(w, h.logger, models.NewValidationError("currentPassword", "当前密码错误"))
			return
		}
		utils.WriteError(w, h.logger, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	if err := h.db.UpdateAdminPassword(r.Context(), admin.ID, string(hash)); err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}

	h.logger.Info("password changed", zap.Int64("admin_id", admin.ID))
	utils.WriteMessage(w, "密码修改成功")
}
