package models

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminRole 管理员角色
type AdminRole string

const (
	RoleAdmin      AdminRole = "admin"
	RoleSuperAdmin AdminRole = "super_admin"
)

// Admin 管理员
type Admin struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         AdminRole `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Summary 返回给客户端的管理员信息
func (a *Admin) Summary() AdminSummary {
	return AdminSummary{ID: a.ID, Username: a.Username, Name: a.Name, Role: a.Role}
}

// AdminSummary 不含密码的管理员信息
type AdminSummary struct {
	ID       int64     `json:"id"`
	Username string    `json:"username"`
	Name     string    `json:"name"`
	Role     AdminRole `json:"role"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Validate 校验登录请求
func (r *LoginRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	return ValidateStruct(r)
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token string       `json:"token"`
	User  AdminSummary `json:"user"`
}

// ProfileUpdateRequest 修改个人资料
type ProfileUpdateRequest struct {
	Name string `json:"name" validate:"required"`
}

// Validate 校验个人资料请求
func (r *ProfileUpdateRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	return ValidateStruct(r)
}

// MinPasswordLength 新密码最短长度
const MinPasswordLength = 6

// PasswordChangeRequest 修改密码
type PasswordChangeRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// Validate 校验修改密码请求
func (r *PasswordChangeRequest) Validate() error {
	return ValidateStruct(r)
}

// TokenClaims JWT Token声明
type TokenClaims struct {
	AdminID  int64     `json:"id"`
	Username string    `json:"username"`
	Role     AdminRole `json:"role"`
	Type     string    `json:"type"` // "access"
	Exp      int64     `json:"exp"`
	Iat      int64     `json:"iat"`
}

// 实现 jwt.Claims 接口
func (c TokenClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Exp, 0)), nil
}

func (c TokenClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Iat, 0)), nil
}

func (c TokenClaims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

func (c TokenClaims) GetIssuer() (string, error) {
	return "", nil
}

func (c TokenClaims) GetSubject() (string, error) {
	return c.Username, nil
}

func (c TokenClaims) GetAudience() (jwt.ClaimStrings, error) {
	return nil, nil
}
