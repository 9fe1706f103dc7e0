package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"community-meetings-backend/pkg/models"
	"community-meetings-backend/pkg/utils"
)

// ContextKey 用于在context中存储管理员信息的键
type ContextKey string

const (
	AdminContextKey ContextKey = "admin"

	adminSinkKey ContextKey = "admin_sink"
)

// withAdminSink 挂载一个回填位置，门禁通过后写入管理员用户名供请求日志使用
func withAdminSink(ctx context.Context, sink *string) context.Context {
	return context.WithValue(ctx, adminSinkKey, sink)
}

// TokenValidator 校验访问令牌
type TokenValidator interface {
	ValidateToken(tokenString string) (*models.TokenClaims, error)
}

// AuthMiddleware 访问门禁：缺少令牌返回401，令牌无效返回403
func AuthMiddleware(tokens TokenValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				utils.WriteUnauthorizedResponse(w, "访问令牌缺失")
				return
			}

			claims, err := tokens.ValidateToken(tokenString)
			if err != nil {
				logger.Debug("rejected access token", zap.String("path", r.URL.Path), zap.Error(err))
				utils.WriteForbiddenResponse(w, "访问令牌无效")
				return
			}

			if sink, ok := r.Context().Value(adminSinkKey).(*string); ok {
				*sink = claims.Username
			}
			ctx := context.WithValue(r.Context(), AdminContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken 取 Authorization 头中的令牌；附件链接由浏览器直接打开时无法带头，退回 ?token= 参数
func bearerToken(r *http.Request) string {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// GetAdminFromContext 从context中获取管理员令牌信息
func GetAdminFromContext(ctx context.Context) (*models.TokenClaims, bool) {
	claims, ok := ctx.Value(AdminContextKey).(*models.TokenClaims)
	return claims, ok && claims != nil
}

// RequireAdmin 要求请求已通过访问门禁
func RequireAdmin(ctx context.Context) (*models.TokenClaims, error) {
	claims, ok := GetAdminFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("admin not authenticated")
	}
	return claims, nil
}
