package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"community-meetings-backend/pkg/models"
)

// TokenTypeAccess 访问令牌类型
const TokenTypeAccess = "access"

// DefaultTokenTTL 访问令牌默认有效期
const DefaultTokenTTL = 24 * time.Hour

// ErrInvalidToken 令牌无法通过校验（签名、格式、类型或已过期）
var ErrInvalidToken = errors.New("invalid token")

// JWTService JWT服务
type JWTService struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewJWTService 创建JWT服务
func NewJWTService(secretKey string, ttl time.Duration) *JWTService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &JWTService{
		secretKey: []byte(secretKey),
		ttl:       ttl,
		now:       time.Now,
	}
}

// GenerateAccessToken 为管理员签发访问令牌，返回令牌与过期时间
func (j *JWTService) GenerateAccessToken(admin *models.Admin) (string, int64, error) {
	now := j.now()
	expiry := now.Add(j.ttl)

	claims := &models.TokenClaims{
		AdminID:  admin.ID,
		Username: admin.Username,
		Role:     admin.Role,
		Type:     TokenTypeAccess,
		Exp:      expiry.Unix(),
		Iat:      now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", 0, fmt.Errorf("failed to generate access token: %w", err)
	}

	return tokenString, expiry.Unix(), nil
}

// ValidateToken 验证令牌
func (j *JWTService) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// 验证签名方法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	}, jwt.WithTimeFunc(j.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Type != TokenTypeAccess {
		return nil, fmt.Errorf("%w: unexpected token type %q", ErrInvalidToken, claims.Type)
	}

	if claims.AdminID <= 0 {
		return nil, fmt.Errorf("%w: missing admin id", ErrInvalidToken)
	}

	return claims, nil
}
