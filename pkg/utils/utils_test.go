package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"community-meetings-backend/pkg/models"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp
}

func TestWriteErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", models.NewValidationError("type", "must be one of group"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"wrapped validation", fmt.Errorf("create: %w", models.NewValidationError("name", "is required")), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"not found", models.NotFoundf("unit %d", 3), http.StatusNotFound, "NOT_FOUND"},
		{"credentials", models.ErrInvalidCredentials, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"storage", errors.New("disk I/O error"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, zap.NewNop(), tc.err)
			assert.Equal(t, tc.status, rec.Code)
			resp := decodeError(t, rec)
			assert.False(t, resp.Success)
			assert.Equal(t, tc.code, resp.Error.Code)
		})
	}

	rec := httptest.NewRecorder()
	WriteError(rec, nil, errors.New("secret detail"))
	assert.NotContains(t, rec.Body.String(), "secret detail")
}

func TestWriteSuccessIsRawJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccessResponse(rec, []int{1, 2})
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `[1,2]`, rec.Body.String())

	rec = httptest.NewRecorder()
	WriteMessage(rec, "更新成功")
	assert.JSONEq(t, `{"message":"更新成功"}`, rec.Body.String())
}

func TestQueryHelpers(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/meetings?community_type=pai&page=x&limit=5", nil)
	assert.Equal(t, "pai", FirstQueryParam(r, "unit_type", "community_type"))
	assert.Equal(t, "", FirstQueryParam(r, "project"))
	assert.Equal(t, 1, GetIntQueryParam(r, "page", 1))
	assert.Equal(t, 5, GetIntQueryParam(r, "limit", 20))
	assert.Equal(t, "d", GetQueryParam(r, "missing", "d"))

	id, err := ParseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	_, err = ParseID("0")
	assert.True(t, models.IsValidationError(err))
	_, err = ParseID("abc")
	assert.True(t, models.IsValidationError(err))
}

func TestParseJSONBody(t *testing.T) {
	var v struct{ Name string }
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"Name":"x"}`))
	require.NoError(t, ParseJSONBody(r, &v))
	assert.Equal(t, "x", v.Name)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	assert.True(t, models.IsValidationError(ParseJSONBody(r, &v)))
}

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService("secret", 0)
	admin := &models.Admin{ID: 7, Username: "admin", Role: models.RoleSuperAdmin}

	token, exp, err := svc.GenerateAccessToken(admin)
	require.NoError(t, err)
	assert.InDelta(t, time.Now().Add(DefaultTokenTTL).Unix(), exp, 5)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.AdminID)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, models.RoleSuperAdmin, claims.Role)
}

func TestJWTRejects(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	admin := &models.Admin{ID: 1, Username: "a", Role: models.RoleAdmin}

	other, _, err := NewJWTService("other", time.Hour).GenerateAccessToken(admin)
	require.NoError(t, err)
	_, err = svc.ValidateToken(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	past := NewJWTService("secret", time.Minute)
	past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, err := past.GenerateAccessToken(admin)
	require.NoError(t, err)
	_, err = svc.ValidateToken(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.TokenClaims{
		AdminID: 1, Type: "refresh", Exp: time.Now().Add(time.Hour).Unix(), Iat: time.Now().Unix(),
	})
	signed, err := refresh.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &models.TokenClaims{
		AdminID: 1, Type: TokenTypeAccess, Exp: time.Now().Add(time.Hour).Unix(),
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ValidateToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
