package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"community-meetings-backend/pkg/config"
	"community-meetings-backend/pkg/models"
	"community-meetings-backend/pkg/utils"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func issueToken(t *testing.T, svc *utils.JWTService) string {
	t.Helper()
	token, _, err := svc.GenerateAccessToken(&models.Admin{ID: 3, Username: "lee", Role: models.RoleAdmin})
	require.NoError(t, err)
	return token
}

func TestAuthMiddleware(t *testing.T) {
	svc := utils.NewJWTService("secret", time.Hour)
	var seen *models.TokenClaims
	h := AuthMiddleware(svc, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetAdminFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"scheme only", "Bearer ", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", "", http.StatusUnauthorized},
		{"invalid", "Bearer garbage", "", http.StatusForbidden},
		{"valid header", "Bearer " + issueToken(t, svc), "", http.StatusOK},
		{"valid query", "", "?token=" + issueToken(t, svc), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/api/units"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				require.NotNil(t, seen)
				assert.Equal(t, int64(3), seen.AdminID)
			} else {
				assert.Nil(t, seen)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	_, err := RequireAdmin(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.Error(t, err)
}

func TestLoggerRecordsAdmin(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	svc := utils.NewJWTService("secret", time.Hour)
	h := Logger(zap.New(core))(AuthMiddleware(svc, nil)(http.HandlerFunc(okHandler)))

	req := httptest.NewRequest(http.MethodGet, "/api/units", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, svc))
	h.ServeHTTP(httptest.NewRecorder(), req)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/units", nil))

	entries := logs.All()
	require.Len(t, entries, 2)
	first := entries[0].ContextMap()
	assert.Equal(t, "lee", first["admin"])
	assert.EqualValues(t, 200, first["status"])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.NotContains(t, entries[1].ContextMap(), "admin")
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") })

	prod := &config.Config{Environment: "production"}
	rec := httptest.NewRecorder()
	Recovery(prod, zap.New(core))(panicky).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
	assert.Equal(t, 1, logs.Len())

	dev := &config.Config{Environment: "development"}
	rec = httptest.NewRecorder()
	Recovery(dev, zap.NewNop())(panicky).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, rec.Body.String(), "boom")
}

func TestNormalizeRewritesLegacyPaths(t *testing.T) {
	var got string
	h := Normalize()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { got = r.URL.Path }))

	for in, want := range map[string]string{
		"/api/communities":   "/api/units",
		"/api/communities/5": "/api/units/5",
		"/api/communitiesx":  "/api/communitiesx",
		"/api/meetings":      "/api/meetings",
	} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, in, nil))
		assert.Equal(t, want, got, in)
	}
}

func TestRequireContentType(t *testing.T) {
	h := RequireContentType(ContentTypeJSON, ContentTypeMultipart)(http.HandlerFunc(okHandler))

	do := func(method, ct string) int {
		req := httptest.NewRequest(method, "/", strings.NewReader("{}"))
		if ct != "" {
			req.Header.Set("Content-Type", ct)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do(http.MethodGet, ""))
	assert.Equal(t, http.StatusOK, do(http.MethodPost, "application/json; charset=utf-8"))
	assert.Equal(t, http.StatusOK, do(http.MethodPut, "multipart/form-data; boundary=xyz"))
	assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, ""))
	assert.Equal(t, http.StatusUnsupportedMediaType, do(http.MethodPost, "text/plain"))
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/api/meetings/{id}", normalizePath("/api/meetings/12"))
	assert.Equal(t, "/api/meetings/export", normalizePath("/api/meetings/export"))
	assert.Equal(t, "/uploads/{file}", normalizePath("/uploads/images-abc.png"))
	assert.Equal(t, "/", normalizePath("/"))
}

func TestCORS(t *testing.T) {
	h := CORS(&config.Config{AllowedOrigins: []string{"https://admin.example.org"}})(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodOptions, "/api/units", nil)
	req.Header.Set("Origin", "https://admin.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://admin.example.org", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/api/units", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
