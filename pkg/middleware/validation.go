package middleware

import (
	"mime"
	"net/http"
	"strings"

	"community-meetings-backend/pkg/utils"
)

// 请求体类型
const (
	ContentTypeJSON      = "application/json"
	ContentTypeMultipart = "multipart/form-data"
)

// RequireContentType 写请求（POST/PUT/PATCH）必须携带允许的 Content-Type
func RequireContentType(allowed ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			if contentType == "" {
				utils.WriteBadRequestResponse(w, "Content-Type header is required")
				return
			}

			// 忽略 charset、boundary 等参数
			mediaType, _, err := mime.ParseMediaType(contentType)
			if err != nil {
				utils.WriteBadRequestResponse(w, "Invalid Content-Type header")
				return
			}
			for _, a := range allowed {
				if strings.EqualFold(mediaType, a) {
					next.ServeHTTP(w, r)
					return
				}
			}
			utils.WriteErrorResponseWithCode(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE",
				"Content-Type must be one of "+strings.Join(allowed, ", "), "")
		})
	}
}

// MaxBodySize 限制请求体大小
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
