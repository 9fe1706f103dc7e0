package middleware

import (
	"net/http"
	"strings"
)

// 旧客户端使用的路径前缀 → 当前路径前缀
var legacyPrefixes = map[string]string{
	"/api/communities": "/api/units",
}

// Normalize 规整经代理转发的请求：
// 去掉路径首尾空白，从转发头恢复 scheme/host，并把旧版路径改写为当前路由
func Normalize() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p := r.URL.Path; strings.TrimSpace(p) != p {
				r.URL.Path = strings.TrimSpace(p)
			}
			r.URL.Path = rewriteLegacyPath(r.URL.Path)
			r.URL.RawPath = ""

			if xfproto := r.Header.Get("X-Forwarded-Proto"); xfproto != "" {
				r.URL.Scheme = xfproto
			}
			if xfhost := r.Header.Get("X-Forwarded-Host"); xfhost != "" {
				r.Host = xfhost
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rewriteLegacyPath(path string) string {
	for old, current := range legacyPrefixes {
		if path == old || strings.HasPrefix(path, old+"/") {
			return current + strings.TrimPrefix(path, old)
		}
	}
	return path
}
