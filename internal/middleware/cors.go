package middleware

import (
	"net/http"
	"strings"
)

type originPolicy struct {
	allowAll bool
	allowed  map[string]struct{}
}

func newOriginPolicy(allowedOrigins []string) originPolicy {
	p := originPolicy{allowed: make(map[string]struct{}, len(allowedOrigins))}
	for _, origin := range allowedOrigins {
		origin = normalizeOrigin(origin)
		if origin == "*" {
			p.allowAll = true
		}
		p.allowed[origin] = struct{}{}
	}
	return p
}

func (p originPolicy) allows(origin string) bool {
	if p.allowAll {
		return true
	}
	_, ok := p.allowed[normalizeOrigin(origin)]
	return ok
}

// normalizeOrigin 去掉首尾空白和末尾的斜杠。
func normalizeOrigin(origin string) string {
	return strings.TrimRight(strings.TrimSpace(origin), "/")
}

// OriginMatcher 返回与 CORS 相同的来源判断，供 WebSocket 握手复用。
func OriginMatcher(allowedOrigins []string) func(origin string) bool {
	return newOriginPolicy(allowedOrigins).allows
}

// CORS 允许落地页跨域访问聊天接口。
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	policy := newOriginPolicy(allowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				if policy.allowAll {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				} else if policy.allows(origin) {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Add("Vary", "Origin")
				}
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
