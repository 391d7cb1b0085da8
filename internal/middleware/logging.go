package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/fixmycar/assistant/backend/internal/logger"
)

// RequestLogger 把请求日志写入 zerolog，并把 logger 注入请求上下文。
func RequestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	access := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("url", r.URL.String()).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})

	withLogger := hlog.NewHandler(logger.Component(log, "http"))
	return func(next http.Handler) http.Handler {
		return withLogger(access(next))
	}
}
