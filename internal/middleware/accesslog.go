// internal/middleware/accesslog.go
//
// One structured log line and one counter sample per request.
//
// Runs after requestinfo.Enrich so the UA family, bot flag, and country
// are available.  Status codes are bucketed ("2xx", "4xx") for the
// counter to keep label cardinality flat.

package middleware

import (
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/eventsite/internal/metrics"
	"github.com/yanizio/eventsite/internal/requestinfo"
)

// AccessLog logs every request through the global zap logger.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, statusClass(status)).Inc()

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("host", r.Host),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", chimw.GetReqID(r.Context())),
		}
		if info := requestinfo.FromContext(r.Context()); info != nil {
			fields = append(fields,
				zap.String("ip", info.Geo.IP.String()),
				zap.String("browser", info.UA.Browser),
				zap.Bool("bot", info.UA.IsBot),
				zap.String("country", info.Geo.CountryISO),
			)
		}
		zap.L().Info("http request", fields...)
	})
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}
