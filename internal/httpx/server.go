package httpx

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-distribution-orders/internal/logging"
	"github.com/ariefcatur/go-distribution-orders/internal/metrics"
)

type RouterConfig struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics // nil disables /metrics and request counters
	Timeout time.Duration
}

func NewRouter(cfg RouterConfig) *chi.Mux {
	cfg.Logger = logging.OrNop(cfg.Logger)
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(requestLogger(cfg.Logger, cfg.Metrics))
	r.Use(middleware.Timeout(cfg.Timeout))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}
	return r
}

// requestLogger logs one line per request and feeds the HTTP collectors. The
// request-scoped logger is stored in the context for handlers.
func requestLogger(base *zap.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			log := base.With(zap.String("request_id", middleware.GetReqID(r.Context())))
			next.ServeHTTP(ww, r.WithContext(logging.WithLogger(r.Context(), log)))

			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)
			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("latency", elapsed))
			if m != nil {
				m.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
				m.LatencyMS.WithLabelValues(route).Observe(float64(elapsed.Microseconds()) / 1000)
			}
		})
	}
}
