package httpapi

import (
	"errors"
	"net/http"

	"github.com/riskibarqy/score-tracker/internal/platform/logging"
)

type RouterConfig struct {
	Logger             *logging.Logger
	CORSAllowedOrigins []string
	// AdminToken guards /v1/admin routes. Empty disables them with 503.
	AdminToken string
	// Metrics is mounted on GET /metrics when set.
	Metrics http.Handler
}

// NewRouter wires the routes behind tracing, logging, CORS and panic recovery,
// outermost first.
func NewRouter(handler *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	mux := http.NewServeMux()
	registerSystemRoutes(mux, handler, cfg.Metrics)
	registerPublicMatchRoutes(mux, handler)
	registerAdminMatchRoutes(mux, handler, cfg.AdminToken)

	var h http.Handler = mux
	h = recoverPanic(logger, h)
	h = CORS(cfg.CORSAllowedOrigins, h)
	h = RequestLogging(logger, h)
	return RequestTracing(h)
}

// recoverPanic turns handler panics into a 500. http.ErrAbortHandler is
// re-raised so net/http can drop the connection.
func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}
			logger.ErrorContext(r.Context(), "panic recovered", "panic", rec, "method", r.Method, "path", r.URL.Path)
			writeInternalError(r.Context(), w)
		}()
		next.ServeHTTP(w, r)
	})
}
