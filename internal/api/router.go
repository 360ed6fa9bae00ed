package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yegors/flightwatch/internal/tracker"
	"github.com/yegors/flightwatch/internal/websocket"
	"github.com/yegors/flightwatch/pkg/logger"
)

const requestTimeout = 30 * time.Second

// Router wires the HTTP API
type Router struct {
	handler *Handler
	logger  *logger.Logger
}

// NewRouter creates a new API router. loc is the time zone used for the
// projected view.
func NewRouter(service *tracker.Service, wsServer *websocket.Server, loc *time.Location, log *logger.Logger) *Router {
	return &Router{
		handler: NewHandler(service, wsServer, loc, log),
		logger:  log.Named("api-router"),
	}
}

// Routes returns the HTTP handler for all endpoints
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(r.requestLogger)
	router.Use(middleware.Recoverer)
	router.Use(corsMiddleware)

	router.Route("/api/v1", func(api chi.Router) {
		// Long-lived connection, kept out of the request timeout
		api.Get("/ws", r.handler.HandleWebSocket)

		api.Group(func(api chi.Router) {
			api.Use(middleware.Timeout(requestTimeout))

			api.Get("/health", r.handler.GetHealth)
			api.Get("/flights", r.handler.GetFlights)
			api.Get("/view", r.handler.GetView)
			api.Get("/status", r.handler.GetStatus)
			api.Post("/refresh", r.handler.Refresh)
		})
	})

	return router
}

// requestLogger logs every request once it has been served
func (r *Router) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)

		next.ServeHTTP(ww, req)

		r.logger.Debug("HTTP request",
			logger.String("method", req.Method),
			logger.String("path", req.URL.Path),
			logger.Int("status", ww.Status()),
			logger.Int("bytes", ww.BytesWritten()),
			logger.Duration("duration", time.Since(start)),
			logger.String("request_id", middleware.GetReqID(req.Context())))
	})
}

// corsMiddleware lets dashboards on other origins read the API
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
