package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Server — HTTP-сервер публичного API маркетплейса.
type Server struct {
	httpServer *http.Server
	logger     *log.Entry
}

// NewServer собирает роутер и создаёт сервер на заданном адресе.
func NewServer(addr string, h *Handler, logger *log.Entry) *Server {
	if logger == nil {
		logger = log.WithField("component", "rest")
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           newRouter(h, logger),
			ReadHeaderTimeout: readHeaderTimeout,
		},
		logger: logger,
	}
}

func newRouter(h *Handler, logger *log.Entry) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		// Канал шлюза server-to-server, заголовок пользователя не несёт.
		r.Post("/payments/notify", h.PaymentNotify)

		r.Group(func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/cart", h.GetCart)
			r.Post("/cart/items", h.AddCartItem)
			r.Put("/cart/items/{serviceID}", h.SetCartItemQuantity)
			r.Delete("/cart/items/{serviceID}", h.RemoveCartItem)
			r.Post("/checkout", h.Checkout)
			r.Get("/orders", h.ListOrders)
			r.Get("/orders/{id}", h.GetOrder)
			r.Post("/orders/{id}/cancel", h.CancelOrder)
		})
	})

	return r
}

// Run запускает сервер и блокируется до его остановки.
func (s *Server) Run() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("HTTP API listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown останавливает сервер, дожидаясь активных запросов.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// requestLogger пишет строку доступа на каждый запрос.
func requestLogger(logger *log.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.WithFields(log.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   ww.Status(),
				"duration": time.Since(start).String(),
			}).Debug("request handled")
		})
	}
}
