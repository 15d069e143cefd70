package api

import (
	"net/http"
	"time"

	"github.com/example/ec-orders/internal/api/middleware"
	"github.com/example/ec-orders/internal/auth"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const defaultRequestTimeout = 15 * time.Second

type RouterConfig struct {
	Handlers     *Handlers
	AuthHandlers *AuthHandlers
	JWTService   *auth.JWTService
	Users        middleware.UserFinder
	Logger       *zap.Logger
	// RequestTimeout bounds every request; zero means 15s.
	RequestTimeout time.Duration
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, middleware.RequestLogger(logger.Named("http")), chimw.Recoverer)
	r.Use(chimw.Timeout(timeout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondJSONError(w, "route not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public
		r.Route("/auth", func(r chi.Router) {
			r.Post("/sign-up", cfg.AuthHandlers.SignUp)
			r.Post("/sign-in", cfg.AuthHandlers.SignIn)
			r.Post("/sign-out", cfg.AuthHandlers.SignOut)
		})

		// Authenticated; per-order and admin rules are enforced by the handlers
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(cfg.JWTService, cfg.Users, logger.Named("auth")))

			r.Route("/products", func(r chi.Router) {
				r.Get("/", cfg.Handlers.ListProducts)
				r.Post("/", cfg.Handlers.CreateProduct)
				r.Get("/{id}", cfg.Handlers.GetProduct)
				r.Put("/{id}", cfg.Handlers.UpdateProduct)
				r.Delete("/{id}", cfg.Handlers.DeleteProduct)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", cfg.Handlers.ListOrders)
				r.Post("/", cfg.Handlers.CreateOrder)
				r.Get("/user/{id}", cfg.Handlers.ListUserOrders)
				r.Post("/cancel/{id}", cfg.Handlers.CancelOrder)
				r.Post("/confirm/{id}", cfg.Handlers.ConfirmOrder)
				r.Get("/{id}", cfg.Handlers.GetOrder)
				r.Put("/{id}", cfg.Handlers.UpdateOrder)
				r.Delete("/{id}", cfg.Handlers.DeleteOrder)
			})
		})
	})

	return r
}
