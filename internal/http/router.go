package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lockerhub/server/internal/auth"
	"github.com/lockerhub/server/internal/http/handlers"
	"github.com/lockerhub/server/internal/lifecycle"
	"github.com/lockerhub/server/internal/middleware"
)

// Deps are the collaborators the router wires into handlers
type Deps struct {
	Service *lifecycle.Service
	JWT     *auth.JWTService
	DB      handlers.Pinger
	Logger  *zap.Logger
	// OtpLimiter bounds OTP requests and collect attempts per client address
	OtpLimiter *middleware.RateLimiter
	// LockerLimiter bounds them per locker, whatever the client address
	LockerLimiter *middleware.RateLimiter
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP
	TrustProxy bool
}

// NewOtpLimiter returns the default per-address limiter for OTP request and collect endpoints
func NewOtpLimiter() *middleware.RateLimiter {
	return middleware.NewRateLimiter(10*time.Minute, 10)
}

// NewLockerLimiter returns the default per-locker limiter for the same endpoints
func NewLockerLimiter() *middleware.RateLimiter {
	return middleware.NewRateLimiter(time.Hour, 20)
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	if d.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestLogger(d.Logger.Named("http")))
	r.Use(chimw.Recoverer)

	healthHandler := handlers.NewHealthHandler(d.DB)
	lockerHandler := handlers.NewLockerHandler(d.Service, d.Logger)
	itemHandler := handlers.NewItemHandler(d.Service, d.Logger)
	adminHandler := handlers.NewAdminHandler(d.Service, d.Logger)

	r.Get("/health", healthHandler.ServeHTTP)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/lockers", func(r chi.Router) {
		r.Get("/", lockerHandler.HandleList)
		r.Get("/{lockerID}", lockerHandler.HandleGet)

		r.Group(func(r chi.Router) {
			if d.OtpLimiter != nil {
				r.Use(middleware.RateLimitMiddleware(d.OtpLimiter, middleware.GetIPKey))
			}
			if d.LockerLimiter != nil {
				r.Use(middleware.RateLimitMiddleware(d.LockerLimiter, middleware.RouteParamKey("lockerID")))
			}
			r.Post("/{lockerID}/request-otp", lockerHandler.HandleRequestOtp)
			r.Post("/{lockerID}/collect", lockerHandler.HandleCollect)
		})
	})

	r.Route("/items", func(r chi.Router) {
		// anonymous deposits are allowed; an admin token unlocks the rate override
		r.With(middleware.OptionalAuth(d.JWT)).Post("/", itemHandler.HandleDeposit)
		r.With(middleware.AuthMiddleware(d.JWT)).Get("/", itemHandler.HandleHistory)
	})

	// Admin routes (require valid JWT; role is checked by the lifecycle service)
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(d.JWT))
		r.Post("/lockers", adminHandler.HandleProvision)
		r.Put("/lockers/{lockerID}/maintenance", adminHandler.HandleMaintenance)
		r.Delete("/lockers/{lockerID}/force-clear", adminHandler.HandleForceClear)
	})

	return r
}
