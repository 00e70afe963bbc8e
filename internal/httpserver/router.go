package httpserver

import (
	"log/slog"
	"net/http"

	"perpdesk/internal/accounts"
	"perpdesk/internal/auth"
	"perpdesk/internal/health"
	"perpdesk/internal/httputil"
	"perpdesk/internal/orders"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterDeps struct {
	AuthHandler     *auth.Handler
	AccountsHandler *accounts.Handler
	OrderHandler    *orders.Handler
	HealthHandler   *health.Handler
	AuthService     *auth.Service
	WSHandler       http.Handler
	RateLimiter     *RateLimiter
	Origin          string
	Logger          *slog.Logger
}

type userHandler func(w http.ResponseWriter, r *http.Request, userID string)

// withUser resolves the authenticated account before calling fn.
func withUser(fn userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := Account(r)
		if !ok {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
			return
		}
		fn(w, r, userID)
	}
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLog(d.Logger))
	r.Use(cors(d.Origin))
	r.Use(SecurityHeaders)
	if d.RateLimiter != nil {
		r.Use(d.RateLimiter.Middleware)
	}

	r.Get("/health", d.HealthHandler.Ready)
	r.Get("/health/live", d.HealthHandler.Live)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/markets", d.OrderHandler.Markets)
		r.Get("/ws", d.WSHandler.ServeHTTP)
		r.Group(func(r chi.Router) {
			r.Use(WithAuth(d.AuthService))
			r.Get("/me", withUser(d.AuthHandler.Me))
			r.Get("/health/full", d.HealthHandler.Full)

			r.Get("/account", withUser(d.AccountsHandler.Account))
			r.Post("/account/refresh", withUser(d.AccountsHandler.Refresh))
			r.Get("/account/profile", withUser(d.AccountsHandler.Profile))
			r.Get("/positions", withUser(d.AccountsHandler.Positions))
			r.Get("/orders/open", withUser(d.AccountsHandler.OpenOrders))
			r.Get("/orders/history", withUser(d.AccountsHandler.OrderHistory))
			r.Get("/trades", withUser(d.AccountsHandler.Trades))
			r.Get("/fills", withUser(d.AccountsHandler.Fills))

			r.Post("/orders/preview", withUser(d.OrderHandler.Preview))
			r.Post("/orders/preset", withUser(d.OrderHandler.Preset))
			r.Post("/orders", withUser(d.OrderHandler.Submit))
			r.Get("/orders/forms/{formID}", func(w http.ResponseWriter, r *http.Request) {
				d.OrderHandler.FormState(w, r, chi.URLParam(r, "formID"))
			})
			r.Get("/submissions", withUser(d.OrderHandler.Submissions))
			r.Get("/submissions/{id}", withUser(func(w http.ResponseWriter, r *http.Request, userID string) {
				d.OrderHandler.Submission(w, r, userID, chi.URLParam(r, "id"))
			}))
		})
	})
	return r
}

func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqOrigin := r.Header.Get("Origin")
			if reqOrigin != "" && allowOrigin(r, origin) {
				w.Header().Set("Access-Control-Allow-Origin", reqOrigin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+orders.FormIDHeader)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
