package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"perpdesk/internal/auth"
	"perpdesk/internal/httputil"

	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey struct{}

// bearerToken extracts the token from "Authorization: Bearer <token>". The
// WebSocket handshake cannot carry headers, so a token query parameter is
// accepted when allowQuery is set.
func bearerToken(r *http.Request, allowQuery bool) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if ok && strings.EqualFold(scheme, "bearer") && strings.TrimSpace(token) != "" {
		return strings.TrimSpace(token), true
	}
	if allowQuery {
		if token := r.URL.Query().Get("token"); token != "" {
			return token, true
		}
	}
	return "", false
}

// WithAuth resolves the bearer token to the account address it was issued
// for. Tokens are minted per address, so the address is the only identity
// handlers see.
func WithAuth(svc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r, false)
			if !ok {
				httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "missing bearer token"})
				return
			}
			account, err := svc.ParseToken(token)
			if err != nil {
				httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "invalid token"})
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, account)))
		})
	}
}

// Account returns the normalized address set by WithAuth.
func Account(r *http.Request) (string, bool) {
	account, ok := r.Context().Value(ctxKey{}).(string)
	return account, ok && account != ""
}

// RequestLog logs one line per request.
func RequestLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"elapsed", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}
