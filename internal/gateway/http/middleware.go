package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/fjod/storefront/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	sessionIDKey
	customerIDKey
)

const (
	SessionHeader   = "X-Session-ID"
	SessionCookie   = "cart_session"
	CustomerHeader  = "X-Customer-ID"
	StaffKeyHeader  = "X-Staff-Key"
	RequestIDHeader = "X-Request-ID"

	sessionCookieMaxAge = 30 * 24 * 60 * 60
)

// RequestIDMiddleware adds a unique request ID to each request and a logger
// carrying it to the request context.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		ctx = logger.WithContext(ctx, logger.Get().With(zap.String("request_id", requestID)))
		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestLogger logs one line per request once the handler returns.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.FromContext(r.Context()).Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)))
	})
}

// SessionMiddleware resolves the cart session from the X-Session-ID header or
// the cart_session cookie. A new session is issued when neither is present.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get(SessionHeader)
		if sessionID == "" {
			if c, err := r.Cookie(SessionCookie); err == nil {
				sessionID = c.Value
			}
		}
		if sessionID == "" {
			sessionID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    sessionID,
				Path:     "/",
				MaxAge:   sessionCookieMaxAge,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		w.Header().Set(SessionHeader, sessionID)

		ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CustomerMiddleware records the optional customer identity.
func CustomerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if customerID := r.Header.Get(CustomerHeader); customerID != "" {
			r = r.WithContext(context.WithValue(r.Context(), customerIDKey, customerID))
		}
		next.ServeHTTP(w, r)
	})
}

// StaffOnly rejects requests that do not carry the staff API key.
func StaffOnly(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			given := r.Header.Get(StaffKeyHeader)
			if apiKey == "" || subtle.ConstantTimeCompare([]byte(given), []byte(apiKey)) != 1 {
				respondError(w, http.StatusUnauthorized, "unauthorized", "staff key required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

func getSessionID(ctx context.Context) string {
	if sessionID, ok := ctx.Value(sessionIDKey).(string); ok {
		return sessionID
	}
	return ""
}

// getCustomerID returns nil for guests.
func getCustomerID(ctx context.Context) *string {
	if customerID, ok := ctx.Value(customerIDKey).(string); ok && customerID != "" {
		return &customerID
	}
	return nil
}
