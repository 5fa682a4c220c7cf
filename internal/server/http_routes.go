package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"resumescore/internal/auth"
)

type claimsKeyType struct{}

var claimsKey = claimsKeyType{}

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	rateLimit := s.rateLimitMiddleware()
	requestLimit := s.requestSizeLimitMiddleware()

	// public: rate limited and size limited only
	public := func(h http.HandlerFunc) http.HandlerFunc {
		return rateLimit(requestLimit(h))
	}
	// caller: a user token or an API key; anonymous when no API keys are configured
	caller := func(h http.HandlerFunc) http.HandlerFunc {
		return s.authMiddleware(false)(rateLimit(requestLimit(h)))
	}
	// user: a valid user token is required
	user := func(h http.HandlerFunc) http.HandlerFunc {
		return s.authMiddleware(true)(rateLimit(requestLimit(h)))
	}

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)

	mux.HandleFunc("POST /api/v1/auth/register", public(s.registerHandler))
	mux.HandleFunc("POST /api/v1/auth/login", public(s.loginHandler))

	mux.HandleFunc("POST /api/v1/score", caller(s.scoreHandler))
	mux.HandleFunc("POST /api/v1/score/upload", caller(s.scoreUploadHandler))

	mux.HandleFunc("POST /api/v1/chat", user(s.chatHandler))
	mux.HandleFunc("GET /api/v1/history", user(s.listHistoryHandler))
	mux.HandleFunc("GET /api/v1/history/{id}", user(s.getHistoryHandler))
	mux.HandleFunc("DELETE /api/v1/history/{id}", user(s.deleteHistoryHandler))
	mux.HandleFunc("GET /api/v1/dashboard", user(s.dashboardHandler))
	mux.HandleFunc("POST /api/v1/builder", user(s.builderHandler))

	return mux
}

// authMiddleware accepts a user token or an API key from X-API-Key or the Bearer header.
// With requireUser set only a user token is accepted. Otherwise API keys are checked, and a
// request carrying neither passes anonymously when no keys are configured.
func (s *Server) authMiddleware(requireUser bool) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			bearer, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			bearer = strings.TrimSpace(bearer)

			if bearer != "" && s.accounts != nil {
				if claims, err := s.accounts.Tokens().Validate(bearer); err == nil {
					s.Logger.Debug("User authentication successful",
						"endpoint", r.URL.Path,
						"user_id", claims.UserID.String())
					next(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
					return
				}
			}

			if requireUser {
				s.Logger.Info("Authentication failed: missing or invalid user token",
					"endpoint", r.URL.Path,
					"client_ip", getClientIP(r))
				writeErrorResponse(w, "Unauthorized", "A valid Bearer token from /api/v1/auth/login is required", http.StatusUnauthorized)
				return
			}

			if len(s.APIKeys) == 0 {
				next(w, r)
				return
			}

			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				apiKey = bearer
			}

			if apiKey == "" {
				s.Logger.Info("Authentication failed: missing API key",
					"endpoint", r.URL.Path,
					"client_ip", getClientIP(r))
				writeErrorResponse(w, "Missing API key", "X-API-Key header or Authorization Bearer token required", http.StatusUnauthorized)
				return
			}

			if !s.APIKeys[apiKey] {
				s.Logger.Info("Authentication failed: invalid API key",
					"endpoint", r.URL.Path,
					"client_ip", getClientIP(r),
					"api_key_prefix", maskAPIKey(apiKey))
				writeErrorResponse(w, "Invalid API key", "Unauthorized access", http.StatusUnauthorized)
				return
			}

			s.Logger.Debug("API authentication successful",
				"endpoint", r.URL.Path,
				"api_key_prefix", maskAPIKey(apiKey))

			next(w, r)
		}
	}
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.MaxRequestSize > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
			}

			next(w, r)
		}
	}
}

// claimsFrom returns the authenticated user, or nil for API-key and anonymous callers
func claimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

func userIDFrom(ctx context.Context) (uuid.UUID, bool) {
	if claims := claimsFrom(ctx); claims != nil {
		return claims.UserID, true
	}
	return uuid.Nil, false
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
