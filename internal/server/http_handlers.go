package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"resumescore/internal/errors"
	"resumescore/internal/types"
)

const defaultHealthCheckTimeout = 5 * time.Second

// getHealthCheckTimeout returns the configured health check timeout
func (s *Server) getHealthCheckTimeout() time.Duration {
	if s.AppConfig == nil || s.AppConfig.Observability.HealthCheck.Timeout <= 0 {
		return defaultHealthCheckTimeout
	}
	return s.AppConfig.Observability.HealthCheck.Timeout
}

// healthHandler reports model, storage and advisor status. A missing model or an
// unreachable database makes the service degraded.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.getHealthCheckTimeout())
	defer cancel()

	response := map[string]any{
		"status":  "healthy",
		"service": "resumescore",
		"version": s.Version,
	}
	healthy := true

	if s.models != nil {
		modelStatus := map[string]any{"available": true}
		if err := s.models.Ready(); err != nil {
			healthy = false
			modelStatus["available"] = false
			modelStatus["error"] = errorDetail(err)
		}
		modelStatus["status"] = s.models.Status()
		response["model"] = modelStatus
	}

	if s.history != nil {
		storageStatus := map[string]any{"available": true}
		if err := s.history.Ping(ctx); err != nil {
			healthy = false
			storageStatus["available"] = false
			storageStatus["error"] = errorDetail(err)
		}
		response["storage"] = storageStatus
	}

	// the advisor is optional, so it never degrades the service
	if s.advisor != nil {
		response["advisor"] = s.advisor.ModelInfo(ctx)
	}

	status := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "resumescore",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"api_keys_configured":    len(s.APIKeys),
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	if s.models != nil {
		response["model"] = s.models.Status()
	}
	if s.watcher != nil {
		response["model_watcher"] = map[string]any{"running": s.watcher.IsRunning()}
	}

	writeJSON(w, http.StatusOK, response)
}

// parseJSONRequest parses JSON request body into the provided struct and validates it
func parseJSONRequest(r *http.Request, v any) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "content-type must be application/json", nil)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return errors.NewValidationError(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("request body too large (limit is %d bytes)", maxBytesErr.Limit), nil)
		}
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "failed to read request body", err)
	}
	defer func() {
		_ = r.Body.Close()
	}()

	if err := json.Unmarshal(body, v); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "failed to parse JSON", err)
	}

	return types.Validate(v)
}

// writeJSON encodes v with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// headers are already sent, so an encode failure cannot be reported
	_ = json.NewEncoder(w).Encode(v)
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	writeJSON(w, statusCode, types.ErrorResponse{
		Error:   error,
		Message: message,
	})
}

// writeAppError maps err onto a status code and writes it. Unexpected errors are logged
// and reported without their cause.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	appErr, ok := errors.AsAppError(err)
	if !ok || status == http.StatusInternalServerError {
		s.Logger.LogError(err, "Request failed", "endpoint", r.URL.Path, "method", r.Method)
	}
	if !ok {
		writeErrorResponse(w, http.StatusText(status), "internal server error", status)
		return
	}

	message := appErr.Detail()
	if status == http.StatusInternalServerError {
		message = appErr.Message
	}
	writeJSON(w, status, types.ErrorResponse{
		Error:   http.StatusText(status),
		Code:    appErr.Code,
		Message: message,
	})
}

// statusFor maps an application error onto an HTTP status
func statusFor(err error) int {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		return http.StatusInternalServerError
	}

	switch appErr.Code {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeConflict:
		return http.StatusConflict
	}

	switch appErr.Type {
	case errors.ErrorTypeValidation:
		return http.StatusBadRequest
	case errors.ErrorTypeIO:
		return http.StatusUnprocessableEntity
	case errors.ErrorTypeAuth:
		return http.StatusUnauthorized
	case errors.ErrorTypeModel:
		return http.StatusServiceUnavailable
	case errors.ErrorTypeAI, errors.ErrorTypeNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorDetail(err error) string {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr.Detail()
	}
	return err.Error()
}
