package server

import (
	"fmt"
	"io"
	"os"
)

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.writeServerInfo(os.Stdout)
}

func (s *Server) writeServerInfo(w io.Writer) {
	s.displayEndpoints(w)
	s.displayAuthInfo(w)
	s.displayRequestLimitInfo(w)
	s.displayRateLimitInfo(w)
}

// displayEndpoints shows available API endpoints
func (s *Server) displayEndpoints(w io.Writer) {
	fmt.Fprintln(w, "Available endpoints:")
	fmt.Fprintln(w, "  GET    /health                 - Health check")
	fmt.Fprintln(w, "  GET    /stats                  - Server statistics")
	fmt.Fprintln(w, "  POST   /api/v1/auth/register   - Create an account")
	fmt.Fprintln(w, "  POST   /api/v1/auth/login      - Obtain a token")
	fmt.Fprintln(w, "  POST   /api/v1/score           - Score resume text (API key or token)")
	fmt.Fprintln(w, "  POST   /api/v1/score/upload    - Score an uploaded resume (API key or token)")
	fmt.Fprintln(w, "  POST   /api/v1/chat            - Ask about a saved result (token)")
	fmt.Fprintln(w, "  GET    /api/v1/history         - List saved results (token)")
	fmt.Fprintln(w, "  GET    /api/v1/history/{id}    - Show a saved result (token)")
	fmt.Fprintln(w, "  DELETE /api/v1/history/{id}    - Delete a saved result (token)")
	fmt.Fprintln(w, "  GET    /api/v1/dashboard       - Recent results and totals (token)")
	fmt.Fprintln(w, "  POST   /api/v1/builder         - Render a resume PDF (token)")
}

// displayAuthInfo shows authentication configuration
func (s *Server) displayAuthInfo(w io.Writer) {
	if len(s.APIKeys) > 0 {
		fmt.Fprintf(w, "API authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
		fmt.Fprintln(w, "Include 'X-API-Key: <your-key>' or a user Bearer token in scoring requests")
	} else {
		fmt.Fprintln(w, "API authentication: DISABLED (no API keys configured)")
		fmt.Fprintln(w, "WARNING: scoring endpoints are publicly accessible!")
	}
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo(w io.Writer) {
	if s.MaxRequestSize > 0 {
		fmt.Fprintf(w, "Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Fprintln(w, "Request size limit: DISABLED")
		fmt.Fprintln(w, "WARNING: No request size limits configured!")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo(w io.Writer) {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Fprintf(w, "Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByAPIKey {
			fmt.Fprintln(w, "  - Per API key rate limiting enabled")
		}
		if s.RateLimit.ByIP {
			fmt.Fprintln(w, "  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Fprintln(w, "Rate limiting: DISABLED")
		fmt.Fprintln(w, "WARNING: No rate limiting configured!")
	}
}
