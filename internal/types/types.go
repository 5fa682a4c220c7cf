// Package types holds the request and response shapes shared by the HTTP service and the CLI.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	appErrors "resumescore/internal/errors"
	"resumescore/internal/scoring"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validate checks v against its validate tags and reports the first failure as a validation error.
func Validate(v any) error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})

	if err := validate.Struct(v); err != nil {
		return appErrors.NewValidationError(appErrors.ErrCodeInvalidInput, describeValidation(err), nil)
	}
	return nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required", "required_without":
			return fmt.Sprintf("%s is required", fe.Field())
		case "email":
			return fmt.Sprintf("%s must be a valid email address", fe.Field())
		case "min":
			return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
		case "max":
			return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
		default:
			return fmt.Sprintf("%s failed the %s check", fe.Field(), fe.Tag())
		}
	}
	return "invalid request"
}

// ScoreRequest is the body of POST /api/v1/score
type ScoreRequest struct {
	ResumeText     string `json:"resumeText"`
	JobDescription string `json:"jobDescription"`
}

// ScoreResponse wraps a result with the history entry it was saved as, if any
type ScoreResponse struct {
	Result    scoring.Result `json:"result"`
	HistoryID *uuid.UUID     `json:"historyId,omitempty"`
}

// RegisterRequest creates an account
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest exchanges credentials for a token
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UserResponse is the public view of an account
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token,omitempty"`
	ExpiresAt *time.Time   `json:"expiresAt,omitempty"`
}

// ChatRequest asks the assistant about a saved report
type ChatRequest struct {
	Message   string     `json:"message" validate:"required,max=2000"`
	HistoryID *uuid.UUID `json:"historyId,omitempty"`
}

// HistoryItem summarizes one saved run
type HistoryItem struct {
	ID        uuid.UUID    `json:"id"`
	JobTitle  string       `json:"jobTitle"`
	Score     float64      `json:"score"`
	Mode      scoring.Mode `json:"mode"`
	CreatedAt time.Time    `json:"createdAt"`
}

// HistoryDetail is one saved run with its full report
type HistoryDetail struct {
	HistoryItem
	Report json.RawMessage `json:"report"`
}

// DashboardResponse mirrors the landing page after login
type DashboardResponse struct {
	Recent      []HistoryItem `json:"recent"`
	TotalScans  int           `json:"totalScans"`
	LatestScore *float64      `json:"latestScore"`
}

// BatchItem is one ranked resume of a batch run
type BatchItem struct {
	Rank   int            `json:"rank"`
	File   string         `json:"file"`
	Result scoring.Result `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// ResumeDraft is the builder form. Multi-line fields keep one entry or bullet per line.
type ResumeDraft struct {
	FullName       string `json:"fullName" validate:"required,max=120"`
	Email          string `json:"email" validate:"omitempty,email"`
	Phone          string `json:"phone" validate:"max=40"`
	Location       string `json:"location" validate:"max=120"`
	Summary        string `json:"summary"`
	Experience     string `json:"experience"`
	Projects       string `json:"projects"`
	Education      string `json:"education"`
	Skills         string `json:"skills"`
	Certifications string `json:"certifications"`
	Achievements   string `json:"achievements"`
}
