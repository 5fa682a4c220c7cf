// Package history persists user accounts and their past scoring runs.
//
// Two backends implement Store: SQLite (modernc.org/sqlite, the default for single-node and
// CLI use) and PostgreSQL (pgx). Both create their schema through embedded goose migrations.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"resumescore/internal/config"
	"resumescore/internal/errors"
	"resumescore/internal/scoring"
)

// GeneralAssessment is the job title recorded for runs without a job description.
const GeneralAssessment = "General Assessment"

const jobTitleLength = 50

// User is a registered account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Entry is one saved scoring run. Report holds the serialized result, mode tag included.
type Entry struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"userId"`
	JobTitle  string          `json:"jobTitle"`
	Score     float64         `json:"score"`
	Mode      scoring.Mode    `json:"mode"`
	Report    json.RawMessage `json:"report"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Result decodes the stored report.
func (e *Entry) Result() (scoring.Result, error) {
	return scoring.DecodeResult(e.Report)
}

// Stats summarizes a user's history.
type Stats struct {
	TotalScans  int      `json:"totalScans"`
	LatestScore *float64 `json:"latestScore"`
}

// Store is implemented by each backend.
type Store interface {
	CreateUser(ctx context.Context, u *User) error
	UserByUsername(ctx context.Context, username string) (*User, error)
	UserByID(ctx context.Context, id uuid.UUID) (*User, error)

	AddEntry(ctx context.Context, e *Entry) error
	// ListEntries returns entries newest first. limit <= 0 means no limit.
	ListEntries(ctx context.Context, userID uuid.UUID, limit int) ([]Entry, error)
	GetEntry(ctx context.Context, userID, id uuid.UUID) (*Entry, error)
	DeleteEntry(ctx context.Context, userID, id uuid.UUID) error
	Stats(ctx context.Context, userID uuid.UUID) (Stats, error)

	Ping(ctx context.Context) error
	Close() error
}

// JobTitle derives the title shown in history lists from the job description.
func JobTitle(jobDescription string) string {
	if strings.TrimSpace(jobDescription) == "" {
		return GeneralAssessment
	}
	runes := []rune(jobDescription)
	if len(runes) > jobTitleLength {
		runes = runes[:jobTitleLength]
	}
	return string(runes)
}

// NewEntry builds an entry for a finished run.
func NewEntry(userID uuid.UUID, jobDescription string, result scoring.Result) (*Entry, error) {
	report, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize report: %w", err)
	}
	return &Entry{
		ID:        uuid.New(),
		UserID:    userID,
		JobTitle:  JobTitle(jobDescription),
		Score:     result.Base().Score,
		Mode:      result.Mode(),
		Report:    report,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Open connects to the configured backend and applies pending migrations.
func Open(ctx context.Context, cfg config.StorageConfig, logger *errors.Logger) (Store, error) {
	switch cfg.Driver {
	case "", DriverSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath, logger)
	case DriverPostgres:
		return OpenPostgres(ctx, cfg.DSN, cfg.MaxConns, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("unknown storage driver %q", cfg.Driver), nil)
	}
}

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func notFound(what string) error {
	return errors.NewStorageError(errors.ErrCodeNotFound, what+" not found", nil)
}

func conflict(message string, cause error) error {
	return errors.NewStorageError(errors.ErrCodeConflict, message, cause)
}

func storageFailed(op string, cause error) error {
	return errors.NewStorageError(errors.ErrCodeStorageFailed, "failed to "+op, cause)
}

func prepareEntry(e *Entry) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
}

func prepareUser(u *User) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.Username = strings.TrimSpace(u.Username)
}
