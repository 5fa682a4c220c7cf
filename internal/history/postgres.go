package history

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"resumescore/internal/errors"
	"resumescore/internal/scoring"
)

// PostgresStore keeps history in PostgreSQL.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *errors.Logger
}

// OpenPostgres connects a pgx pool, pings it and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string, maxConns int32, logger *errors.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = errors.Discard()
	}
	if dsn == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "postgres storage requires a DSN", nil)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "invalid postgres DSN", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.MaxConnLifetime = time.Hour
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, storageFailed("open postgres pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, storageFailed("ping postgres", err)
	}

	// goose works on database/sql; borrow a handle backed by the same pool.
	db := stdlib.OpenDBFromPool(pool)
	err = migrate(ctx, db, goose.DialectPostgres, "postgres", logger)
	_ = db.Close()
	if err != nil {
		pool.Close()
		return nil, storageFailed("migrate postgres database", err)
	}

	logger.Info("History store opened", "driver", DriverPostgres, "max_conns", cfg.MaxConns)
	return &PostgresStore{pool: pool, logger: logger}, nil
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return stderrors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *User) error {
	prepareUser(u)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		if isPgUniqueViolation(err) {
			return conflict("username or email already registered", err)
		}
		return storageFailed("create user", err)
	}
	return nil
}

func (s *PostgresStore) UserByUsername(ctx context.Context, username string) (*User, error) {
	return s.queryUser(ctx, `WHERE username = $1`, username)
}

func (s *PostgresStore) UserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.queryUser(ctx, `WHERE id = $1`, id)
}

func (s *PostgresStore) queryUser(ctx context.Context, where string, arg any) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users `+where, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("user")
		}
		return nil, storageFailed("load user", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func (s *PostgresStore) AddEntry(ctx context.Context, e *Entry) error {
	prepareEntry(e)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO history (id, user_id, job_title, score, mode, report, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.UserID, e.JobTitle, e.Score, string(e.Mode), []byte(e.Report), e.CreatedAt)
	if err != nil {
		return storageFailed("save history entry", err)
	}
	return nil
}

const pgEntryColumns = `id, user_id, job_title, score, mode, report, created_at`

func scanPgEntry(row pgx.Row) (*Entry, error) {
	var (
		e      Entry
		mode   string
		report []byte
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.JobTitle, &e.Score, &mode, &report, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Mode = scoring.Mode(mode)
	e.Report = report
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}

func (s *PostgresStore) ListEntries(ctx context.Context, userID uuid.UUID, limit int) ([]Entry, error) {
	query := `SELECT ` + pgEntryColumns + ` FROM history WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageFailed("list history", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanPgEntry(rows)
		if err != nil {
			return nil, storageFailed("load history entry", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageFailed("list history", err)
	}
	return entries, nil
}

func (s *PostgresStore) GetEntry(ctx context.Context, userID, id uuid.UUID) (*Entry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgEntryColumns+` FROM history WHERE id = $1 AND user_id = $2`, id, userID)
	e, err := scanPgEntry(row)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("history entry")
		}
		return nil, storageFailed("load history entry", err)
	}
	return e, nil
}

func (s *PostgresStore) DeleteEntry(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM history WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return storageFailed("delete history entry", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("history entry")
	}
	return nil
}

func (s *PostgresStore) Stats(ctx context.Context, userID uuid.UUID) (Stats, error) {
	var (
		st     Stats
		latest *float64
	)
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       (SELECT score FROM history WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1)
		FROM history WHERE user_id = $1`, userID).Scan(&st.TotalScans, &latest)
	if err != nil {
		return st, storageFailed("load history stats", err)
	}
	st.LatestScore = latest
	return st, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

var _ Store = (*PostgresStore)(nil)
