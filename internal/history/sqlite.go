package history

import (
	"context"
	"database/sql"
	stderrors "errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"resumescore/internal/errors"
	"resumescore/internal/scoring"
)

// SQLiteStore keeps history in a single SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger *errors.Logger
}

// OpenSQLite opens (or creates) the database at path and migrates it.
// ":memory:" gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string, logger *errors.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = errors.Discard()
	}
	if path == "" {
		path = "data/resumescore.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, storageFailed("create database directory", err)
		}
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, storageFailed("open sqlite database", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer

	if err := migrate(ctx, db, goose.DialectSQLite3, "sqlite", logger); err != nil {
		_ = db.Close()
		return nil, storageFailed("migrate sqlite database", err)
	}

	logger.Info("History store opened", "driver", DriverSQLite, "path", path)
	return &SQLiteStore{db: db, logger: logger}, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return stderrors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func (s *SQLiteStore) CreateUser(ctx context.Context, u *User) error {
	prepareUser(u)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID.String(), u.Username, u.Email, u.PasswordHash, u.CreatedAt.UnixNano())
	if err != nil {
		if isUniqueViolation(err) {
			return conflict("username or email already registered", err)
		}
		return storageFailed("create user", err)
	}
	return nil
}

func (s *SQLiteStore) UserByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE username = ?`, username)
	return scanSQLiteUser(row)
}

func (s *SQLiteStore) UserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE id = ?`, id.String())
	return scanSQLiteUser(row)
}

func scanSQLiteUser(row *sql.Row) (*User, error) {
	var (
		u       User
		id      string
		created int64
	)
	if err := row.Scan(&id, &u.Username, &u.Email, &u.PasswordHash, &created); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, notFound("user")
		}
		return nil, storageFailed("load user", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, storageFailed("parse user id", err)
	}
	u.ID = parsed
	u.CreatedAt = time.Unix(0, created).UTC()
	return &u, nil
}

func (s *SQLiteStore) AddEntry(ctx context.Context, e *Entry) error {
	prepareEntry(e)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history (id, user_id, job_title, score, mode, report, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.UserID.String(), e.JobTitle, e.Score, string(e.Mode), string(e.Report), e.CreatedAt.UnixNano())
	if err != nil {
		return storageFailed("save history entry", err)
	}
	return nil
}

const sqliteEntryColumns = `id, user_id, job_title, score, mode, report, created_at`

func (s *SQLiteStore) ListEntries(ctx context.Context, userID uuid.UUID, limit int) ([]Entry, error) {
	query := `SELECT ` + sqliteEntryColumns + ` FROM history WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`
	args := []any{userID.String()}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageFailed("list history", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanSQLiteEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageFailed("list history", err)
	}
	return entries, nil
}

func (s *SQLiteStore) GetEntry(ctx context.Context, userID, id uuid.UUID) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteEntryColumns+` FROM history WHERE id = ? AND user_id = ?`, id.String(), userID.String())
	e, err := scanSQLiteEntry(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, notFound("history entry")
	}
	return e, err
}

func (s *SQLiteStore) DeleteEntry(ctx context.Context, userID, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE id = ? AND user_id = ?`, id.String(), userID.String())
	if err != nil {
		return storageFailed("delete history entry", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageFailed("delete history entry", err)
	}
	if n == 0 {
		return notFound("history entry")
	}
	return nil
}

func (s *SQLiteStore) Stats(ctx context.Context, userID uuid.UUID) (Stats, error) {
	var st Stats
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM history WHERE user_id = ?`, userID.String())
	if err := row.Scan(&st.TotalScans); err != nil {
		return st, storageFailed("count history", err)
	}
	if st.TotalScans == 0 {
		return st, nil
	}

	var latest float64
	row = s.db.QueryRowContext(ctx,
		`SELECT score FROM history WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, userID.String())
	if err := row.Scan(&latest); err != nil {
		return st, storageFailed("load latest score", err)
	}
	st.LatestScore = &latest
	return st, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanSQLiteEntry returns sql.ErrNoRows unwrapped so callers can map it.
func scanSQLiteEntry(row rowScanner) (*Entry, error) {
	var (
		e             Entry
		id, uid, mode string
		report        string
		created       int64
	)
	if err := row.Scan(&id, &uid, &e.JobTitle, &e.Score, &mode, &report, &created); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, storageFailed("load history entry", err)
	}

	var err error
	if e.ID, err = uuid.Parse(id); err != nil {
		return nil, storageFailed("parse entry id", err)
	}
	if e.UserID, err = uuid.Parse(uid); err != nil {
		return nil, storageFailed("parse entry owner", err)
	}
	e.Mode = scoring.Mode(mode)
	e.Report = []byte(report)
	e.CreatedAt = time.Unix(0, created).UTC()
	return &e, nil
}

var _ Store = (*SQLiteStore)(nil)
