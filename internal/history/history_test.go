package history

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumescore/internal/config"
	"resumescore/internal/errors"
	"resumescore/internal/scoring"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	store, err := Open(context.Background(), config.StorageConfig{
		Driver:     DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "history.db"),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createUser(t *testing.T, store Store, name string) *User {
	t.Helper()
	u := &User{Username: name, Email: name + "@example.com", PasswordHash: "hash"}
	require.NoError(t, store.CreateUser(context.Background(), u))
	return u
}

func auditResult(score float64) scoring.Result {
	return &scoring.AuditResult{
		Summary: scoring.Summary{
			Score:           score,
			Recommendation:  scoring.NeedsPolish,
			SectionsFound:   []string{},
			MissingSections: []string{"Experience"},
			Suggestions:     []string{},
		},
	}
}

func TestJobTitle(t *testing.T) {
	assert.Equal(t, GeneralAssessment, JobTitle(""))
	assert.Equal(t, GeneralAssessment, JobTitle("  \n"))
	assert.Equal(t, "Backend Engineer", JobTitle("Backend Engineer"))

	long := strings.Repeat("é", 60)
	assert.Equal(t, strings.Repeat("é", 50), JobTitle(long))
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	u := createUser(t, store, "ada")
	assert.NotEqual(t, uuid.Nil, u.ID)

	got, err := store.UserByUsername(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.WithinDuration(t, u.CreatedAt, got.CreatedAt, time.Millisecond)

	byID, err := store.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada", byID.Username)

	_, err = store.UserByUsername(ctx, "nobody")
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotFound))

	dup := &User{Username: "ada", Email: "other@example.com", PasswordHash: "x"}
	err = store.CreateUser(ctx, dup)
	assert.True(t, errors.HasCode(err, errors.ErrCodeConflict))

	dupEmail := &User{Username: "ada2", Email: "ADA@example.com", PasswordHash: "x"}
	err = store.CreateUser(ctx, dupEmail)
	assert.True(t, errors.HasCode(err, errors.ErrCodeConflict))
}

func TestEntries_NewestFirstAndOwnerScoped(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	owner := createUser(t, store, "owner")
	other := createUser(t, store, "other")

	base := time.Now().UTC()
	var ids []uuid.UUID
	for i, score := range []float64{40, 55, 70} {
		e, err := NewEntry(owner.ID, "", auditResult(score))
		require.NoError(t, err)
		e.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, store.AddEntry(ctx, e))
		ids = append(ids, e.ID)
	}

	entries, err := store.ListEntries(ctx, owner.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, ids[2], entries[0].ID)
	assert.Equal(t, 70.0, entries[0].Score)
	assert.Equal(t, GeneralAssessment, entries[0].JobTitle)
	assert.Equal(t, scoring.ModeAudit, entries[0].Mode)

	limited, err := store.ListEntries(ctx, owner.ID, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := store.ListEntries(ctx, other.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	got, err := store.GetEntry(ctx, owner.ID, ids[0])
	require.NoError(t, err)
	result, err := got.Result()
	require.NoError(t, err)
	assert.Equal(t, 40.0, result.Base().Score)

	_, err = store.GetEntry(ctx, other.ID, ids[0])
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotFound))

	err = store.DeleteEntry(ctx, other.ID, ids[0])
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotFound))
	require.NoError(t, store.DeleteEntry(ctx, owner.ID, ids[0]))
	_, err = store.GetEntry(ctx, owner.ID, ids[0])
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotFound))
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	u := createUser(t, store, "stats")

	st, err := store.Stats(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, st.TotalScans)
	assert.Nil(t, st.LatestScore)

	base := time.Now().UTC()
	for i, score := range []float64{30, 88.5} {
		e, err := NewEntry(u.ID, "Data Engineer role", auditResult(score))
		require.NoError(t, err)
		e.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, store.AddEntry(ctx, e))
	}

	st, err = store.Stats(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalScans)
	require.NotNil(t, st.LatestScore)
	assert.Equal(t, 88.5, *st.LatestScore)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{Driver: "mongo"}, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestOpenSQLite_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "h.db")

	first, err := OpenSQLite(ctx, path, nil)
	require.NoError(t, err)
	u := &User{Username: "persist", Email: "p@example.com", PasswordHash: "h"}
	require.NoError(t, first.CreateUser(ctx, u))
	require.NoError(t, first.Close())

	// migrations are idempotent across restarts
	second, err := OpenSQLite(ctx, path, nil)
	require.NoError(t, err)
	defer func() { _ = second.Close() }()
	require.NoError(t, second.Ping(ctx))

	got, err := second.UserByUsername(ctx, "persist")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}
