package assets

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prtfnx/ttrpg-system-sub001/internal/common"
	"github.com/prtfnx/ttrpg-system-sub001/internal/server/models"
)

var assetColumns = []string{"asset_id", "remote_key", "filename", "content_type", "size_bytes",
	"content_hash", "uploader_id", "session_id", "created_at", "last_accessed_at"}

func newMockRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func sampleRecord() *models.AssetRecord {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.AssetRecord{
		AssetID:        "a1b2c3d4e5f60718",
		RemoteKey:      "sessions/game1/assets/a1b2c3d4e5f60718-x.png",
		Filename:       "map.png",
		ContentType:    "image/png",
		SizeBytes:      1024,
		ContentHash:    "a1b2c3d4e5f60718a1b2c3d4e5f60718a1b2c3d4e5f60718a1b2c3d4e5f60718",
		UploaderID:     "alice",
		SessionID:      "game1",
		CreatedAt:      now,
		LastAccessedAt: now,
	}
}

func rowsFor(rec *models.AssetRecord) *sqlmock.Rows {
	return sqlmock.NewRows(assetColumns).AddRow(
		rec.AssetID, rec.RemoteKey, rec.Filename, rec.ContentType, rec.SizeBytes,
		rec.ContentHash, rec.UploaderID, rec.SessionID, rec.CreatedAt, rec.LastAccessedAt)
}

func TestCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	rec := sampleRecord()

	mock.ExpectExec("INSERT INTO assets").
		WithArgs(rec.AssetID, rec.RemoteKey, rec.Filename, rec.ContentType, rec.SizeBytes,
			rec.ContentHash, rec.UploaderID, rec.SessionID, rec.CreatedAt, rec.LastAccessedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_UniqueViolation(t *testing.T) {
	repo, mock := newMockRepo(t)
	rec := sampleRecord()

	mock.ExpectExec("INSERT INTO assets").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "assets_content_hash_key"})

	err := repo.Create(context.Background(), rec)
	assert.ErrorIs(t, err, common.ErrDuplicateContent)
}

func TestCreate_OtherError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO assets").WillReturnError(errors.New("connection lost"))

	err := repo.Create(context.Background(), sampleRecord())
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrDuplicateContent)
}

func TestGetByID(t *testing.T) {
	repo, mock := newMockRepo(t)
	rec := sampleRecord()

	mock.ExpectQuery("SELECT (.+) FROM assets WHERE asset_id").
		WithArgs(rec.AssetID).
		WillReturnRows(rowsFor(rec))

	got, err := repo.GetByID(context.Background(), rec.AssetID)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM assets WHERE asset_id").
		WithArgs("ffffffffffffffff").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "ffffffffffffffff")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetByHash(t *testing.T) {
	repo, mock := newMockRepo(t)
	rec := sampleRecord()

	mock.ExpectQuery("SELECT (.+) FROM assets WHERE content_hash").
		WithArgs(rec.ContentHash).
		WillReturnRows(rowsFor(rec))

	got, err := repo.GetByHash(context.Background(), rec.ContentHash)
	require.NoError(t, err)
	assert.Equal(t, rec.AssetID, got.AssetID)
}

func TestTouchLastAccessed(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE assets SET last_accessed_at").
		WithArgs("a1b2c3d4e5f60718").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.TouchLastAccessed(context.Background(), "a1b2c3d4e5f60718"))
}

func TestTouchLastAccessed_NoRows(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE assets SET last_accessed_at").
		WithArgs("ffffffffffffffff").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.TouchLastAccessed(context.Background(), "ffffffffffffffff")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDelete(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("DELETE FROM assets").
		WithArgs("a1b2c3d4e5f60718").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "a1b2c3d4e5f60718"))
}

func TestDelete_NoRows(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("DELETE FROM assets").
		WithArgs("ffffffffffffffff").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "ffffffffffffffff")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListOlderThan(t *testing.T) {
	repo, mock := newMockRepo(t)
	rec := sampleRecord()
	cutoff := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	t.Run("all sessions", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM assets WHERE created_at <").
			WithArgs(cutoff).
			WillReturnRows(rowsFor(rec))

		got, err := repo.ListOlderThan(context.Background(), "", cutoff)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, rec.AssetID, got[0].AssetID)
	})

	t.Run("scoped to session", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM assets WHERE created_at < (.+) AND session_id").
			WithArgs(cutoff, "game1").
			WillReturnRows(rowsFor(rec))

		got, err := repo.ListOlderThan(context.Background(), "game1", cutoff)
		require.NoError(t, err)
		require.Len(t, got, 1)
	})

	t.Run("empty result", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM assets WHERE created_at <").
			WithArgs(cutoff).
			WillReturnRows(sqlmock.NewRows(assetColumns))

		got, err := repo.ListOlderThan(context.Background(), "", cutoff)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestCountBySession(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT count(.+) FROM assets WHERE session_id").
		WithArgs("game1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(7)))

	n, err := repo.CountBySession(context.Background(), "game1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}
