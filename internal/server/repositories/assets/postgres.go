package assets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/prtfnx/ttrpg-system-sub001/internal/common"
	"github.com/prtfnx/ttrpg-system-sub001/internal/dbx"
	"github.com/prtfnx/ttrpg-system-sub001/internal/server/models"
)

// pgUniqueViolation is the SQLSTATE for unique constraint violations.
const pgUniqueViolation = "23505"

// PostgresRepository implements asset storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a confirmed asset row. A unique violation on asset_id or
// content_hash maps to common.ErrDuplicateContent so a concurrent
// confirmation of identical content is a benign outcome for the caller.
func (r *PostgresRepository) Create(ctx context.Context, rec *models.AssetRecord) error {
	query := `
		INSERT INTO assets (asset_id, remote_key, filename, content_type, size_bytes,
			content_hash, uploader_id, session_id, created_at, last_accessed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.AssetID, rec.RemoteKey, rec.Filename, rec.ContentType, rec.SizeBytes,
		rec.ContentHash, rec.UploaderID, rec.SessionID, rec.CreatedAt, rec.LastAccessedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return common.ErrDuplicateContent
		}
		return fmt.Errorf("failed to insert asset: %w", err)
	}
	return nil
}

const selectColumns = `asset_id, remote_key, filename, content_type, size_bytes,
	content_hash, uploader_id, session_id, created_at, last_accessed_at`

func scanRecord(row *sql.Row) (*models.AssetRecord, error) {
	rec := &models.AssetRecord{}
	err := row.Scan(&rec.AssetID, &rec.RemoteKey, &rec.Filename, &rec.ContentType,
		&rec.SizeBytes, &rec.ContentHash, &rec.UploaderID, &rec.SessionID,
		&rec.CreatedAt, &rec.LastAccessedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan asset: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, assetID string) (*models.AssetRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM assets WHERE asset_id=$1`
	return scanRecord(r.db.QueryRowContext(ctx, query, assetID))
}

func (r *PostgresRepository) GetByHash(ctx context.Context, contentHash string) (*models.AssetRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM assets WHERE content_hash=$1`
	return scanRecord(r.db.QueryRowContext(ctx, query, contentHash))
}

// TouchLastAccessed bumps last_accessed_at. Zero affected rows maps to
// common.ErrNotFound.
func (r *PostgresRepository) TouchLastAccessed(ctx context.Context, assetID string) error {
	query := `UPDATE assets SET last_accessed_at=now() WHERE asset_id=$1`
	result, err := r.db.ExecContext(ctx, query, assetID)
	if err != nil {
		return fmt.Errorf("failed to touch asset: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, assetID string) error {
	query := `DELETE FROM assets WHERE asset_id=$1`
	result, err := r.db.ExecContext(ctx, query, assetID)
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ListOlderThan(ctx context.Context, sessionID string, cutoff time.Time) ([]*models.AssetRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM assets WHERE created_at < $1`
	args := []any{cutoff}
	if sessionID != "" {
		query += ` AND session_id = $2`
		args = append(args, sessionID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select assets: %w", err)
	}
	defer rows.Close()

	var result []*models.AssetRecord
	for rows.Next() {
		rec := &models.AssetRecord{}
		if err := rows.Scan(&rec.AssetID, &rec.RemoteKey, &rec.Filename, &rec.ContentType,
			&rec.SizeBytes, &rec.ContentHash, &rec.UploaderID, &rec.SessionID,
			&rec.CreatedAt, &rec.LastAccessedAt); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	query := `SELECT count(*) FROM assets WHERE session_id=$1`
	var n int64
	if err := r.db.QueryRowContext(ctx, query, sessionID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count assets: %w", err)
	}
	return n, nil
}
