package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/stitchworks/internal/domain"
)

// CatalogRepository implements domain.CatalogIndex using SQLite.
type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *DB) *CatalogRepository {
	return &CatalogRepository{db: db.SqlDB}
}

const catalogColumns = `id, name, folder, file_name, format, is_built_in, is_master_set, version, stitch_count, updated_at`

// Upsert inserts the record, or replaces the one with the same name. Only one
// catalog can be the master set; marking a record as master clears the flag
// on every other.
func (r *CatalogRepository) Upsert(ctx context.Context, rec *domain.CatalogRecord) error {
	if rec.Name == "" || rec.Folder == "" || rec.FileName == "" {
		return fmt.Errorf("%w: catalog name, folder and file name are required", domain.ErrInvalidInput)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if rec.IsMasterSet {
		if _, err := tx.ExecContext(ctx, `UPDATE catalogs SET is_master_set = FALSE WHERE name <> ?`, rec.Name); err != nil {
			return fmt.Errorf("clear master set: %w", err)
		}
	}

	now := time.Now().UTC()
	err = tx.QueryRowContext(ctx,
		`INSERT INTO catalogs (name, folder, file_name, format, is_built_in, is_master_set, version, stitch_count, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   folder = excluded.folder,
		   file_name = excluded.file_name,
		   format = excluded.format,
		   is_built_in = excluded.is_built_in,
		   is_master_set = excluded.is_master_set,
		   version = excluded.version,
		   stitch_count = excluded.stitch_count,
		   updated_at = excluded.updated_at
		 RETURNING id`,
		rec.Name, rec.Folder, rec.FileName, string(rec.Format), rec.IsBuiltIn, rec.IsMasterSet,
		rec.Version, rec.StitchCount, now,
	).Scan(&rec.ID)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: %q", domain.ErrDuplicateCatalog, rec.Name)
		}
		return fmt.Errorf("upsert catalog: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog: %w", err)
	}
	rec.UpdatedAt = now
	return nil
}

func (r *CatalogRepository) GetByName(ctx context.Context, name string) (*domain.CatalogRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+catalogColumns+` FROM catalogs WHERE name = ?`, name)
	rec, err := scanCatalog(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get catalog by name: %w", err)
	}
	return rec, nil
}

// List returns every indexed catalog: the built-in one first, then by name.
func (r *CatalogRepository) List(ctx context.Context) ([]domain.CatalogRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+catalogColumns+` FROM catalogs ORDER BY is_built_in DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("list catalogs: %w", err)
	}
	defer rows.Close()

	var records []domain.CatalogRecord
	for rows.Next() {
		rec, err := scanCatalog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan catalog: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (r *CatalogRepository) Delete(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM catalogs WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("delete catalog: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCatalog(s scanner) (*domain.CatalogRecord, error) {
	var (
		rec    domain.CatalogRecord
		format string
	)
	err := s.Scan(&rec.ID, &rec.Name, &rec.Folder, &rec.FileName, &format,
		&rec.IsBuiltIn, &rec.IsMasterSet, &rec.Version, &rec.StitchCount, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.Format = domain.CatalogFormat(format)
	return &rec, nil
}
