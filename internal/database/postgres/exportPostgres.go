package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ds124wfegd/memecaption/internal/entity"
)

type ExportRepository struct {
	db *sql.DB
}

func NewExportRepository(db *sql.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

func (r *ExportRepository) Record(ctx context.Context, record *entity.ExportRecord) error {
	query := `
		INSERT INTO exports (id, image_id, format, width, height, bytes, filename, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		record.ID, record.ImageID, string(record.Format),
		record.Width, record.Height, record.Bytes, record.Filename, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert export record: %w", err)
	}
	return nil
}

func (r *ExportRepository) ListByImage(ctx context.Context, imageID string, limit int) ([]entity.ExportRecord, error) {
	query := `
		SELECT id, image_id, format, width, height, bytes, filename, created_at
		FROM exports
		WHERE image_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, query, imageID, limit)
	if err != nil {
		return nil, fmt.Errorf("query export history: %w", err)
	}
	defer rows.Close()

	var records []entity.ExportRecord
	for rows.Next() {
		var rec entity.ExportRecord
		var format string
		if err := rows.Scan(&rec.ID, &rec.ImageID, &format, &rec.Width, &rec.Height,
			&rec.Bytes, &rec.Filename, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan export record: %w", err)
		}
		rec.Format = entity.Format(format)
		records = append(records, rec)
	}
	return records, rows.Err()
}
