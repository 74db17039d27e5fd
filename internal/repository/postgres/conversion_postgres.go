package postgres

import (
	"context"
	"database/sql"

	"deckstamp/internal/model"
	"deckstamp/internal/repository"
)

const conversionColumns = `id, original_filename, size, slides, status, error_code, archive_object, duration_ms, created_at`

// ConversionPostgres is a PostgreSQL implementation of repository.ConversionRepository.
type ConversionPostgres struct {
	db *sql.DB
}

// NewConversionPostgres creates a new ConversionPostgres repository.
func NewConversionPostgres(db *sql.DB) *ConversionPostgres {
	return &ConversionPostgres{db: db}
}

var _ repository.ConversionRepository = (*ConversionPostgres)(nil)

type scanner interface {
	Scan(dest ...any) error
}

func scanConversion(s scanner) (*model.Conversion, error) {
	var (
		c       model.Conversion
		status  string
		errCode sql.NullString
		archive sql.NullString
	)
	if err := s.Scan(
		&c.ID,
		&c.OriginalFilename,
		&c.Size,
		&c.Slides,
		&status,
		&errCode,
		&archive,
		&c.DurationMS,
		&c.CreatedAt,
	); err != nil {
		return nil, err
	}
	c.Status = model.ConversionStatus(status)
	c.ErrorCode = errCode.String
	c.ArchiveObject = archive.String
	return &c, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Create inserts a ledger row and returns the stored record.
func (r *ConversionPostgres) Create(ctx context.Context, c *model.Conversion) (*model.Conversion, error) {
	const q = `
		INSERT INTO conversions (` + conversionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + conversionColumns
	row := r.db.QueryRowContext(ctx, q,
		c.ID,
		c.OriginalFilename,
		c.Size,
		c.Slides,
		string(c.Status),
		nullable(c.ErrorCode),
		nullable(c.ArchiveObject),
		c.DurationMS,
		c.CreatedAt,
	)
	return scanConversion(row)
}

// Finish records the outcome of a conversion.
func (r *ConversionPostgres) Finish(ctx context.Context, c *model.Conversion) error {
	const q = `
		UPDATE conversions
		SET status = $2, slides = $3, error_code = $4, duration_ms = $5
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, q, c.ID, string(c.Status), c.Slides, nullable(c.ErrorCode), c.DurationMS)
	return err
}

// SetArchiveObject updates the archive location of an existing row.
func (r *ConversionPostgres) SetArchiveObject(ctx context.Context, id, objectID string) error {
	const q = `UPDATE conversions SET archive_object = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id, objectID)
	return err
}

// FindByID fetches a single entry by its ID.
func (r *ConversionPostgres) FindByID(ctx context.Context, id string) (*model.Conversion, error) {
	const q = `SELECT ` + conversionColumns + ` FROM conversions WHERE id = $1`
	return scanConversion(r.db.QueryRowContext(ctx, q, id))
}

// List returns entries using LIMIT/OFFSET pagination and a total count.
func (r *ConversionPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Conversion], error) {
	const qCount = `SELECT COUNT(*) FROM conversions`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT ` + conversionColumns + `
		FROM conversions
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Conversion, 0)
	for rows.Next() {
		c, err := scanConversion(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Conversion]{Items: items, Total: total}, nil
}
