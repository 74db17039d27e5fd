// Package repository contains data access abstractions. Implementations live
// in subpackages (e.g. postgres).
package repository

import (
	"context"

	"deckstamp/internal/model"
)

// ConversionRepository persists the conversions ledger using SQL only.
// No business logic here.
type ConversionRepository interface {
	// Create inserts a ledger entry and returns the stored row.
	Create(ctx context.Context, c *model.Conversion) (*model.Conversion, error)

	// Finish stores the outcome fields (status, slides, error code, duration) of an entry.
	Finish(ctx context.Context, c *model.Conversion) error

	// SetArchiveObject records where the original upload was archived.
	SetArchiveObject(ctx context.Context, id, objectID string) error

	// FindByID returns an entry by its ID, or sql.ErrNoRows.
	FindByID(ctx context.Context, id string) (*model.Conversion, error)

	// List returns a page of entries, newest first, and the total row count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Conversion], error)
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}
