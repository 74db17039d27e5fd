package mocks

import (
	"context"

	"deckstamp/internal/model"
	"deckstamp/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockConversionRepository struct {
	mock.Mock
}

func (m *MockConversionRepository) Create(ctx context.Context, c *model.Conversion) (*model.Conversion, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversion), args.Error(1)
}

func (m *MockConversionRepository) Finish(ctx context.Context, c *model.Conversion) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockConversionRepository) SetArchiveObject(ctx context.Context, id, objectID string) error {
	args := m.Called(ctx, id, objectID)
	return args.Error(0)
}

func (m *MockConversionRepository) FindByID(ctx context.Context, id string) (*model.Conversion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversion), args.Error(1)
}

func (m *MockConversionRepository) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Conversion], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Conversion]), args.Error(1)
}
