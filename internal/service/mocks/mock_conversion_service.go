package mocks

import (
	"context"

	"deckstamp/internal/model"
	"deckstamp/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockConversionService struct {
	mock.Mock
}

func (m *MockConversionService) Convert(ctx context.Context, in service.ConvertInput) (*service.ConvertResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ConvertResult), args.Error(1)
}

func (m *MockConversionService) List(ctx context.Context, limit, offset int) (*service.ConversionListResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ConversionListResult), args.Error(1)
}

func (m *MockConversionService) Get(ctx context.Context, id string) (*model.Conversion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversion), args.Error(1)
}

func (m *MockConversionService) RecordArchive(ctx context.Context, id, objectID string) {
	m.Called(ctx, id, objectID)
}
