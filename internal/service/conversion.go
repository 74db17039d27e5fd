package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"deckstamp/internal/model"
	"deckstamp/internal/pipeline"
	"deckstamp/internal/repository"
)

const ledgerWriteTimeout = 5 * time.Second

var (
	ErrIDRequired     = errors.New("id is required")
	ErrNotFound       = errors.New("conversion not found")
	ErrLedgerDisabled = errors.New("conversions ledger is not configured")
)

// Processor runs one upload through the conversion pipeline.
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// ConvertInput is an upload as received from a caller.
type ConvertInput struct {
	Filename string
	Label    string
	Data     []byte
}

// ConvertResult is a successful conversion plus its ledger id.
type ConvertResult struct {
	ID string
	pipeline.Result
}

// ConversionListResult is the service-level DTO for paginated ledger entries.
type ConversionListResult struct {
	Items []model.Conversion `json:"data"`
	Total int                `json:"total"`
}

// ConversionService defines the conversion use cases.
type ConversionService interface {
	// Convert labels and renders an upload. Failures are *pipeline.Error.
	// When a ledger is configured the attempt is recorded whatever its outcome.
	Convert(ctx context.Context, in ConvertInput) (*ConvertResult, error)

	// List returns ledger entries using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*ConversionListResult, error)

	// Get returns a single ledger entry by its ID.
	Get(ctx context.Context, id string) (*model.Conversion, error)

	// RecordArchive stores the archive object id of a conversion's original.
	RecordArchive(ctx context.Context, id, objectID string)
}

type conversionService struct {
	proc   Processor
	repo   repository.ConversionRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewConversionService constructs a ConversionService. repo may be nil, which
// disables the ledger.
func NewConversionService(proc Processor, repo repository.ConversionRepository, logger *zap.Logger) ConversionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &conversionService{proc: proc, repo: repo, logger: logger, now: time.Now}
}

func (s *conversionService) Convert(ctx context.Context, in ConvertInput) (*ConvertResult, error) {
	id := uuid.NewString()
	start := s.now()

	recorded := false
	if s.repo != nil {
		_, err := s.repo.Create(ctx, &model.Conversion{
			ID:               id,
			OriginalFilename: pipeline.SanitizeFilename(in.Filename),
			Size:             int64(len(in.Data)),
			Status:           model.ConversionProcessing,
			CreatedAt:        start.UTC(),
		})
		if err != nil {
			s.logger.Warn("ledger_create_failed", zap.String("conversion_id", id), zap.Error(err))
		} else {
			recorded = true
		}
	}

	res, err := s.proc.Process(ctx, pipeline.Request{
		ID:       id,
		Filename: in.Filename,
		Label:    in.Label,
		Data:     in.Data,
	})

	if recorded {
		entry := &model.Conversion{
			ID:         id,
			Status:     model.ConversionSucceeded,
			DurationMS: s.now().Sub(start).Milliseconds(),
		}
		if err != nil {
			entry.Status = model.ConversionFailed
			entry.ErrorCode = string(pipeline.KindOf(err))
		} else {
			entry.Slides = res.Slides
		}
		s.finish(ctx, entry)
	}

	if err != nil {
		return nil, err
	}
	return &ConvertResult{ID: id, Result: *res}, nil
}

// finish outlives a cancelled request so the ledger does not keep stale
// "processing" rows.
func (s *conversionService) finish(ctx context.Context, entry *model.Conversion) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerWriteTimeout)
	defer cancel()
	if err := s.repo.Finish(ctx, entry); err != nil {
		s.logger.Warn("ledger_finish_failed", zap.String("conversion_id", entry.ID), zap.Error(err))
	}
}

// List returns paginated entries without exposing repository types.
func (s *conversionService) List(ctx context.Context, limit, offset int) (*ConversionListResult, error) {
	if s.repo == nil {
		return nil, ErrLedgerDisabled
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &ConversionListResult{Items: res.Items, Total: res.Total}, nil
}

// Get returns an entry by ID.
func (s *conversionService) Get(ctx context.Context, id string) (*model.Conversion, error) {
	if s.repo == nil {
		return nil, ErrLedgerDisabled
	}
	if id == "" {
		return nil, ErrIDRequired
	}
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *conversionService) RecordArchive(ctx context.Context, id, objectID string) {
	if s.repo == nil || id == "" {
		return
	}
	if err := s.repo.SetArchiveObject(ctx, id, objectID); err != nil {
		s.logger.Warn("ledger_archive_update_failed", zap.String("conversion_id", id), zap.Error(err))
	}
}
