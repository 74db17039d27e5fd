// Package pipeline runs one upload through validation, labelling and PDF
// rendering, and decides what each failure looks like to the caller.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"deckstamp/internal/archival"
	"deckstamp/internal/deck"
	"deckstamp/internal/render"
)

// DefaultMaxUploadBytes is the upload ceiling when none is configured.
const DefaultMaxUploadBytes = 50 << 20

var tracer = otel.Tracer("deckstamp/internal/pipeline")

// Renderer turns an archive on disk into a PDF in outputDir.
type Renderer interface {
	Render(ctx context.Context, archivePath, outputDir string) (string, error)
}

// Prober reports whether the rendering engine can be started.
type Prober interface {
	Available(ctx context.Context) bool
}

// SideEffects receives the original upload once it passed validation.
type SideEffects interface {
	Dispatch(ctx context.Context, job archival.Job)
}

// Config holds the limits applied to each request.
type Config struct {
	MaxUploadBytes int64
	// TempDir is the parent for per-request work directories; empty means os.TempDir.
	TempDir string
}

// Request is one upload.
type Request struct {
	// ID correlates side effects with the caller's record; optional.
	ID       string
	Filename string
	Label    string
	Data     []byte
}

// Result is a successful conversion.
type Result struct {
	PDF []byte
	// Filename is the sanitized upload name.
	Filename     string
	DownloadName string
	Slides       int
	Replaced     int
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithSideEffects hands every validated upload to se before rendering.
func WithSideEffects(se SideEffects) Option {
	return func(o *Orchestrator) { o.effects = se }
}

// WithLogger sets the logger for per-request outcomes.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records outcomes, render time and slide counts on m.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// Orchestrator sequences the pipeline. It keeps no per-request state and is
// safe for concurrent use.
type Orchestrator struct {
	cfg       Config
	annotator *deck.Annotator
	renderer  Renderer
	prober    Prober
	effects   SideEffects
	logger    *zap.Logger
	metrics   *Metrics
}

// New builds an Orchestrator.
func New(cfg Config, annotator *deck.Annotator, renderer Renderer, prober Prober, opts ...Option) (*Orchestrator, error) {
	if annotator == nil || renderer == nil || prober == nil {
		return nil, errors.New("annotator, renderer and prober are required")
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	o := &Orchestrator{
		cfg:       cfg,
		annotator: annotator,
		renderer:  renderer,
		prober:    prober,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// MaxUploadBytes is the effective upload ceiling.
func (o *Orchestrator) MaxUploadBytes() int64 {
	return o.cfg.MaxUploadBytes
}

// Process runs req through the pipeline. Every failure is a *Error.
func (o *Orchestrator) Process(ctx context.Context, req Request) (res *Result, err error) {
	ctx, span := tracer.Start(ctx, "pipeline.Process", trace.WithAttributes(
		attribute.String("upload.filename", req.Filename),
		attribute.Int("upload.size", len(req.Data)),
	))
	start := time.Now()
	log := o.logger.With(zap.String("ref", req.ID), zap.String("filename", req.Filename))

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline_panic", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			res, err = nil, newError(KindInternal, msgInternal, fmt.Errorf("panic: %v", r))
		}
		o.metrics.observeOutcome(err)
		if err != nil {
			o.logFailure(log, err, time.Since(start))
			span.RecordError(err)
			span.SetStatus(codes.Error, string(KindOf(err)))
		} else {
			span.SetAttributes(attribute.Int("deck.slides", res.Slides))
			log.Info("conversion_completed",
				zap.Int("slides", res.Slides),
				zap.Int("replaced", res.Replaced),
				zap.Int("pdf_bytes", len(res.PDF)),
				zap.Duration("duration", time.Since(start)),
			)
		}
		span.End()
	}()

	return o.process(ctx, req)
}

func (o *Orchestrator) process(ctx context.Context, req Request) (*Result, error) {
	label := strings.TrimSpace(req.Label)
	if label == "" {
		return nil, newError(KindEmptyLabel, msgEmptyLabel, nil)
	}
	if !strings.HasSuffix(strings.ToLower(req.Filename), ".pptx") {
		return nil, newError(KindUnsupportedInput, msgUnsupported, nil)
	}
	if int64(len(req.Data)) > o.cfg.MaxUploadBytes {
		return nil, newError(KindPayloadTooLarge, TooLargeMessage(o.cfg.MaxUploadBytes), nil)
	}
	if err := deck.Validate(req.Data); err != nil {
		return nil, newError(KindValidation, msgInvalid, err)
	}

	name := SanitizeFilename(req.Filename)
	if o.effects != nil {
		o.effects.Dispatch(ctx, archival.Job{Ref: req.ID, Filename: name, Data: req.Data})
	}

	if !o.prober.Available(ctx) {
		return nil, newError(KindRendererUnavailable, msgUnavailable, render.ErrToolMissing)
	}

	annotated, err := o.annotator.Annotate(req.Data, label)
	switch {
	case errors.Is(err, deck.ErrEmptyLabel):
		return nil, newError(KindEmptyLabel, msgEmptyLabel, err)
	case errors.Is(err, deck.ErrInvalidContainer):
		return nil, newError(KindValidation, msgInvalid, err)
	case err != nil:
		return nil, newError(KindInternal, msgInternal, fmt.Errorf("annotate: %w", err))
	}
	o.metrics.observeSlides(annotated.Slides)

	pdf, err := o.renderPDF(ctx, annotated.Data, Stem(name))
	if err != nil {
		return nil, err
	}
	return &Result{
		PDF:          pdf,
		Filename:     name,
		DownloadName: DownloadName(name),
		Slides:       annotated.Slides,
		Replaced:     annotated.Replaced,
	}, nil
}

// renderPDF writes the annotated deck into a private work directory, renders
// it and reads the PDF back. The directory is removed on every path.
func (o *Orchestrator) renderPDF(ctx context.Context, data []byte, stem string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "pipeline.Render", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	dir, err := os.MkdirTemp(o.cfg.TempDir, "deckstamp-*")
	if err != nil {
		return nil, newError(KindInternal, msgInternal, fmt.Errorf("create work dir: %w", err))
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			o.logger.Warn("work_dir_cleanup_failed", zap.String("dir", dir), zap.Error(rmErr))
		}
	}()
	if abs, absErr := filepath.Abs(dir); absErr == nil {
		dir = abs
	}

	in := filepath.Join(dir, stem+".pptx")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, newError(KindInternal, msgInternal, fmt.Errorf("write deck: %w", err))
	}

	start := time.Now()
	out, err := o.renderer.Render(ctx, in, dir)
	o.metrics.observeRender(time.Since(start))
	switch {
	case errors.Is(err, render.ErrToolMissing):
		return nil, newError(KindRendererUnavailable, msgUnavailable, err)
	case errors.Is(err, render.ErrFailed), errors.Is(err, render.ErrNoOutput):
		return nil, newError(KindRendering, msgRendering, err)
	case err != nil:
		return nil, newError(KindInternal, msgInternal, fmt.Errorf("render: %w", err))
	}

	pdf, err := os.ReadFile(out)
	if err != nil {
		return nil, newError(KindInternal, msgInternal, fmt.Errorf("read pdf: %w", err))
	}
	return pdf, nil
}

func (o *Orchestrator) logFailure(log *zap.Logger, err error, d time.Duration) {
	var pe *Error
	if !errors.As(err, &pe) {
		log.Error("conversion_failed", zap.Error(err))
		return
	}
	fields := []zap.Field{zap.String("kind", string(pe.Kind)), zap.Duration("duration", d)}
	if pe.Err != nil {
		fields = append(fields, zap.NamedError("detail", pe.Err))
	}
	if pe.IsInputError() {
		log.Info("conversion_rejected", fields...)
		return
	}
	log.Error("conversion_failed", fields...)
}

// TooLargeMessage is the caller message for uploads above limit bytes.
func TooLargeMessage(limit int64) string {
	return fmt.Sprintf("File too large (max %d MB).", limit>>20)
}
