package archival

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"deckstamp/internal/notify"
)

const defaultTimeout = 60 * time.Second

// Job is one upload whose original should be archived.
type Job struct {
	// Ref correlates the job with the caller's record, e.g. a conversion id.
	Ref      string
	Filename string
	Data     []byte
}

// ArchivedFunc is called after an original was stored.
type ArchivedFunc func(ctx context.Context, ref, objectID string)

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithTimeout bounds one archive-and-notify run; d <= 0 keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(ds *Dispatcher) {
		if d > 0 {
			ds.timeout = d
		}
	}
}

// WithLogger sets the logger for side-effect outcomes.
func WithLogger(l *zap.Logger) Option {
	return func(ds *Dispatcher) {
		if l != nil {
			ds.logger = l
		}
	}
}

// WithArchivedHook registers fn to run once an original has been stored.
func WithArchivedHook(fn ArchivedFunc) Option {
	return func(ds *Dispatcher) { ds.onArchived = fn }
}

// Dispatcher runs archive-then-notify in the background. Failures and panics
// are logged and never reach the caller.
type Dispatcher struct {
	archive    Archive
	notifier   notify.Notifier
	timeout    time.Duration
	logger     *zap.Logger
	onArchived ArchivedFunc
	wg         sync.WaitGroup
}

// NewDispatcher builds a Dispatcher. A nil archive disables side effects
// entirely; a nil notifier disables only the email.
func NewDispatcher(archive Archive, notifier notify.Notifier, opts ...Option) *Dispatcher {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	d := &Dispatcher{
		archive:  archive,
		notifier: notifier,
		timeout:  defaultTimeout,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Enabled reports whether Dispatch does anything.
func (d *Dispatcher) Enabled() bool {
	return d != nil && d.archive != nil
}

// Dispatch starts the side effects for job and returns immediately. The
// request context's values are kept but its cancellation is not.
func (d *Dispatcher) Dispatch(ctx context.Context, job Job) {
	if !d.Enabled() {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("side_effects_panic",
					zap.String("ref", job.Ref),
					zap.String("panic", fmt.Sprint(r)),
				)
			}
		}()
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		d.run(runCtx, job)
	}()
}

func (d *Dispatcher) run(ctx context.Context, job Job) {
	log := d.logger.With(zap.String("ref", job.Ref), zap.String("filename", job.Filename))

	objectID, err := d.archive.Store(ctx, job.Data, job.Filename)
	if err != nil {
		log.Warn("archive_failed", zap.Error(err))
		return
	}
	log.Info("archived", zap.String("object_id", objectID), zap.Int("bytes", len(job.Data)))
	if d.onArchived != nil {
		d.onArchived(ctx, job.Ref, objectID)
	}

	notice := notify.Notice{Filename: job.Filename, ObjectID: objectID}
	if l, ok := d.archive.(Linker); ok {
		link, err := l.Link(ctx, objectID)
		if err != nil {
			log.Warn("presign_failed", zap.Error(err))
		} else {
			notice.Link = link
		}
	}
	if err := d.notifier.Notify(ctx, notice); err != nil {
		if errors.Is(err, notify.ErrThrottled) {
			log.Info("notification_throttled")
			return
		}
		log.Warn("notify_failed", zap.Error(err))
	}
}

// Wait blocks until every dispatched job finished or ctx ends.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
