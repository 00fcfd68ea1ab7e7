package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"catfilter/internal/dispatch"
	"catfilter/internal/logger"
	"catfilter/internal/metrics"

	"golang.org/x/sync/semaphore"
)

const schedulerComponent = "FilterScheduler"

var errNoImage = errors.New("transform returned no image")

// Transformer applies a named filter. It must return ctx.Err() when cancelled.
type Transformer interface {
	Apply(ctx context.Context, filter string, img image.Image) (image.Image, error)
}

type TransformStatus int

const (
	TransformSucceeded TransformStatus = iota
	TransformFailed
	TransformCancelled
)

func (s TransformStatus) String() string {
	switch s {
	case TransformSucceeded:
		return "success"
	case TransformFailed:
		return "failure"
	default:
		return "cancelled"
	}
}

type TransformRequest struct {
	Source image.Image
	Filter string
	// Index is -1 for preview requests.
	Index int
}

type TransformOutcome struct {
	Index  int
	Filter string
	Status TransformStatus
	Image  image.Image
	Err    error
}

// unit is a cancellable piece of work. stopped is set only by an explicit
// cancel, so finishing normally never suppresses delivery.
type unit struct {
	ctx     context.Context
	cancel  context.CancelFunc
	stopped atomic.Bool
}

func newUnit(parent context.Context) *unit {
	ctx, cancel := context.WithCancel(parent)
	return &unit{ctx: ctx, cancel: cancel}
}

func (u *unit) abort() {
	u.stopped.Store(true)
	u.cancel()
}

// FilterScheduler runs filters on two lanes: a single-slot preview lane where
// each request supersedes the last, and a batch lane with bounded
// parallelism and FIFO admission. Callbacks run on the dispatcher.
type FilterScheduler struct {
	transformer Transformer
	dispatcher  dispatch.Dispatcher
	logger      logger.Logger
	metrics     *metrics.Registry

	previewSem *semaphore.Weighted
	batchSem   *semaphore.Weighted

	mu      sync.Mutex
	preview *unit
	batches map[*unit]struct{}
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewFilterScheduler(t Transformer, disp dispatch.Dispatcher, batchWorkers int, log logger.Logger, reg *metrics.Registry) *FilterScheduler {
	if batchWorkers < 1 {
		batchWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &FilterScheduler{
		transformer: t,
		dispatcher:  disp,
		logger:      log,
		metrics:     reg,
		previewSem:  semaphore.NewWeighted(1),
		batchSem:    semaphore.NewWeighted(int64(batchWorkers)),
		batches:     make(map[*unit]struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// PreviewFilter supersedes any outstanding preview. done receives the
// filtered image, or nil if the filter failed. Superseded and cancelled
// previews never call done.
func (s *FilterScheduler) PreviewFilter(filter string, img image.Image, done func(image.Image)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.preview != nil {
		s.preview.abort()
	}
	u := newUnit(s.ctx)
	s.preview = u
	s.wg.Add(1)
	s.mu.Unlock()

	req := TransformRequest{Source: img, Filter: filter, Index: -1}
	go func() {
		defer s.wg.Done()
		defer u.cancel()

		if err := s.previewSem.Acquire(u.ctx, 1); err != nil {
			s.count("preview", TransformCancelled)
			return
		}
		outcome := s.run(u.ctx, req)
		s.previewSem.Release(1)

		s.count("preview", outcome.Status)
		if outcome.Status == TransformCancelled {
			return
		}
		s.dispatcher.Do(func() {
			s.mu.Lock()
			current := s.preview == u && !u.stopped.Load()
			if current {
				s.preview = nil
			}
			s.mu.Unlock()
			if !current {
				return
			}
			done(outcome.Image)
		})
	}()
}

func (s *FilterScheduler) CancelPreview() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preview != nil {
		s.preview.abort()
		s.preview = nil
	}
}

// ProcessBatch runs one unit per filter, admitted in index order. done
// receives exactly one outcome per index unless the batch is cancelled.
func (s *FilterScheduler) ProcessBatch(img image.Image, filters []string, done func(TransformOutcome)) {
	s.mu.Lock()
	if s.closed || len(filters) == 0 {
		s.mu.Unlock()
		return
	}
	b := newUnit(s.ctx)
	s.batches[b] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Debug(schedulerComponent, "batch queued", map[string]interface{}{
		"units": len(filters),
	})

	go s.feed(b, img, filters, done)
}

func (s *FilterScheduler) feed(b *unit, img image.Image, filters []string, done func(TransformOutcome)) {
	defer s.wg.Done()

	var running sync.WaitGroup
	for i, name := range filters {
		if err := s.batchSem.Acquire(b.ctx, 1); err != nil {
			for range filters[i:] {
				s.count("batch", TransformCancelled)
			}
			break
		}

		running.Add(1)
		req := TransformRequest{Source: img, Filter: name, Index: i}
		go func() {
			defer running.Done()
			outcome := s.run(b.ctx, req)
			s.batchSem.Release(1)

			s.count("batch", outcome.Status)
			if outcome.Status == TransformCancelled {
				return
			}
			s.dispatcher.Do(func() {
				if b.stopped.Load() {
					return
				}
				done(outcome)
			})
		}()
	}
	running.Wait()

	s.mu.Lock()
	delete(s.batches, b)
	s.mu.Unlock()
	b.cancel()
}

func (s *FilterScheduler) CancelBatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for b := range s.batches {
		b.abort()
		delete(s.batches, b)
	}
}

func (s *FilterScheduler) run(ctx context.Context, req TransformRequest) (outcome TransformOutcome) {
	outcome = TransformOutcome{Index: req.Index, Filter: req.Filter}

	defer func() {
		if r := recover(); r != nil {
			outcome.Status = TransformFailed
			outcome.Image = nil
			outcome.Err = fmt.Errorf("filter %s panicked: %v", req.Filter, r)
		}
		if outcome.Status == TransformFailed {
			s.logger.Error(schedulerComponent, outcome.Err, map[string]interface{}{
				"filter": req.Filter,
				"index":  req.Index,
			})
		}
	}()

	img, err := s.transformer.Apply(ctx, req.Filter, req.Source)
	switch {
	case ctx.Err() != nil || errors.Is(err, context.Canceled):
		outcome.Status = TransformCancelled
		outcome.Err = context.Canceled
	case err != nil:
		outcome.Status = TransformFailed
		outcome.Err = err
	case img == nil:
		outcome.Status = TransformFailed
		outcome.Err = errNoImage
	default:
		outcome.Status = TransformSucceeded
		outcome.Image = img
	}
	return outcome
}

func (s *FilterScheduler) count(lane string, status TransformStatus) {
	s.metrics.Inc(context.Background(), metrics.TransformsTotal, map[string]string{
		"lane":   lane,
		"status": status.String(),
	})
}

// Shutdown cancels both lanes, rejects new work and waits up to timeout.
func (s *FilterScheduler) Shutdown(timeout time.Duration) {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.CancelPreview()
	s.CancelBatch()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info(schedulerComponent, "shutdown completed", nil)
	case <-time.After(timeout):
		s.logger.Warning(schedulerComponent, "shutdown timed out", map[string]interface{}{
			"timeout": timeout.String(),
		})
	}
}
