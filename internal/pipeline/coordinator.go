package pipeline

import (
	"context"
	"sync"
	"time"

	"catfilter/internal/dispatch"
	"catfilter/internal/logger"
	"catfilter/internal/metrics"
	"catfilter/internal/store"
)

const coordinatorComponent = "LoadCoordinator"

type ReferenceProvider interface {
	FetchReference(ctx context.Context) (*store.Resource, error)
	Cancel()
}

type ContentFetcher interface {
	FetchContent(ctx context.Context, res *store.Resource) ([]byte, error)
	Cancel()
}

// ContentDecoder turns downloaded bytes into an image off the UI context.
type ContentDecoder interface {
	LoadFromBytes(data []byte) (*ImageData, error)
}

type LoadStage int

const (
	StageMetadata LoadStage = iota
	StageContent
)

func (s LoadStage) String() string {
	if s == StageContent {
		return "content"
	}
	return "metadata"
}

type LoadResult int

const (
	ResultSuccess LoadResult = iota
	ResultCancelled
	ResultFailed
)

func (r LoadResult) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultCancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

type LoadOutcome struct {
	Stage    LoadStage
	Resource *store.Resource
	Data     []byte
	// Image is set on content success when a decoder is configured.
	Image *ImageData
	Err   error
}

func (o LoadOutcome) Result() LoadResult {
	switch store.KindOf(o.Err) {
	case nil:
		return ResultSuccess
	case store.ErrCancelled:
		return ResultCancelled
	default:
		return ResultFailed
	}
}

// Kind is the taxonomy sentinel of Err, nil on success.
func (o LoadOutcome) Kind() error {
	return store.KindOf(o.Err)
}

// LoadListener callbacks always run on the dispatcher.
type LoadListener interface {
	LoadStarted()
	LoadStageFinished(outcome LoadOutcome)
}

type LoadState int

const (
	StateIdle LoadState = iota
	StateMetadataLoading
	StateContentLoading
)

// LoadCoordinator chains the reference and content stages of one load.
type LoadCoordinator struct {
	mu         sync.Mutex
	state      LoadState
	provider   ReferenceProvider
	fetcher    ContentFetcher
	decoder    ContentDecoder
	dispatcher dispatch.Dispatcher
	listener   LoadListener
	logger     logger.Logger
	metrics    *metrics.Registry

	sessionCtx    context.Context
	sessionCancel context.CancelFunc
	wg            sync.WaitGroup
}

func NewLoadCoordinator(provider ReferenceProvider, fetcher ContentFetcher, disp dispatch.Dispatcher, log logger.Logger, reg *metrics.Registry) *LoadCoordinator {
	return &LoadCoordinator{
		provider:   provider,
		fetcher:    fetcher,
		dispatcher: disp,
		logger:     log,
		metrics:    reg,
	}
}

func (c *LoadCoordinator) SetListener(l LoadListener) {
	c.mu.Lock()
	c.listener = l
	c.mu.Unlock()
}

// SetDecoder makes the content stage decode its bytes before delivery.
// Undecodable content fails the stage with a format error.
func (c *LoadCoordinator) SetDecoder(d ContentDecoder) {
	c.mu.Lock()
	c.decoder = d
	c.mu.Unlock()
}

func (c *LoadCoordinator) State() LoadState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Load starts a new load and reports false if one is already running.
func (c *LoadCoordinator) Load() bool {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.state = StateMetadataLoading
	c.sessionCtx, c.sessionCancel = ctx, cancel
	listener := c.listener
	c.wg.Add(1)
	c.mu.Unlock()

	c.logger.Info(coordinatorComponent, "load started", nil)
	c.dispatcher.Do(func() {
		if listener != nil {
			listener.LoadStarted()
		}
	})

	go c.runMetadata(ctx)
	return true
}

// CancelLoad cancels whichever stage is running or about to run.
func (c *LoadCoordinator) CancelLoad() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateIdle {
		return
	}
	c.sessionCancel()
	c.provider.Cancel()
	c.fetcher.Cancel()
	c.logger.Info(coordinatorComponent, "load cancel requested", map[string]interface{}{
		"state": int(c.state),
	})
}

// runMetadata owns the load's WaitGroup slot for both stages. The content
// stage starts only after the metadata outcome has been delivered, or once
// the session is cancelled and the UI context may no longer be draining.
func (c *LoadCoordinator) runMetadata(ctx context.Context) {
	defer c.wg.Done()

	start := time.Now()
	res, err := c.provider.FetchReference(ctx)
	outcome := LoadOutcome{Stage: StageMetadata, Resource: res, Err: err}
	c.record(outcome, time.Since(start))
	succeeded := outcome.Result() == ResultSuccess

	delivered := make(chan struct{})
	c.dispatcher.Do(func() {
		defer close(delivered)
		c.mu.Lock()
		listener := c.listener
		if succeeded {
			c.state = StateContentLoading
		} else {
			c.state = StateIdle
			c.sessionCancel()
		}
		c.mu.Unlock()

		if listener != nil {
			listener.LoadStageFinished(outcome)
		}
	})

	if !succeeded {
		return
	}
	select {
	case <-delivered:
	case <-ctx.Done():
	}
	c.runContent(ctx, res)
}

func (c *LoadCoordinator) runContent(ctx context.Context, res *store.Resource) {
	start := time.Now()
	data, err := c.fetcher.FetchContent(ctx, res)
	outcome := LoadOutcome{Stage: StageContent, Resource: res, Data: data, Err: err}

	c.mu.Lock()
	decoder := c.decoder
	c.mu.Unlock()
	if err == nil && decoder != nil {
		decoded, derr := decoder.LoadFromBytes(data)
		if derr != nil {
			outcome.Err = &store.LoadError{Kind: store.ErrFormat, Op: "decode content", Err: derr}
		} else {
			outcome.Image = decoded
		}
	}
	c.record(outcome, time.Since(start))

	c.dispatcher.Do(func() {
		c.mu.Lock()
		listener := c.listener
		c.state = StateIdle
		c.sessionCancel()
		c.mu.Unlock()

		if listener != nil {
			listener.LoadStageFinished(outcome)
		}
	})
}

func (c *LoadCoordinator) record(outcome LoadOutcome, elapsed time.Duration) {
	result := outcome.Result()
	c.metrics.Inc(context.Background(), metrics.LoadsTotal, map[string]string{
		"stage":  outcome.Stage.String(),
		"result": result.String(),
	})

	fields := map[string]interface{}{
		"stage":       outcome.Stage.String(),
		"result":      result.String(),
		"duration_ms": elapsed.Milliseconds(),
	}
	if outcome.Resource != nil {
		fields["resource_id"] = outcome.Resource.ID.String()
	}

	switch result {
	case ResultSuccess:
		c.logger.Info(coordinatorComponent, "stage finished", fields)
	case ResultCancelled:
		c.logger.Info(coordinatorComponent, "stage cancelled", fields)
	default:
		fields["kind"] = store.KindName(outcome.Kind())
		c.logger.Error(coordinatorComponent, outcome.Err, fields)
	}
}

// Shutdown cancels any load and waits up to timeout for its goroutines.
func (c *LoadCoordinator) Shutdown(timeout time.Duration) {
	c.CancelLoad()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info(coordinatorComponent, "shutdown completed", nil)
	case <-time.After(timeout):
		c.logger.Warning(coordinatorComponent, "shutdown timed out", map[string]interface{}{
			"timeout": timeout.String(),
		})
	}
}
