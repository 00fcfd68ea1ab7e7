package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// inflight is the single-flight guard shared by Provider and Fetcher. The
// cancelling mark wins over whatever the transport eventually reports.
type inflight struct {
	mu         sync.Mutex
	active     bool
	cancelling bool
	cancel     context.CancelFunc
}

func (f *inflight) begin(parent context.Context) (context.Context, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active {
		return nil, false
	}
	ctx, cancel := context.WithCancel(parent)
	f.active = true
	f.cancelling = false
	f.cancel = cancel
	return ctx, true
}

// end clears the guard and reports whether Cancel was called meanwhile.
func (f *inflight) end() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	wasCancelled := f.cancelling
	if f.cancel != nil {
		f.cancel()
	}
	f.active = false
	f.cancelling = false
	f.cancel = nil
	return wasCancelled
}

func (f *inflight) abort() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.active {
		return
	}
	f.cancelling = true
	if f.cancel != nil {
		f.cancel()
	}
}

func (f *inflight) busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func get(ctx context.Context, client *http.Client, op, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, newLoadError(ErrUnknown, op, fmt.Errorf("build request: %w", err))
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyTransport(op, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, newLoadError(ErrServer, op, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return resp, nil
}

func classifyTransport(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return newLoadError(ErrCancelled, op, err)
	}
	return newLoadError(ErrNetwork, op, err)
}

// readAllWithLimit reads at most limit bytes and fails if the body is longer.
func readAllWithLimit(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("body exceeds %d bytes", limit)
	}
	return data, nil
}
