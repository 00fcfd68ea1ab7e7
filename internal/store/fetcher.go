package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"catfilter/internal/logger"
)

const fetcherComponent = "ResourceFetcher"

type FetcherOptions struct {
	TempDir      string
	MaxBodyBytes int64
	Timeout      time.Duration
}

// Fetcher downloads resource content through a transient file.
type Fetcher struct {
	client *http.Client
	opts   FetcherOptions
	logger logger.Logger
	flight inflight
}

func NewFetcher(client *http.Client, opts FetcherOptions, log logger.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 32 << 20
	}
	return &Fetcher{client: client, opts: opts, logger: log}
}

// FetchContent downloads res and stores the bytes as its payload.
func (f *Fetcher) FetchContent(ctx context.Context, res *Resource) ([]byte, error) {
	const op = "fetch content"

	if res == nil || res.Locator == nil {
		return nil, newLoadError(ErrUnknown, op, errors.New("resource has no locator"))
	}

	reqCtx, ok := f.flight.begin(ctx)
	if !ok {
		return nil, newLoadError(ErrBusy, op, nil)
	}

	data, err := f.download(reqCtx, res)
	if f.flight.end() {
		if err == nil {
			err = errors.New("completed after cancel")
		}
		return nil, newLoadError(ErrCancelled, op, err)
	}
	if err != nil {
		return nil, err
	}

	res.setPayload(data)
	f.logger.Debug(fetcherComponent, "content downloaded", map[string]interface{}{
		"resource_id": res.ID.String(),
		"bytes":       len(data),
	})
	return data, nil
}

func (f *Fetcher) Cancel() {
	f.flight.abort()
}

func (f *Fetcher) Busy() bool {
	return f.flight.busy()
}

func (f *Fetcher) download(ctx context.Context, res *Resource) ([]byte, error) {
	const op = "fetch content"

	resp, err := get(ctx, f.client, op, res.Locator.String())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp(f.opts.TempDir, "catfilter-*.download")
	if err != nil {
		return nil, newLoadError(ErrUnknown, op, fmt.Errorf("create temp file: %w", err))
	}
	defer func() {
		tmp.Close()
		if rmErr := os.Remove(tmp.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			f.logger.Warning(fetcherComponent, "failed to remove transient file", map[string]interface{}{
				"path":  tmp.Name(),
				"error": rmErr.Error(),
			})
		}
	}()

	written, err := io.Copy(tmp, io.LimitReader(resp.Body, f.opts.MaxBodyBytes+1))
	if err != nil {
		if ctx.Err() != nil {
			return nil, classifyTransport(op, ctx.Err())
		}
		return nil, newLoadError(ErrNetwork, op, fmt.Errorf("stream body: %w", err))
	}
	if written > f.opts.MaxBodyBytes {
		return nil, newLoadError(ErrFormat, op, fmt.Errorf("content exceeds %d bytes", f.opts.MaxBodyBytes))
	}
	if written == 0 {
		return nil, newLoadError(ErrFormat, op, errors.New("empty content"))
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, newLoadError(ErrUnknown, op, fmt.Errorf("rewind temp file: %w", err))
	}
	data, err := io.ReadAll(tmp)
	if err != nil {
		return nil, newLoadError(ErrUnknown, op, fmt.Errorf("read temp file: %w", err))
	}
	return data, nil
}
