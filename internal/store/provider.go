package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"catfilter/internal/logger"
)

const providerComponent = "ImageProvider"

type ProviderOptions struct {
	Endpoint       string
	ReferenceField string
	MaxBodyBytes   int64
	Timeout        time.Duration
}

// Provider asks the metadata endpoint for a random image reference. Only one
// request may be outstanding at a time.
type Provider struct {
	client *http.Client
	opts   ProviderOptions
	logger logger.Logger
	flight inflight
}

func NewProvider(client *http.Client, opts ProviderOptions, log logger.Logger) *Provider {
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.ReferenceField == "" {
		opts.ReferenceField = "file"
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 64 << 10
	}
	return &Provider{client: client, opts: opts, logger: log}
}

// FetchReference returns ErrBusy without side effects when a request is
// already outstanding.
func (p *Provider) FetchReference(ctx context.Context) (*Resource, error) {
	reqCtx, ok := p.flight.begin(ctx)
	if !ok {
		return nil, newLoadError(ErrBusy, "fetch reference", nil)
	}

	res, err := p.fetch(reqCtx)
	if p.flight.end() {
		if err == nil {
			err = errors.New("completed after cancel")
		}
		return nil, newLoadError(ErrCancelled, "fetch reference", err)
	}
	if err != nil {
		return nil, err
	}

	p.logger.Debug(providerComponent, "reference acquired", map[string]interface{}{
		"resource_id": res.ID.String(),
		"locator":     res.Locator.String(),
	})
	return res, nil
}

// Cancel aborts the outstanding request, if any.
func (p *Provider) Cancel() {
	p.flight.abort()
}

func (p *Provider) Busy() bool {
	return p.flight.busy()
}

func (p *Provider) fetch(ctx context.Context) (*Resource, error) {
	const op = "fetch reference"

	resp, err := get(ctx, p.client, op, p.opts.Endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readAllWithLimit(resp.Body, p.opts.MaxBodyBytes)
	if err != nil {
		if ctx.Err() != nil {
			return nil, classifyTransport(op, ctx.Err())
		}
		return nil, newLoadError(ErrFormat, op, err)
	}

	locator, err := parseReference(body, p.opts.ReferenceField)
	if err != nil {
		return nil, newLoadError(ErrFormat, op, err)
	}
	return NewResource(locator), nil
}

func parseReference(body []byte, field string) (*url.URL, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if envelope == nil {
		return nil, errors.New("envelope is not an object")
	}

	raw, ok := envelope[field]
	if !ok {
		return nil, fmt.Errorf("field %q missing", field)
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("field %q is not a string", field)
	}

	u, err := url.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", field, err)
	}
	if !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("field %q is not an absolute http(s) URL: %q", field, value)
	}
	return u, nil
}
