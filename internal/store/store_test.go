package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"catfilter/internal/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*Provider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p := NewProvider(srv.Client(), ProviderOptions{
		Endpoint:     srv.URL + "/meow",
		MaxBodyBytes: 1024,
	}, logger.NewNop())
	return p, srv
}

func TestProviderSuccess(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"file":"https://example.com/cat.jpg"}`)
	})

	res, err := p.FetchReference(context.Background())
	require.NoError(t, err)
	require.Equal(t, "https://example.com/cat.jpg", res.Locator.String())
	require.NotEqual(t, uuid.Nil, res.ID)
	require.False(t, p.Busy())
}

func TestProviderErrorTaxonomy(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   error
	}{
		{"not found", http.StatusNotFound, `{"file":"https://example.com/a.jpg"}`, ErrServer},
		{"no content", http.StatusNoContent, ``, ErrServer},
		{"not json", http.StatusOK, `<html>`, ErrFormat},
		{"array", http.StatusOK, `["https://example.com/a.jpg"]`, ErrFormat},
		{"null", http.StatusOK, `null`, ErrFormat},
		{"missing field", http.StatusOK, `{"url":"https://example.com/a.jpg"}`, ErrFormat},
		{"wrong type", http.StatusOK, `{"file":42}`, ErrFormat},
		{"relative", http.StatusOK, `{"file":"/cat.jpg"}`, ErrFormat},
		{"bad scheme", http.StatusOK, `{"file":"ftp://example.com/cat.jpg"}`, ErrFormat},
		{"oversized", http.StatusOK, `{"file":"https://example.com/` + strings.Repeat("a", 2048) + `.jpg"}`, ErrFormat},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			})

			res, err := p.FetchReference(context.Background())
			require.Nil(t, res)
			require.ErrorIs(t, err, tc.kind)
			require.Equal(t, tc.kind, KindOf(err))
		})
	}
}

func TestProviderNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	p := NewProvider(nil, ProviderOptions{Endpoint: endpoint, Timeout: time.Second}, logger.NewNop())
	_, err := p.FetchReference(context.Background())
	require.ErrorIs(t, err, ErrNetwork)
}

func TestProviderBusyAndCancel(t *testing.T) {
	arrived := make(chan struct{})
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-r.Context().Done()
	})

	errc := make(chan error, 1)
	go func() {
		_, err := p.FetchReference(context.Background())
		errc <- err
	}()
	<-arrived

	_, err := p.FetchReference(context.Background())
	require.ErrorIs(t, err, ErrBusy)
	require.True(t, p.Busy())

	p.Cancel()
	select {
	case err := <-errc:
		require.ErrorIs(t, err, ErrCancelled)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled request did not complete")
	}
	require.False(t, p.Busy())
}

func TestProviderBusyLeavesFirstCallIntact(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-release
		fmt.Fprint(w, `{"file":"https://example.com/first.jpg"}`)
	})

	type result struct {
		res *Resource
		err error
	}
	first := make(chan result, 1)
	go func() {
		res, err := p.FetchReference(context.Background())
		first <- result{res, err}
	}()
	<-arrived

	_, err := p.FetchReference(context.Background())
	require.ErrorIs(t, err, ErrBusy)
	close(release)

	select {
	case r := <-first:
		require.NoError(t, r.err)
		require.Equal(t, "https://example.com/first.jpg", r.res.Locator.String())
	case <-time.After(5 * time.Second):
		t.Fatal("first request did not complete")
	}
	require.False(t, p.Busy())
}

func TestProviderCallerContextCancelled(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"file":"https://example.com/cat.jpg"}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.FetchReference(ctx)
	require.ErrorIs(t, err, ErrCancelled)
}

func TestFetcherSuccessStoresPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "image-bytes")
	}))
	defer srv.Close()

	tmpDir := t.TempDir()
	f := NewFetcher(srv.Client(), FetcherOptions{TempDir: tmpDir, MaxBodyBytes: 1024}, logger.NewNop())
	locator, err := url.Parse(srv.URL + "/cat.jpg")
	require.NoError(t, err)
	res := NewResource(locator)

	data, err := f.FetchContent(context.Background(), res)
	require.NoError(t, err)
	require.Equal(t, []byte("image-bytes"), data)
	require.Equal(t, data, res.Payload())

	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestFetcherErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   error
	}{
		{"server", http.StatusInternalServerError, "boom", ErrServer},
		{"empty", http.StatusOK, "", ErrFormat},
		{"oversized", http.StatusOK, strings.Repeat("x", 100), ErrFormat},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			}))
			defer srv.Close()

			f := NewFetcher(srv.Client(), FetcherOptions{TempDir: t.TempDir(), MaxBodyBytes: 64}, logger.NewNop())
			locator, _ := url.Parse(srv.URL)
			res := NewResource(locator)

			_, err := f.FetchContent(context.Background(), res)
			require.ErrorIs(t, err, tc.kind)
			require.Nil(t, res.Payload())
		})
	}
}

func TestFetcherCancel(t *testing.T) {
	arrived := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-r.Context().Done()
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), FetcherOptions{TempDir: t.TempDir()}, logger.NewNop())
	locator, _ := url.Parse(srv.URL)

	errc := make(chan error, 1)
	go func() {
		_, err := f.FetchContent(context.Background(), NewResource(locator))
		errc <- err
	}()
	<-arrived
	f.Cancel()

	select {
	case err := <-errc:
		require.ErrorIs(t, err, ErrCancelled)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled download did not complete")
	}
}

func TestFetcherBusyLeavesFirstCallIntact(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-release
		fmt.Fprint(w, "first-bytes")
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), FetcherOptions{TempDir: t.TempDir(), MaxBodyBytes: 1024}, logger.NewNop())
	locator, err := url.Parse(srv.URL + "/cat.jpg")
	require.NoError(t, err)
	res := NewResource(locator)

	errc := make(chan error, 1)
	go func() {
		_, err := f.FetchContent(context.Background(), res)
		errc <- err
	}()
	<-arrived

	other := NewResource(locator)
	_, err = f.FetchContent(context.Background(), other)
	require.ErrorIs(t, err, ErrBusy)
	require.Nil(t, other.Payload())
	close(release)

	select {
	case err := <-errc:
		require.NoError(t, err)
		require.Equal(t, []byte("first-bytes"), res.Payload())
	case <-time.After(5 * time.Second):
		t.Fatal("first download did not complete")
	}
	require.False(t, f.Busy())
}

func TestKindOf(t *testing.T) {
	require.Nil(t, KindOf(nil))
	require.Equal(t, ErrUnknown, KindOf(errors.New("plain")))
	require.Equal(t, ErrServer, KindOf(fmt.Errorf("wrapped: %w", newLoadError(ErrServer, "op", nil))))
	require.Equal(t, ErrCancelled, KindOf(context.Canceled))
	require.Equal(t, "format", KindName(ErrFormat))
}
