package mls

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"mls-property-api/internal/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaFetcherRetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	f := NewMediaFetcher(MediaFetcherConfig{Timeout: time.Second, Retries: 2, RetryDelay: time.Millisecond})
	media, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", media.ContentType)
	assert.Equal(t, []byte("jpeg-bytes"), media.Data)
}

func TestMediaFetcherStopsOnNotFound(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewMediaFetcher(MediaFetcherConfig{Timeout: time.Second, Retries: 3, RetryDelay: time.Millisecond})
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, errs.HTTPStatus(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestMediaFetcherRejectsOversizedBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 64))
	}))
	defer srv.Close()

	f := NewMediaFetcher(MediaFetcherConfig{Timeout: time.Second, MaxBytes: 16})
	_, err := f.Open(context.Background(), srv.URL)
	var upstream *errs.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusRequestEntityTooLarge, upstream.StatusCode)
}

func TestMediaFetcherRejectsEmptyBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	f := NewMediaFetcher(MediaFetcherConfig{Timeout: time.Second})
	_, err := f.Open(context.Background(), srv.URL)
	assert.Error(t, err)
}
