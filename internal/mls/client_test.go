package mls

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"mls-property-api/internal/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(baseURL string) *Client {
	return NewClient(ClientConfig{
		BaseURL:           baseURL,
		BearerToken:       "secret",
		OriginatingSystem: "nwmls",
		Timeout:           2 * time.Second,
		MaxRetries:        2,
		RetryDelay:        time.Millisecond,
		RetryOnNetwork:    true,
		RetryOn5xx:        true,
	})
}

func TestFirstPageURL(t *testing.T) {
	c := testClient("https://api.example.com/v2/")
	got := c.FirstPageURL(500)
	assert.Equal(t,
		"https://api.example.com/v2/Property?$filter=OriginatingSystemName%20eq%20%27nwmls%27%20and%20MlgCanView%20eq%20true&$expand=Media&$top=500",
		got)
}

func TestFetchPageDecodesRecordsAndNextLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"value":[{"ListingId":"NW1","ListPrice":500000}],"@odata.nextLink":"https://next"}`))
	}))
	defer srv.Close()

	page, err := testClient(srv.URL).FetchPage(context.Background(), srv.URL+"/Property")
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "NW1", page.Records[0]["ListingId"])
	assert.Equal(t, "https://next", page.NextLink)
}

func TestFetchPageRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"value":[]}`))
	}))
	defer srv.Close()

	page, err := testClient(srv.URL).FetchPage(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.Empty(t, page.NextLink)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestFetchPageRetriesTruncatedBody(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Write([]byte(`{"value":[{"ListingId":`))
			return
		}
		w.Write([]byte(`{"value":[{"ListingId":"NW7"}]}`))
	}))
	defer srv.Close()

	page, err := testClient(srv.URL).FetchPage(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "NW7", page.Records[0]["ListingId"])
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestFetchPageMalformedBodyIsUpstreamErrorAfterRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.cfg.RetryOnNetwork = false

	_, err := c.FetchPage(context.Background(), srv.URL)
	var upstream *errs.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.ErrorIs(t, err, errMalformedPage)
	assert.Equal(t, http.StatusBadGateway, errs.HTTPStatus(err))
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestFetchPageDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchPage(context.Background(), srv.URL)
	var upstream *errs.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusBadRequest, upstream.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestFetchPageGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchPage(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, errs.HTTPStatus(err))
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestCircuitBreakerStopsRequests(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.cfg.Breaker = NewCircuitBreaker(3, time.Hour)

	_, err := c.FetchPage(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, c.cfg.Breaker.GetStatus().Open)

	before := atomic.LoadInt32(&calls)
	_, err = c.FetchPage(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, before, atomic.LoadInt32(&calls))
}

func TestBackoffIsCapped(t *testing.T) {
	assert.Equal(t, 2*time.Second, backoffFor(1, 2*time.Second))
	assert.Equal(t, 8*time.Second, backoffFor(3, 2*time.Second))
	assert.Equal(t, maxBackoff, backoffFor(10, 2*time.Second))
}
