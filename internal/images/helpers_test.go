package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"mls-property-api/internal/database"
	"mls-property-api/internal/database/dbtest"
	"mls-property-api/internal/errs"
	"mls-property-api/internal/mls"
	"mls-property-api/internal/models"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func pngBytes(t testing.TB, w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, G: 10, B: 10, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func sourceURL(id string, order int) string {
	return fmt.Sprintf("https://media.example.com/%s/%d.png", id, order)
}

// seedProperty stores a listing with n photos and returns the store.
func seedProperty(t *testing.T, id string, n int) *database.Store {
	store := dbtest.NewStore(t)
	city := "Seattle"
	media := make([]models.PropertyMedia, n)
	for i := range media {
		media[i] = models.PropertyMedia{Order: i, SourceURL: sourceURL(id, i), IsPreferred: i == 0}
	}
	_, err := store.UpsertListing(context.Background(), &models.Property{ID: id, ListingID: id, City: &city}, media)
	require.NoError(t, err)
	return store
}

// fakeFetcher serves PNGs for every URL except those listed in failing.
type fakeFetcher struct {
	t       testing.TB
	mu      sync.Mutex
	failing map[string]bool
	calls   []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*mls.Media, error) {
	return f.Open(ctx, url)
}

func (f *fakeFetcher) Open(_ context.Context, url string) (*mls.Media, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	fail := f.failing[url]
	f.mu.Unlock()
	if fail {
		return nil, &errs.UpstreamError{URL: url, StatusCode: 503}
	}
	return &mls.Media{Data: pngBytes(f.t, 40, 30), ContentType: "image/png"}, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Put(ctx context.Context, key string, data []byte, contentType string, meta map[string]string) (string, error) {
	args := m.Called(ctx, key, data, contentType, meta)
	return args.String(0), args.Error(1)
}

// acceptingUploader returns a mock that stores every upload on the CDN.
func acceptingUploader() *mockUploader {
	u := &mockUploader{}
	u.On("Put", mock.Anything, mock.AnythingOfType("string"), mock.Anything, "image/webp", mock.Anything).
		Return("https://cdn.example.com/stored", nil)
	return u
}

// htmlFetcher answers with an error page, as some media hosts do.
type htmlFetcher struct{}

func (htmlFetcher) Fetch(context.Context, string) (*mls.Media, error) {
	return &mls.Media{Data: []byte("<html><body>Forbidden</body></html>"), ContentType: "text/html"}, nil
}
