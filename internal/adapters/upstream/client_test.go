package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/duofeed/internal/domain/feed"
	"github.com/okian/duofeed/internal/domain/model"
	"github.com/okian/duofeed/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.InitWithWriter(io.Discard); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newTestClient(t *testing.T, url string, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithRateLimit(1000, 1000), WithRetry(2, time.Millisecond)}, opts...)
	c, err := New(url, opts...)
	require.NoError(t, err)
	return c
}

func TestQuery_SendsPrefilterAsQueryParams(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/posts", r.URL.Path)
		gotQuery = r.URL.Query()
		_ = json.NewEncoder(w).Encode(postsResponse{Posts: []model.Post{{ID: "a"}, {ID: "b"}}})
	}))
	defer srv.Close()

	vc := model.VCNever
	c := newTestClient(t, srv.URL+"/")
	posts, err := c.Query(context.Background(), feed.Prefilter{
		Regions:      []model.Region{model.RegionEUW, model.RegionNA},
		Roles:        []model.Role{model.RoleMid},
		VCPreference: &vc,
	})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "a", posts[0].ID)

	assert.Equal(t, []string{"EUW", "NA"}, gotQuery["region"])
	assert.Equal(t, []string{"MID"}, gotQuery["role"])
	assert.Equal(t, []string{"NEVER"}, gotQuery["vc"])
	assert.NotContains(t, gotQuery, "duo_type")
}

func TestQuery_EmptyPrefilterSendsNoParams(t *testing.T) {
	var rawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"posts":null}`))
	}))
	defer srv.Close()

	posts, err := newTestClient(t, srv.URL).Query(context.Background(), feed.Prefilter{})
	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)
	assert.Empty(t, rawQuery)
}

func TestQuery_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"posts":[{"id":"ok"}]}`))
	}))
	defer srv.Close()

	posts, err := newTestClient(t, srv.URL).Query(context.Background(), feed.Prefilter{})
	require.NoError(t, err)
	assert.Equal(t, "ok", posts[0].ID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestQuery_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Query(context.Background(), feed.Prefilter{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, int32(3), calls.Load())
}

func TestQuery_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad region", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Query(context.Background(), feed.Prefilter{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClientError)
	assert.Contains(t, err.Error(), "bad region")
	assert.Equal(t, int32(1), calls.Load())
}

func TestVersion_ChangesPerRefreshInterval(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newTestClient(t, "http://listings.local",
		WithRefreshInterval(10*time.Second),
		WithClock(func() time.Time { return now }))

	v1, err := c.Version(context.Background())
	require.NoError(t, err)
	now = now.Add(9 * time.Second)
	v2, _ := c.Version(context.Background())
	now = now.Add(time.Second)
	v3, _ := c.Version(context.Background())

	assert.Equal(t, v1, v2)
	assert.NotEqual(t, v2, v3)
	assert.Equal(t, "upstream", c.Name())
}

func TestNew_RejectsInvalidURL(t *testing.T) {
	_, err := New("listings.local")
	assert.Error(t, err)
}
