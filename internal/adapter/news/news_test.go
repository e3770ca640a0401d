package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendwise/internal/domain/trend"
)

func TestNewsAPISearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/everything", r.URL.Path)
		assert.Equal(t, "solar eclipse", r.URL.Query().Get("q"))
		assert.Equal(t, "3", r.URL.Query().Get("pageSize"))
		assert.Equal(t, "k", r.Header.Get("X-Api-Key"))
		w.Write([]byte(`{"status":"ok","articles":[
			{"source":{"name":"Reuters"},"title":"Eclipse draws crowds","url":"https://r.example/1","publishedAt":"2026-03-14T09:00:00Z"},
			{"source":{"name":"Removed"},"title":"[Removed]","url":"https://r.example/2","publishedAt":"2026-03-14T09:00:00Z"}
		]}`))
	}))
	defer srv.Close()

	c := NewNewsAPIClient("k", srv.URL, srv.Client())
	got, err := c.Search(context.Background(), "solar eclipse", 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, trend.Article{
		Title:       "Eclipse draws crowds",
		URL:         "https://r.example/1",
		Source:      "Reuters",
		Platform:    "newsapi",
		PublishedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}, got[0])
}

func TestNewsAPIErrors(t *testing.T) {
	_, err := NewNewsAPIClient("", "", nil).Search(context.Background(), "q", 1)
	assert.ErrorIs(t, err, trend.ErrMissingCredential)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","code":"rateLimited","message":"too many"}`))
	}))
	defer srv.Close()
	_, err = NewNewsAPIClient("k", srv.URL, srv.Client()).Search(context.Background(), "q", 1)
	assert.ErrorContains(t, err, "rateLimited")
}

const googleNewsPage = `<html><body>
<article>
  <h3><a href="./articles/abc123">Eclipse path mapped</a></h3>
  <div data-n-tid="9"><a>The Verge</a></div>
  <time datetime="2026-03-14T08:30:00Z">3 hours ago</time>
</article>
<article>
  <h4><a href="https://elsewhere.example/story">Glasses sold out</a></h4>
</article>
<article><p>no headline</p></article>
<article><h3><a href="./articles/x">Third</a></h3></article>
</body></html>`

func TestGoogleNewsSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "eclipse", r.URL.Query().Get("q"))
		w.Write([]byte(googleNewsPage))
	}))
	defer srv.Close()

	c := NewGoogleNewsClient(srv.URL, srv.Client())
	got, err := c.Search(context.Background(), "eclipse", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Eclipse path mapped", got[0].Title)
	assert.Equal(t, srv.URL+"/articles/abc123", got[0].URL)
	assert.Equal(t, "The Verge", got[0].Source)
	assert.Equal(t, time.Date(2026, 3, 14, 8, 30, 0, 0, time.UTC), got[0].PublishedAt)

	assert.Equal(t, "https://elsewhere.example/story", got[1].URL)
	assert.Equal(t, "Google News", got[1].Source)
	assert.True(t, got[1].PublishedAt.IsZero())
}

func TestSerpAPISearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "nws", q.Get("tbm"))
		assert.Equal(t, "k", q.Get("api_key"))
		w.Write([]byte(`{"news_results":[
			{"title":"Markets rally","link":"https://s.example/1","source":"FT","date":"2 hours ago","snippet":"Stocks up"},
			{"title":"Old piece","link":"https://s.example/2","source":"WSJ","date":"Mar 1, 2026"}
		]}`))
	}))
	defer srv.Close()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	c := NewSerpAPIClient("k", srv.URL, srv.Client())
	c.now = func() time.Time { return now }

	got, err := c.Search(context.Background(), "markets", 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, now.Add(-2*time.Hour), got[0].PublishedAt)
	assert.Equal(t, "Stocks up", got[0].Description)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), got[1].PublishedAt)
}

func TestSerpAPIMissingKey(t *testing.T) {
	_, err := NewSerpAPIClient("", "", nil).Search(context.Background(), "q", 1)
	assert.ErrorIs(t, err, trend.ErrMissingCredential)
}

func TestParseNewsDate(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(-45*time.Minute), parseNewsDate("45 minutes ago", now))
	assert.Equal(t, now.Add(-24*time.Hour), parseNewsDate("1 day ago", now))
	assert.Equal(t, now.Add(-14*24*time.Hour), parseNewsDate("2 weeks ago", now))
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), parseNewsDate("2026-03-01T00:00:00Z", now))
	assert.Equal(t, time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC), parseNewsDate("Feb 27, 2026", now))
	assert.True(t, parseNewsDate("yesterday-ish", now).IsZero())
	assert.True(t, parseNewsDate("", now).IsZero())
}
