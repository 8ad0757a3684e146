package invidious

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kidtube/health"
	kthttp "kidtube/http"
	"kidtube/internal/retry"
	"kidtube/youtube"
)

func testClient() *kthttp.Client {
	cfg := kthttp.DefaultConfig()
	cfg.Timeout = 5 * time.Second
	cfg.Retry = retry.None()
	cfg.RateLimiter = kthttp.RateLimiterConfig{}
	return kthttp.New(cfg)
}

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func newTracker(servers ...*httptest.Server) *health.Tracker {
	hosts := make([]string, 0, len(servers))
	for _, s := range servers {
		hosts = append(hosts, s.URL)
	}
	return health.NewTracker(hosts, health.WithScheme("http"))
}

func TestVideo(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/videos/vid1", r.URL.Path)
		w.Write([]byte(`{
			"videoId": "vid1",
			"title": "Counting Song",
			"author": "Numbers",
			"authorId": "UCnumbers",
			"lengthSeconds": 125,
			"videoThumbnails": [
				{"quality": "maxres", "url": "/vi/vid1/maxres.jpg", "width": 1280},
				{"quality": "high", "url": "/vi/vid1/hqdefault.jpg", "width": 480},
				{"quality": "default", "url": "/vi/vid1/default.jpg", "width": 120}
			]
		}`))
	})

	p := New(testClient(), newTracker(server))
	v, err := p.Video(context.Background(), "vid1")
	require.NoError(t, err)
	assert.Equal(t, "Counting Song", v.Title)
	assert.Equal(t, "UCnumbers", v.ChannelID)
	assert.Equal(t, 125*time.Second, v.Duration)
	assert.Equal(t, server.URL+"/vi/vid1/hqdefault.jpg", v.ThumbnailURL)
}

func TestChannel(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"author": "Science Kids",
			"authorId": "UCscience",
			"subCount": 1200,
			"authorThumbnails": [
				{"url": "//yt3.ggpht.com/a=s100", "width": 100},
				{"url": "//yt3.ggpht.com/a=s400", "width": 400}
			]
		}`))
	})

	p := New(testClient(), newTracker(server))
	ch, err := p.Channel(context.Background(), "UCscience")
	require.NoError(t, err)
	assert.Equal(t, "Science Kids", ch.Title)
	assert.Equal(t, int64(1200), ch.SubscriberCount)
	assert.Equal(t, "https://yt3.ggpht.com/a=s400", ch.ThumbnailURL)
}

func TestChannelByHandleResolvesURL(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/resolveurl":
			assert.Equal(t, "https://www.youtube.com/@sciencekids", r.URL.Query().Get("url"))
			w.Write([]byte(`{"ucid": "UCscience", "pageType": "WEB_PAGE_TYPE_CHANNEL"}`))
		case "/api/v1/channels/UCscience":
			w.Write([]byte(`{"author": "Science Kids", "authorId": "UCscience"}`))
		default:
			http.NotFound(w, r)
		}
	})

	p := New(testClient(), newTracker(server))
	ch, err := p.ChannelByHandle(context.Background(), "sciencekids")
	require.NoError(t, err)
	assert.Equal(t, "UCscience", ch.YouTubeID)
}

func TestPlaylist(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"playlistId": "PL1",
			"title": "Lullabies",
			"author": "Sleepy",
			"authorId": "UCsleepy",
			"playlistThumbnail": "/vi/a/mqdefault.jpg"
		}`))
	})

	p := New(testClient(), newTracker(server))
	pl, err := p.Playlist(context.Background(), "PL1")
	require.NoError(t, err)
	assert.Equal(t, "Lullabies", pl.Title)
	assert.Equal(t, server.URL+"/vi/a/mqdefault.jpg", pl.ThumbnailURL)
}

func TestPoolExhaustedMakesNoRequest(t *testing.T) {
	var hits atomic.Int32
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})

	tracker := newTracker(server)
	tracker.ReportFailure(server.URL)
	tracker.ReportFailure(server.URL)

	p := New(testClient(), tracker)
	_, err := p.Video(context.Background(), "vid1")
	assert.ErrorIs(t, err, youtube.ErrPoolExhausted)
	assert.Zero(t, hits.Load())
}

func TestFailuresAreReported(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}, nil},
		{"not found", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}, youtube.ErrNotFound},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>`))
		}, youtube.ErrMalformed},
		{"missing title", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"videoId": "vid1"}`))
		}, youtube.ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newServer(t, tt.handler)
			tracker := newTracker(server)
			p := New(testClient(), tracker)

			_, err := p.Video(context.Background(), "vid1")
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}

			stats := tracker.Stats()
			require.Len(t, stats, 1)
			assert.Equal(t, 1, stats[0].ConsecutiveFailures)
		})
	}
}

func TestSuccessClearsFailures(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"videoId": "vid1", "title": "ok"}`))
	})
	tracker := newTracker(server)
	tracker.ReportFailure(server.URL)

	p := New(testClient(), tracker)
	_, err := p.Video(context.Background(), "vid1")
	require.NoError(t, err)
	assert.Zero(t, tracker.Stats()[0].ConsecutiveFailures)
}

func TestMaxAttemptsRotates(t *testing.T) {
	bad := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	good := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"videoId": "vid1", "title": "ok"}`))
	})

	p := New(testClient(), newTracker(bad, good), WithMaxAttempts(2))
	v, err := p.Video(context.Background(), "vid1")
	require.NoError(t, err)
	assert.Equal(t, "ok", v.Title)
}

func TestFailedAttemptDoesNotLeakIntoNext(t *testing.T) {
	bad := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"title": "Wrong Video", "lengthSeconds": "oops"}`))
	})
	good := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"videoId": "vid1"}`))
	})

	tracker := newTracker(bad, good)
	p := New(testClient(), tracker, WithMaxAttempts(2))
	v, err := p.Video(context.Background(), "vid1")
	assert.Nil(t, v)
	assert.ErrorIs(t, err, youtube.ErrMalformed)

	stats := tracker.Stats()
	assert.Equal(t, 1, stats[0].ConsecutiveFailures)
	assert.Equal(t, 1, stats[1].ConsecutiveFailures)
}

func TestAbsoluteURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"//img.example/a.jpg", "https://img.example/a.jpg"},
		{"/vi/x/hq.jpg", "https://inv.example/vi/x/hq.jpg"},
		{"https://cdn.example/a.jpg", "https://cdn.example/a.jpg"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, absoluteURL("https://inv.example/", tt.in), tt.in)
	}
}
