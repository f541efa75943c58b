package channel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsdigest/internal/domain"
)

const previewFixture = `<!DOCTYPE html>
<html>
<body>
  <div class="tgme_widget_message_wrap">
    <div class="tgme_widget_message_text">New diffusion pipeline announced today.
It cuts inference cost in half for common workloads.</div>
    <a class="tgme_widget_message_date" href="https://t.me/ainews/101">
      <time datetime="2026-08-25T08:15:00+00:00"></time>
    </a>
  </div>
  <div class="tgme_widget_message_wrap">
    <div class="tgme_widget_message_text">ok</div>
    <a class="tgme_widget_message_date" href="https://t.me/ainews/102"></a>
  </div>
  <div class="tgme_widget_message_wrap">
    <div class="tgme_widget_message_text">Long read on evaluation methodology for production agent systems and what actually works.</div>
    <a class="tgme_widget_message_date" href="https://t.me/ainews/103"></a>
  </div>
</body>
</html>`

func newTestCollector(srv *httptest.Server) *Collector {
	c := New(srv.Client())
	c.baseURL = srv.URL
	return c
}

func TestCollectExtractsMessages(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ainews" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(previewFixture))
	}))
	defer srv.Close()

	c := newTestCollector(srv)
	src := domain.Source{ID: 4, Kind: domain.KindChannel, Name: "ainews", Address: "@ainews"}

	items, err := c.Collect(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, items, 2, "too-short messages are skipped")

	first := items[0]
	assert.Equal(t, domain.KindChannel, first.Kind)
	assert.Equal(t, "New diffusion pipeline announced today.", first.Title)
	assert.Contains(t, first.Body, "cuts inference cost in half")
	assert.Equal(t, "https://t.me/ainews/101", first.URL)
	assert.Equal(t, 25, first.PublishedAt.Day())

	// Second kept message has no datetime attribute; fetch time is used.
	assert.False(t, items[1].PublishedAt.IsZero())
}

func TestCollectPageError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestCollector(srv)
	_, err := c.Collect(context.Background(), domain.Source{Address: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel preview returned")
}

func TestCheckAvailability(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/gone" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestCollector(srv)
	assert.True(t, c.CheckAvailability(context.Background(), domain.Source{Address: "alive"}))
	assert.False(t, c.CheckAvailability(context.Background(), domain.Source{Address: "gone"}))
}

func TestPageURLStripsHandlePrefix(t *testing.T) {
	t.Parallel()

	c := New(nil)
	assert.Equal(t, "https://t.me/s/ainews", c.pageURL("@ainews"))
	assert.Equal(t, "https://t.me/s/ainews", c.pageURL(" ainews "))
}

func TestExtractTitle(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "First line", extractTitle("First line\nrest of the message"))

	long := strings.Repeat("a", 150)
	got := extractTitle(long)
	assert.Len(t, got, maxTitleLen)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestExtractTitleKeepsRunesIntact(t *testing.T) {
	t.Parallel()

	got := extractTitle(strings.Repeat("канал ", 25))
	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len(got), maxTitleLen)
}
