package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"render-crawler/pkg/config"
	"render-crawler/pkg/fetch"
	"render-crawler/pkg/render"
	"render-crawler/pkg/utils"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	cfg := &config.AppConfig{Engine: config.EngineStatic}
	_, err := cfg.Validate()
	require.NoError(t, err)
	return cfg
}

// newSite serves a three page site and counts page requests
func newSite(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/docs/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, `<html><head><title>Docs</title></head><body><p>Index</p>
<a href="/docs/a">A</a><a href="/blog/b">B</a></body></html>`)
	})
	mux.HandleFunc("/docs/a", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, `<html><head><title>A</title></head><body><p>Page A</p></body></html>`)
	})
	mux.HandleFunc("/blog/b", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, `<html><head><title>B</title></head><body><p>Post B</p></body></html>`)
	})
	site := httptest.NewServer(mux)
	t.Cleanup(site.Close)
	return site, &hits
}

func newTestServer(t *testing.T, launch render.Launcher) *httptest.Server {
	t.Helper()
	cfg := testConfig(t)
	if launch == nil {
		fetcher := fetch.NewFetcher(fetch.NewClient(cfg.HTTPClientSettings, testLogger()), "test-agent", 1<<20, testLogger())
		launch = render.StaticLauncher(fetcher, render.FormatText, testLogger())
	}
	s, err := New(cfg, launch, testLogger())
	require.NoError(t, err)
	api := httptest.NewServer(s.Handler())
	t.Cleanup(api.Close)
	return api
}

func get(t *testing.T, rawURL string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(rawURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestNew_Validation(t *testing.T) {
	cfg := testConfig(t)
	launch := func(ctx context.Context) (render.Engine, error) { return nil, nil }

	_, err := New(nil, launch, testLogger())
	assert.Error(t, err)
	_, err = New(cfg, nil, testLogger())
	assert.Error(t, err)

	cfg.Cache.Strategy = "arc"
	_, err = New(cfg, launch, testLogger())
	assert.ErrorIs(t, err, utils.ErrConfigValidation)
}

func TestPing(t *testing.T) {
	api := newTestServer(t, nil)

	resp, body := get(t, api.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"message":"Pong!"}`, body)

	_, err := uuid.Parse(resp.Header.Get(requestIDHeader))
	assert.NoError(t, err, "generated request ID is a UUID")
}

func TestRequestIDPropagated(t *testing.T) {
	api := newTestServer(t, nil)

	req, err := http.NewRequest(http.MethodGet, api.URL+"/", nil)
	require.NoError(t, err)
	req.Header.Set(requestIDHeader, "req-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "req-123", resp.Header.Get(requestIDHeader))
}

func TestNotFound(t *testing.T) {
	api := newTestServer(t, nil)

	for _, path := range []string{"/nope", "/crawl/extra", "/favicon.ico"} {
		resp, body := get(t, api.URL+path)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		assert.JSONEq(t, `{"error":"Not Found"}`, body, path)
	}

	resp, err := http.Post(api.URL+"/", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCrawl_MissingParams(t *testing.T) {
	api := newTestServer(t, nil)

	for _, query := range []string{"", "?urls=https://ex.com/", "?match=https://ex.com/**", "?urls=&match="} {
		resp, body := get(t, api.URL+"/crawl"+query)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, query)
		assert.JSONEq(t, `{"error":"Urls and match must be appear in query"}`, body, query)
	}
}

func TestCrawl_InvalidNumbers(t *testing.T) {
	api := newTestServer(t, nil)

	for _, param := range []string{"maxUrlsToCrawl=abc", "maxUrlsToCrawl=0", "maxConcurrency=-2"} {
		resp, body := get(t, api.URL+"/crawl?urls=https://ex.com/&match=x&"+param)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, param)
		assert.Contains(t, body, "must be a positive integer")
	}
}

func TestCrawl_ReturnsPagesAndCaches(t *testing.T) {
	site, hits := newSite(t)
	api := newTestServer(t, nil)

	query := url.Values{}
	query.Set("urls", site.URL+"/docs/")
	query.Set("match", site.URL+"/docs/**")

	resp, body := get(t, api.URL+"/crawl?"+query.Encode())
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))

	var payload struct {
		Data []struct {
			URL     string `json:"url"`
			Title   string `json:"title"`
			Content string `json:"content"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	titles := map[string]string{}
	for _, p := range payload.Data {
		titles[p.URL] = p.Title
	}
	assert.Equal(t, map[string]string{
		site.URL + "/docs/":  "Docs",
		site.URL + "/docs/a": "A",
	}, titles)
	assert.Equal(t, int32(2), hits.Load())

	// Same parameters in a different order hit the cache
	reordered := api.URL + "/crawl?match=" + url.QueryEscape(site.URL+"/docs/**") + "&urls=" + url.QueryEscape(site.URL+"/docs/")
	resp, cached := get(t, reordered)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "HIT", resp.Header.Get("X-Cache"))
	assert.JSONEq(t, body, cached)
	assert.Equal(t, int32(2), hits.Load(), "cached response does not crawl again")
}

func TestCrawl_MaxUrlsToCrawl(t *testing.T) {
	site, hits := newSite(t)
	api := newTestServer(t, nil)

	query := url.Values{}
	query.Set("urls", site.URL+"/docs/")
	query.Set("match", "**")
	query.Set("maxUrlsToCrawl", "1")

	resp, body := get(t, api.URL+"/crawl?"+query.Encode())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var payload struct {
		Data []json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	assert.Len(t, payload.Data, 1)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCrawl_EngineFailure(t *testing.T) {
	launch := func(ctx context.Context) (render.Engine, error) {
		return nil, errors.New("browser not found")
	}
	api := newTestServer(t, launch)

	resp, body := get(t, api.URL+"/crawl?urls=https://ex.com/&match=**")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, "browser not found")

	// Failures are not cached
	resp, _ = get(t, api.URL+"/crawl?urls=https://ex.com/&match=**")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("X-Cache"))
}

func TestMetrics(t *testing.T) {
	api := newTestServer(t, nil)
	resp, body := get(t, api.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "crawler_crawls_total")
}

func TestCacheKey(t *testing.T) {
	a := url.Values{"urls": {"https://ex.com/"}, "match": {"**"}, "utm": {"x"}}
	b := url.Values{"match": {"**"}, "urls": {" https://ex.com/ "}}
	c := url.Values{"match": {"**"}, "urls": {"https://ex.com/"}, "maxUrlsToCrawl": {"3"}}

	assert.Equal(t, cacheKey(a), cacheKey(b), "unrelated params and whitespace are ignored")
	assert.NotEqual(t, cacheKey(a), cacheKey(c))
}
