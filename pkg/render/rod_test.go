package render

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"render-crawler/pkg/utils"
)

// Requires a local Chrome/Chromium; enable with RENDER_CRAWLER_ROD_TESTS=1
func TestRodEngine_RendersScriptContent(t *testing.T) {
	if os.Getenv("RENDER_CRAWLER_ROD_TESTS") == "" {
		t.Skip("set RENDER_CRAWLER_ROD_TESTS=1 to run browser tests")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, `<html><head><title>Rendered</title></head><body>
<div id="root"></div>
<script>
setTimeout(function () {
  document.getElementById('root').innerHTML = '<p class="late">Late content</p><a href="/next">Next</a>';
}, 100);
</script>
</body></html>`)
	}))
	t.Cleanup(server.Close)

	ctx := context.Background()
	lc := NewLifecycle(RodLauncher(RodOptions{Headless: true, NavigationTimeout: 20 * time.Second, Format: FormatText}, testLogger()), testLogger())
	engine, err := lc.Acquire(ctx)
	require.NoError(t, err)
	defer lc.Release()

	s, err := engine.Open(ctx, server.URL+"/")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.WaitReady(ctx, ".late", 5*time.Second))

	title, err := s.Title(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Rendered", title)

	links, err := s.Links(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{server.URL + "/next"}, links)

	content, err := s.Content(ctx, "#root", "")
	require.NoError(t, err)
	assert.Contains(t, content, "Late content")

	err = s.WaitReady(ctx, "//section", 200*time.Millisecond)
	assert.ErrorIs(t, err, utils.ErrTimeout)
}
