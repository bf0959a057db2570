package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"render-crawler/pkg/crawler"
	"render-crawler/pkg/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0644))
	return cfgPath
}

// execute runs the root command with args and returns stdout, stderr and the error
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func newDocsSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/docs/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html><head><title>Docs</title></head><body><main>Index
<a href="/docs/guide">Guide</a><a href="/blog/">Blog</a></main></body></html>`)
	})
	mux.HandleFunc("/docs/guide", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html><head><title>Guide</title></head><body><main>Read me</main></body></html>`)
	})
	site := httptest.NewServer(mux)
	t.Cleanup(site.Close)
	return site
}

func TestVersionCmd(t *testing.T) {
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "render-crawler version")
	assert.Contains(t, stdout, "commit:")
}

func TestValidateCmd_Valid(t *testing.T) {
	cfgPath := writeConfig(t, `
engine: static
max_urls_to_crawl: 25
max_concurrency: 4
content_format: markdown
port: 8081
`)
	stdout, _, err := execute(t, "validate", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "OK: Configuration valid")
	assert.Contains(t, stdout, "engine=static")
	assert.Contains(t, stdout, "format=markdown")
	assert.Contains(t, stdout, "max_urls_to_crawl=25")
	assert.Contains(t, stdout, ":8081")
}

func TestValidateCmd_MissingFileUsesDefaults(t *testing.T) {
	stdout, _, err := execute(t, "validate", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "WARN: max_urls_to_crawl")
	assert.Contains(t, stdout, "engine=rod")
}

func TestValidateCmd_InvalidEngine(t *testing.T) {
	cfgPath := writeConfig(t, "engine: netscape\n")
	_, _, err := execute(t, "validate", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine")
}

func TestValidateCmd_InvalidYAML(t *testing.T) {
	cfgPath := writeConfig(t, "{{invalid yaml")
	_, _, err := execute(t, "validate", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestSetupLogger(t *testing.T) {
	log, err := setupLogger("debug", io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "debug", log.GetLevel().String())

	_, err = setupLogger("chatty", io.Discard)
	assert.Error(t, err)
}

func TestCrawlCmd_RequiresURL(t *testing.T) {
	_, _, err := execute(t, "crawl", "--engine", "static")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url")
}

func TestCrawlCmd_PrintsReport(t *testing.T) {
	site := newDocsSite(t)
	cfgPath := filepath.Join(t.TempDir(), "absent.yaml")

	stdout, _, err := execute(t, "crawl",
		"--config", cfgPath,
		"--loglevel", "error",
		"--engine", "static",
		"--url", site.URL+"/docs/",
		"--match", site.URL+"/docs/**",
	)
	require.NoError(t, err)

	var report crawler.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	require.Len(t, report.Pages, 2)
	titles := []string{report.Pages[0].Title, report.Pages[1].Title}
	assert.ElementsMatch(t, []string{"Docs", "Guide"}, titles)
	assert.Equal(t, 2, report.Stats.Dispatched)
}

func TestCrawlCmd_WritesOutputsAndState(t *testing.T) {
	site := newDocsSite(t)
	dir := t.TempDir()
	outputPath := filepath.Join(dir, "out", "pages.json")
	metadataPath := filepath.Join(dir, "run.yaml")
	stateDir := filepath.Join(dir, "state")

	stdout, _, err := execute(t, "crawl",
		"--config", filepath.Join(dir, "absent.yaml"),
		"--loglevel", "error",
		"--engine", "static",
		"--url", site.URL+"/docs/",
		"--match", site.URL+"/docs/**",
		"--max-urls", "1",
		"--output", outputPath,
		"--metadata", metadataPath,
		"--state-dir", stateDir,
		"--write-visited-log",
	)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	var report crawler.Report
	require.NoError(t, json.Unmarshal(data, &report))
	require.Len(t, report.Pages, 1)
	assert.Equal(t, site.URL+"/docs/", report.Pages[0].URL)
	assert.Equal(t, 1, report.Stats.DroppedOverBudget)

	metaData, err := os.ReadFile(metadataPath)
	require.NoError(t, err)
	var meta models.RunMetadata
	require.NoError(t, yaml.Unmarshal(metaData, &meta))
	assert.NotEmpty(t, meta.RunID)
	assert.Equal(t, []string{site.URL + "/docs/"}, meta.Seeds)
	assert.Equal(t, 1, meta.Stats.Dispatched)
	require.Len(t, meta.Pages, 1)
	assert.Equal(t, "Docs", meta.Pages[0].Title)
	assert.Len(t, meta.Pages[0].ContentHash, 64)
	assert.False(t, meta.EndTime.Before(meta.StartTime))

	visited, err := filepath.Glob(filepath.Join(stateDir, "*-visited.txt"))
	require.NoError(t, err)
	require.Len(t, visited, 1)
	visitedData, err := os.ReadFile(visited[0])
	require.NoError(t, err)
	assert.Contains(t, string(visitedData), site.URL+"/docs/")
}
