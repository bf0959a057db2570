package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"render-crawler/pkg/crawler"
	"render-crawler/pkg/match"
	"render-crawler/pkg/models"
)

const errMissingParams = "Urls and match must be appear in query"

// crawlQueryParams are the /crawl parameters that shape the result; only these form the cache key
var crawlQueryParams = []string{"urls", "match", "exclude", "maxUrlsToCrawl", "maxConcurrency", "selector"}

type crawlResponse struct {
	Data []models.Page `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Pong!"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{Error: "Not Found"})
}

func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	reqLog := loggerFrom(r.Context(), s.log)
	query := r.URL.Query()

	opts, err := s.crawlOptions(query)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	key := cacheKey(query)
	if body, ok := s.cache.Get(key); ok {
		reqLog.Debug("Serving crawl result from cache")
		w.Header().Set("X-Cache", "HIT")
		writeRaw(w, http.StatusOK, body)
		return
	}

	report, err := crawler.Crawl(r.Context(), opts, s.launch, reqLog)
	if err != nil {
		reqLog.Errorf("Crawl failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if len(report.Failures) > 0 {
		reqLog.Infof("Crawl dropped %d URL(s) after errors", len(report.Failures))
	}

	body, err := json.Marshal(crawlResponse{Data: report.Pages})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	s.cache.Set(key, body)
	w.Header().Set("X-Cache", "MISS")
	writeRaw(w, http.StatusOK, body)
}

// crawlOptions builds CrawlOptions from the query on top of the configured defaults
func (s *Server) crawlOptions(query url.Values) (crawler.CrawlOptions, error) {
	urls := match.SplitPatterns(query.Get("urls"))
	patterns := match.SplitPatterns(query.Get("match"))
	if len(urls) == 0 || len(patterns) == 0 {
		return crawler.CrawlOptions{}, errors.New(errMissingParams)
	}

	opts := s.base
	opts.URLs = urls
	opts.Match = patterns
	opts.Exclude = match.SplitPatterns(query.Get("exclude"))
	opts.MaxConcurrency = s.cfg.ServerMaxConcurrency
	if sel := query.Get("selector"); sel != "" {
		opts.Selector = sel
	}

	var err error
	if opts.MaxUrlsToCrawl, err = intParam(query, "maxUrlsToCrawl", opts.MaxUrlsToCrawl); err != nil {
		return crawler.CrawlOptions{}, err
	}
	if opts.MaxConcurrency, err = intParam(query, "maxConcurrency", opts.MaxConcurrency); err != nil {
		return crawler.CrawlOptions{}, err
	}
	return opts, nil
}

// intParam parses a positive integer parameter, returning def when it is absent
func intParam(query url.Values, name string, def int) (int, error) {
	raw := strings.TrimSpace(query.Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return n, nil
}

// cacheKey canonicalizes the result-shaping parameters so equivalent queries share an entry
func cacheKey(query url.Values) string {
	canonical := url.Values{}
	for _, name := range crawlQueryParams {
		values := make([]string, 0, len(query[name]))
		for _, v := range query[name] {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
		if len(values) > 0 {
			sort.Strings(values)
			canonical[name] = values
		}
	}
	return canonical.Encode()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"encoding response"}`)
	}
	writeRaw(w, status, body)
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
