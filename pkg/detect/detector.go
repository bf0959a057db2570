// Package detect picks a content root for pages built with a known documentation framework.
package detect

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"render-crawler/pkg/cache"
)

// AutoSelector is the content selector value that asks for detection
const AutoSelector = "auto"

// hostCacheSize bounds how many hosts a Detector remembers
const hostCacheSize = 256

// landmarks are tried in order when no framework matches
var landmarks = []string{"main", "article", "[role='main']"}

const fallbackSelector = "body"

// Framework represents a detected documentation framework
type Framework string

const (
	FrameworkUnknown     Framework = "unknown"
	FrameworkDocusaurus  Framework = "docusaurus"
	FrameworkMkDocs      Framework = "mkdocs"
	FrameworkSphinx      Framework = "sphinx"
	FrameworkGitBook     Framework = "gitbook"
	FrameworkReadTheDocs Framework = "readthedocs"
)

// Result is the content root chosen for a page
type Result struct {
	Framework Framework
	Selector  string // CSS selector for the content root
}

// IsAuto reports whether selector requests detection
func IsAuto(selector string) bool {
	return strings.EqualFold(strings.TrimSpace(selector), AutoSelector)
}

// Detect inspects doc alone: a framework signature wins, then the first landmark
// element present, then body
func Detect(doc *goquery.Document) Result {
	if res, ok := detectFramework(doc); ok {
		return res
	}
	for _, sel := range landmarks {
		if doc.Find(sel).Length() > 0 {
			return Result{Framework: FrameworkUnknown, Selector: sel}
		}
	}
	return Result{Framework: FrameworkUnknown, Selector: fallbackSelector}
}

// Detector remembers the framework found per host so later pages of the same
// site skip signature matching. Pages of unknown sites are inspected every time.
type Detector struct {
	hosts cache.Store[string, Result]
	log   *logrus.Entry
}

// NewDetector creates a Detector with an LRU host cache
func NewDetector(log *logrus.Entry) *Detector {
	return &Detector{
		hosts: cache.New[string, Result](cache.Options{MaxSize: hostCacheSize, Strategy: cache.StrategyLRU}),
		log:   log.WithField("component", "detect"),
	}
}

// Detect returns the content root for doc fetched from pageURL
func (d *Detector) Detect(doc *goquery.Document, pageURL string) Result {
	host := ""
	if u, err := url.Parse(pageURL); err == nil {
		host = u.Hostname()
	}

	if host != "" {
		if cached, ok := d.hosts.Get(host); ok {
			return cached
		}
	}

	res := Detect(doc)
	if res.Framework != FrameworkUnknown && host != "" {
		d.hosts.Set(host, res)
		d.log.Infof("Detected framework %s for %s, using selector: %s", res.Framework, host, res.Selector)
	} else {
		d.log.Debugf("No framework detected for %s, using '%s'", pageURL, res.Selector)
	}
	return res
}

func detectFramework(doc *goquery.Document) (Result, bool) {
	raw, _ := doc.Html()
	lower := strings.ToLower(raw)
	for _, sig := range signatures {
		if sig.matches(doc, lower) {
			return Result{Framework: sig.framework, Selector: sig.selector}, true
		}
	}
	return Result{}, false
}
