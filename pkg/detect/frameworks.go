package detect

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// signature lists the markers identifying a framework; any single marker is enough
type signature struct {
	framework    Framework
	selector     string
	attributes   []string // attribute present on any element
	classes      []string // class on any element; a trailing "*" matches by prefix
	scripts      []string // substring of a script src
	htmlPatterns []string // lower-case substring of the raw document
}

func (sig signature) matches(doc *goquery.Document, lowerHTML string) bool {
	for _, attr := range sig.attributes {
		if doc.Find("[" + attr + "]").Length() > 0 {
			return true
		}
	}
	for _, class := range sig.classes {
		if prefix, ok := strings.CutSuffix(class, "*"); ok {
			if hasClassPrefix(doc, prefix) {
				return true
			}
		} else if doc.Find("." + class).Length() > 0 {
			return true
		}
	}
	for _, pattern := range sig.scripts {
		found := doc.Find("script[src]").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.Contains(s.AttrOr("src", ""), pattern)
		}).Length() > 0
		if found {
			return true
		}
	}
	for _, pattern := range sig.htmlPatterns {
		if strings.Contains(lowerHTML, pattern) {
			return true
		}
	}
	return false
}

func hasClassPrefix(doc *goquery.Document, prefix string) bool {
	return doc.Find("[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		for _, c := range strings.Fields(s.AttrOr("class", "")) {
			if strings.HasPrefix(c, prefix) {
				return true
			}
		}
		return false
	}).Length() > 0
}

// signatures are checked in order; ReadTheDocs precedes Sphinx because RTD themes are built on Sphinx
var signatures = []signature{
	{
		framework:    FrameworkDocusaurus,
		selector:     "article[class*='theme-doc'], .theme-doc-markdown, article.markdown, main article",
		attributes:   []string{"data-docusaurus", "data-docusaurus-root-container"},
		classes:      []string{"docusaurus-wrapper", "theme-doc-markdown"},
		htmlPatterns: []string{"__docusaurus", "docusaurus.io"},
	},
	{
		framework:    FrameworkMkDocs,
		selector:     "article.md-content__inner, .md-content article, .md-content",
		attributes:   []string{"data-md-component", "data-md-color-scheme"},
		classes:      []string{"md-content", "md-main"},
		htmlPatterns: []string{"mkdocs", "material for mkdocs"},
	},
	{
		framework:    FrameworkReadTheDocs,
		selector:     ".rst-content, div[role='main'], .document",
		classes:      []string{"rst-content", "wy-nav-content"},
		scripts:      []string{"readthedocs", "rtd"},
		htmlPatterns: []string{"readthedocs.org", "readthedocs.io", "sphinx-rtd-theme"},
	},
	{
		framework:    FrameworkSphinx,
		selector:     "div.document, div.body, article.bd-article, main.bd-main",
		classes:      []string{"sphinxsidebar", "sphinx-tabs"},
		scripts:      []string{"searchindex.js", "_static/sphinx"},
		htmlPatterns: []string{"created using sphinx", "sphinx-doc.org", "_static/alabaster", "_static/pygments"},
	},
	{
		framework:    FrameworkGitBook,
		selector:     "section.normal.markdown-section, .page-inner section, main[class*='gitbook']",
		classes:      []string{"gitbook*", "markdown-section"},
		htmlPatterns: []string{"gitbook", "gb-page"},
	},
}
