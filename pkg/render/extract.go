package render

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"render-crawler/pkg/detect"
	"render-crawler/pkg/parse"
	"render-crawler/pkg/utils"
)

// Content output formats
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
)

// blockElements start a new line in extracted text
var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Br: true, atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Fieldset: true, atom.Figcaption: true, atom.Figure: true, atom.Footer: true,
	atom.Form: true, atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true,
	atom.H5: true, atom.H6: true, atom.Header: true, atom.Hr: true, atom.Li: true,
	atom.Main: true, atom.Nav: true, atom.Ol: true, atom.P: true, atom.Pre: true,
	atom.Section: true, atom.Table: true, atom.Tr: true, atom.Ul: true,
}

// Extractor turns rendered HTML into page content
type Extractor struct {
	Format   string           // text or markdown
	Detector *detect.Detector // Resolves the "auto" include selector; nil inspects every page afresh
}

// ExtractContent extracts with a one-off Extractor; see Extractor.Extract
func ExtractContent(rawHTML, pageURL, include, exclude, format string) (string, error) {
	return Extractor{Format: format}.Extract(rawHTML, pageURL, include, exclude)
}

// Extract returns the content of include within rawHTML with every exclude match removed
// include is CSS, XPath when it starts with "/", or "auto" to detect the content root;
// empty include and exclude fall back to the defaults
// A missing include element yields "" with no error
func (x Extractor) Extract(rawHTML, pageURL, include, exclude string) (string, error) {
	if strings.TrimSpace(include) == "" {
		include = DefaultContentSelector
	}
	if strings.TrimSpace(exclude) == "" {
		exclude = DefaultIgnoreSelector
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("%w: parsing HTML of '%s': %w", utils.ErrParsing, pageURL, err)
	}

	var root *goquery.Selection
	if detect.IsAuto(include) {
		var detected detect.Result
		if x.Detector != nil {
			detected = x.Detector.Detect(doc, pageURL)
		} else {
			detected = detect.Detect(doc)
		}
		root = doc.Find(detected.Selector).First()
		if root.Length() == 0 {
			root = doc.Find(DefaultContentSelector).First()
		}
	} else if IsXPath(include) {
		node, qErr := htmlquery.Query(doc.Nodes[0], include)
		if qErr != nil {
			return "", fmt.Errorf("%w: xpath '%s': %w", utils.ErrInvalidPattern, include, qErr)
		}
		if node == nil || node.Type != html.ElementNode {
			return "", nil
		}
		root = doc.FindNodes(node)
	} else {
		root = doc.Find(include).First()
	}
	if root.Length() == 0 {
		return "", nil
	}

	root.Find(exclude).Remove()

	switch x.Format {
	case FormatMarkdown:
		fragment, htmlErr := goquery.OuterHtml(root)
		if htmlErr != nil {
			return "", fmt.Errorf("%w: rendering '%s': %w", utils.ErrExtraction, pageURL, htmlErr)
		}
		domain := ""
		if u, parseErr := url.Parse(pageURL); parseErr == nil {
			domain = u.Host
		}
		converter := md.NewConverter(domain, true, nil)
		markdown, convErr := converter.ConvertString(fragment)
		if convErr != nil {
			return "", fmt.Errorf("%w: converting '%s' to markdown: %w", utils.ErrExtraction, pageURL, convErr)
		}
		return strings.TrimSpace(markdown), nil
	default:
		var sb strings.Builder
		for _, n := range root.Nodes {
			writeText(n, &sb)
		}
		return cleanText(sb.String()), nil
	}
}

// writeText appends the visible text below n, breaking lines at block elements
func writeText(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		if n.DataAtom == atom.Script || n.DataAtom == atom.Style || n.DataAtom == atom.Noscript {
			return
		}
	}
	block := n.Type == html.ElementNode && blockElements[n.DataAtom]
	if block {
		sb.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(c, sb)
	}
	if block {
		sb.WriteByte('\n')
	}
}

// cleanText collapses runs of whitespace within lines and drops empty lines
func cleanText(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if collapsed := strings.Join(strings.Fields(line), " "); collapsed != "" {
			out = append(out, collapsed)
		}
	}
	return strings.Join(out, "\n")
}

// documentLinks returns the href of every anchor resolved against base
// Hrefs that do not parse are skipped; scheme filtering is left to the frontier
func documentLinks(doc *goquery.Document, base *url.URL) []string {
	links := make([]string, 0)
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		links = append(links, base.ResolveReference(ref).String())
	})
	return links
}

// documentTitle returns the trimmed text of the first <title>
func documentTitle(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// FileURLs returns the page links whose URL matches extensionPattern, resolved against base
// Only http(s) links are returned, normalized and in page order
func FileURLs(ctx context.Context, s Session, extensionPattern, base string) ([]string, error) {
	re, err := regexp.Compile(extensionPattern)
	if err != nil {
		return nil, fmt.Errorf("%w: file pattern '%s': %w", utils.ErrInvalidPattern, extensionPattern, err)
	}
	if base == "" {
		base = s.URL()
	}

	links, err := s.Links(ctx)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0)
	seen := make(map[string]bool)
	for _, link := range links {
		if !re.MatchString(link) {
			continue
		}
		resolved, resolveErr := parse.Resolve(base, link)
		if resolveErr != nil || seen[resolved] {
			continue
		}
		seen[resolved] = true
		files = append(files, resolved)
	}
	return files, nil
}
