// Package match filters discovered links with glob patterns.
//
// Patterns use '/' as the separator: "*" stays within one path segment and
// "**" spans any number of segments, so "https://ex.com/docs/**" matches every
// page below /docs.
package match

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"render-crawler/pkg/utils"
)

// Matcher decides whether a URL may be followed
type Matcher struct {
	include []glob.Glob
	exclude []glob.Glob
}

// New compiles include and exclude patterns; blank patterns are ignored
// With no include patterns every URL not excluded is allowed
func New(include, exclude []string) (*Matcher, error) {
	inc, err := compileAll(include)
	if err != nil {
		return nil, err
	}
	exc, err := compileAll(exclude)
	if err != nil {
		return nil, err
	}
	return &Matcher{include: inc, exclude: exc}, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("%w: '%s': %w", utils.ErrInvalidPattern, p, err)
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

// Allow reports whether u matches an include pattern (if any) and no exclude pattern
func (m *Matcher) Allow(u string) bool {
	if m == nil {
		return true
	}
	for _, g := range m.exclude {
		if g.Match(u) {
			return false
		}
	}
	if len(m.include) == 0 {
		return true
	}
	for _, g := range m.include {
		if g.Match(u) {
			return true
		}
	}
	return false
}

// Filter returns the URLs Allow accepts, in order
func (m *Matcher) Filter(urls []string) []string {
	kept := make([]string, 0, len(urls))
	for _, u := range urls {
		if m.Allow(u) {
			kept = append(kept, u)
		}
	}
	return kept
}

// SplitPatterns splits a comma separated parameter into trimmed, non-empty patterns
// Brace groups such as "{a,b}" are kept intact
func SplitPatterns(raw string) []string {
	var (
		patterns []string
		current  strings.Builder
		depth    int
	)
	flush := func() {
		if p := strings.TrimSpace(current.String()); p != "" {
			patterns = append(patterns, p)
		}
		current.Reset()
	}
	for _, r := range raw {
		switch {
		case r == '{':
			depth++
		case r == '}' && depth > 0:
			depth--
		case r == ',' && depth == 0:
			flush()
			continue
		}
		current.WriteRune(r)
	}
	flush()
	return patterns
}
