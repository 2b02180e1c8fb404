// internal/markers/markers.go

// Package markers strips inline content markers from page sources.
//
// Two markers are recognized. Content wrapped in ExcludeFromDigest is shown on
// the site but never reaches the digest copy; content wrapped in OnlyInDigest
// reaches the digest copy only. Both are HTML-like tags, may carry attributes,
// and are matched case-insensitively across line breaks. Unterminated tags are
// left untouched, and nested tags of the same name are not balanced: the first
// closing tag ends the span.
package markers

import (
	"fmt"
	"regexp"
	"sync"
)

const (
	ExcludeFromDigest = "exclude-from-llm-txt"
	OnlyInDigest      = "only-in-llm-txt"
)

type patterns struct {
	span  *regexp.Regexp
	open  *regexp.Regexp
	close *regexp.Regexp
}

func compile(tag string) *patterns {
	q := regexp.QuoteMeta(tag)
	return &patterns{
		span:  regexp.MustCompile(fmt.Sprintf(`(?is)<%s[^>]*?>.*?</%s>`, q, q)),
		open:  regexp.MustCompile(fmt.Sprintf(`(?i)<%s[^>]*?>`, q)),
		close: regexp.MustCompile(fmt.Sprintf(`(?i)</%s>`, q)),
	}
}

// Filter holds compiled patterns keyed by tag name. The known markers are
// compiled up front; other names are compiled once on first use.
// A Filter is safe for concurrent use.
type Filter struct {
	mu    sync.RWMutex
	cache map[string]*patterns
}

// NewFilter returns a Filter with patterns for tags pre-compiled.
func NewFilter(tags ...string) *Filter {
	f := &Filter{cache: make(map[string]*patterns, len(tags))}
	for _, tag := range tags {
		f.cache[tag] = compile(tag)
	}
	return f
}

var defaultFilter = NewFilter(ExcludeFromDigest, OnlyInDigest)

// Default returns the shared filter with both markers pre-compiled.
func Default() *Filter { return defaultFilter }

func (f *Filter) lookup(tag string) *patterns {
	f.mu.RLock()
	p, ok := f.cache[tag]
	f.mu.RUnlock()
	if ok {
		return p
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.cache[tag]; ok {
		return p
	}
	p = compile(tag)
	f.cache[tag] = p
	return p
}

// RemoveTagAndContents deletes every span from an opening tag through its
// closing tag, inclusive.
func (f *Filter) RemoveTagAndContents(text, tag string) string {
	return f.lookup(tag).span.ReplaceAllLiteralString(text, "")
}

// RemoveTagOnly deletes the opening and closing tags and keeps what they enclose.
func (f *Filter) RemoveTagOnly(text, tag string) string {
	p := f.lookup(tag)
	text = p.open.ReplaceAllLiteralString(text, "")
	return p.close.ReplaceAllLiteralString(text, "")
}

// ForHTML prepares raw markdown for the site: exclude-from-digest content is
// kept without its markers and only-in-digest spans are dropped.
func (f *Filter) ForHTML(raw string) string {
	return f.RemoveTagAndContents(f.RemoveTagOnly(raw, ExcludeFromDigest), OnlyInDigest)
}

// ForRenderedHTML drops only-in-digest spans from a fully templated page.
// Templates and partials can carry marker text that never went through ForHTML.
func (f *Filter) ForRenderedHTML(html string) string {
	return f.RemoveTagAndContents(html, OnlyInDigest)
}

// ForDigest prepares raw markdown for the stripped digest copy:
// exclude-from-digest spans are dropped and only-in-digest content is unwrapped.
func (f *Filter) ForDigest(raw string) string {
	return f.RemoveTagOnly(f.RemoveTagAndContents(raw, ExcludeFromDigest), OnlyInDigest)
}

// RemoveTagAndContents applies the default filter.
func RemoveTagAndContents(text, tag string) string {
	return defaultFilter.RemoveTagAndContents(text, tag)
}

// RemoveTagOnly applies the default filter.
func RemoveTagOnly(text, tag string) string {
	return defaultFilter.RemoveTagOnly(text, tag)
}
