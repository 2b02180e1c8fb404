// internal/builder/highlight.go
package builder

import (
	"fmt"
	kerrors "kiln/internal/errors"
	"os"
	"path"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Highlighter renders fenced code through chroma. It is built once before the
// fan-out and only read afterwards.
type Highlighter struct {
	custom  *chroma.LexerRegistry
	style   *chroma.Style
	omit    map[string]struct{}
	enabled bool
}

// NewHighlighter loads the syntax definitions and theme. syntaxesDir may be
// empty; otherwise every *.xml chroma lexer definition in it is registered and
// takes precedence over the built-in lexers. A configured directory that
// cannot be read, or a definition that fails to load, is fatal.
func NewHighlighter(syntaxesDir, theme string, omit []string, enabled bool) (*Highlighter, error) {
	h := &Highlighter{
		custom:  chroma.NewLexerRegistry(),
		style:   styles.Get(theme),
		omit:    make(map[string]struct{}, len(omit)),
		enabled: enabled,
	}
	for _, lang := range omit {
		h.omit[strings.ToLower(strings.TrimSpace(lang))] = struct{}{}
	}
	if syntaxesDir == "" {
		return h, nil
	}

	fsys := os.DirFS(syntaxesDir)
	entries, err := os.ReadDir(syntaxesDir)
	if err != nil {
		return nil, kerrors.SyntaxError("failed to read syntax definitions").
			Wrap(err).WithContext("dir", syntaxesDir).Build()
	}
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".xml" {
			continue
		}
		lexer, err := chroma.NewXMLLexer(fsys, entry.Name())
		if err != nil {
			return nil, kerrors.SyntaxError(fmt.Sprintf("failed to load syntax definition %s", entry.Name())).
				Wrap(err).WithContext("dir", syntaxesDir).Build()
		}
		h.custom.Register(lexer)
	}
	return h, nil
}

// ShouldHighlight reports whether a fence declaring lang is highlighted.
func (h *Highlighter) ShouldHighlight(lang string) bool {
	if !h.enabled {
		return false
	}
	_, omitted := h.omit[strings.ToLower(lang)]
	return !omitted
}

// Lexer returns the best match for a fence token, falling back to plain text.
func (h *Highlighter) Lexer(token string) chroma.Lexer {
	if token != "" {
		if l := h.custom.Get(token); l != nil {
			return l
		}
		if l := lexers.Get(token); l != nil {
			return l
		}
	}
	return lexers.Fallback
}

// Highlight renders code as a self-contained HTML fragment with inline styles.
// One trailing newline from the formatter is trimmed.
func (h *Highlighter) Highlight(code, lang string) (string, error) {
	iterator, err := chroma.Coalesce(h.Lexer(lang)).Tokenise(nil, code)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := chromahtml.New().Format(&b, h.style, iterator); err != nil {
		return "", err
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}
