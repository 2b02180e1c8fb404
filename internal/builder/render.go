// internal/builder/render.go
package builder

import (
	"bytes"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// MarkdownRenderer converts filtered markdown into page body HTML.
// It is safe for concurrent use once built.
type MarkdownRenderer struct {
	md        goldmark.Markdown
	sanitizer *bluemonday.Policy
}

// NewMarkdownRenderer builds a goldmark pipeline with tables, footnotes,
// strikethrough and task lists. Fenced code blocks go through hl.
func NewMarkdownRenderer(hl *Highlighter, rewriteLinks, sanitize bool) *MarkdownRenderer {
	parserOpts := []parser.Option{parser.WithAutoHeadingID()}
	if rewriteLinks {
		parserOpts = append(parserOpts, parser.WithASTTransformers(
			util.Prioritized(newMDLinkTransformer(), 100),
		))
	}
	r := &MarkdownRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Footnote),
			goldmark.WithParserOptions(parserOpts...),
			goldmark.WithRendererOptions(
				// Raw HTML in content, including inline markers, passes through.
				html.WithUnsafe(),
				renderer.WithNodeRenderers(util.Prioritized(&codeBlockRenderer{hl: hl}, 100)),
			),
		),
	}
	if sanitize {
		r.sanitizer = newSanitizer()
	}
	return r
}

// Render converts source to HTML.
func (r *MarkdownRenderer) Render(source []byte) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(source, &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown with goldmark: %w", err)
	}
	if r.sanitizer != nil {
		return string(r.sanitizer.SanitizeBytes(buf.Bytes())), nil
	}
	return buf.String(), nil
}

// newSanitizer is the UGC policy plus the inline styles the highlighter emits.
func newSanitizer() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("style").OnElements("pre", "code", "span")
	p.AllowAttrs("tabindex").OnElements("pre")
	return p
}

// codeBlockRenderer intercepts fenced code blocks.
type codeBlockRenderer struct {
	hl *Highlighter
}

func (r *codeBlockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCodeBlock)
}

func (r *codeBlockRenderer) renderFencedCodeBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)
	lang := string(n.Language(source))

	var code bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		code.Write(line.Value(source))
	}

	if r.hl.ShouldHighlight(lang) {
		if out, err := r.hl.Highlight(code.String(), lang); err == nil {
			_, _ = w.WriteString(out)
			return ast.WalkSkipChildren, nil
		}
	}
	writePlainCode(w, lang, code.Bytes())
	return ast.WalkSkipChildren, nil
}

// writePlainCode emits the same markup goldmark uses for an unhighlighted fence.
func writePlainCode(w util.BufWriter, lang string, code []byte) {
	_, _ = w.WriteString("<pre><code")
	if lang != "" {
		_, _ = w.WriteString(` class="language-`)
		_, _ = w.Write(util.EscapeHTML([]byte(lang)))
		_, _ = w.WriteString(`"`)
	}
	_ = w.WriteByte('>')
	_, _ = w.Write(util.EscapeHTML(code))
	_, _ = w.WriteString("</code></pre>\n")
}
