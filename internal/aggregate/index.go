// internal/aggregate/index.go
package aggregate

import (
	"bytes"
	"errors"
	"html/template"
	"kiln/internal/util"
	"os"
	"path/filepath"
	"strings"
)

// IndexTitle is the title bound into the content index template.
const IndexTitle = "Index Content"

// IndexPage is one link on the content index.
type IndexPage struct {
	Title string
	Href  string
}

// IndexData is what the content index template is executed with.
type IndexData struct {
	Title string
	Pages []IndexPage
}

// ErrNoIndexTemplate is returned when no content index template was loaded.
var ErrNoIndexTemplate = errors.New("content index template not loaded")

// StripBasePath turns a public URL path into a link relative to the output root.
func StripBasePath(href, basePath string) string {
	return strings.TrimPrefix(href, basePath+"/")
}

// WriteContentIndex renders tmpl once with every page and writes
// content-index/index.html under outputDir. Page hrefs are public URL paths;
// basePath is stripped from them first.
func WriteContentIndex(outputDir string, tmpl *template.Template, basePath string, pages []IndexPage) error {
	if tmpl == nil {
		return ErrNoIndexTemplate
	}
	data := IndexData{Title: IndexTitle, Pages: make([]IndexPage, 0, len(pages))}
	for _, p := range pages {
		data.Pages = append(data.Pages, IndexPage{Title: p.Title, Href: StripBasePath(p.Href, basePath)})
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return err
	}

	dir := filepath.Join(outputDir, ContentIndexDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return util.WriteFile(filepath.Join(dir, ContentIndexFile), buf.Bytes())
}
