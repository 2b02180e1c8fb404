// internal/builder/paths.go
package builder

import (
	"fmt"
	"kiln/internal/util"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	indexFile   = "index.md"
	pageExt     = ".html"
	untitled    = "Untitled"
	markdownExt = ".md"
)

// Destination is where a source file is written and how it is addressed.
type Destination struct {
	Path    string // filesystem path under the output root
	RelPath string // Path relative to the output root, slash separated
	URL     string // public URL path, rooted at the base path
}

// ResolveOutput maps src under contentDir to its page under outputDir.
// The relative location is mirrored and the extension becomes .html. For an
// index.md with a slug, the slug replaces the page's directory.
func ResolveOutput(src, contentDir, outputDir, basePath, slug string) (Destination, error) {
	rel, err := contentRel(src, contentDir)
	if err != nil {
		return Destination{}, err
	}

	pageRel := strings.TrimSuffix(rel, filepath.Ext(rel)) + pageExt
	if isIndexFile(src) && slug != "" {
		pageRel = filepath.Join(slugDir(filepath.Dir(rel), slug), "index"+pageExt)
	}

	return Destination{
		Path:    filepath.Join(outputDir, pageRel),
		RelPath: util.URLPath(pageRel),
		URL:     PublicURL(rel, basePath, slug, isIndexFile(src)),
	}, nil
}

// slugDir replaces the last segment of dir with slug. A page at the content
// root has no directory to replace, so the slug goes directly under the root.
func slugDir(dir, slug string) string {
	if dir == "." || dir == "" {
		return slug
	}
	return filepath.Join(filepath.Dir(dir), slug)
}

// PublicURL is the base-path rooted URL of a page given its source path
// relative to the content root. Slugged index pages live at <base>/<slug>/index.html.
func PublicURL(rel, basePath, slug string, isIndex bool) string {
	if isIndex && slug != "" {
		return basePath + "/" + strings.Trim(util.URLPath(slug), "/") + "/index" + pageExt
	}
	return basePath + "/" + util.URLPath(strings.TrimSuffix(rel, filepath.Ext(rel))+pageExt)
}

// SitemapURL is the fully-qualified URL listed in the sitemap for a source
// file. It is derived from the path alone.
func SitemapURL(src, contentDir, domain, basePath string) (string, error) {
	rel, err := contentRel(src, contentDir)
	if err != nil {
		return "", err
	}
	return domain + PublicURL(rel, basePath, "", false), nil
}

// contentRel is src relative to contentDir. Paths outside the content root are rejected.
func contentRel(src, contentDir string) (string, error) {
	rel, err := filepath.Rel(contentDir, src)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the content directory %s", src, contentDir)
	}
	return rel, nil
}

// ResolveTitle picks the page title: the metadata title, then the folder
// name of an index.md, then the file name without extension.
func ResolveTitle(src, metaTitle string) string {
	if metaTitle != "" {
		return metaTitle
	}
	if isIndexFile(src) {
		return FolderNameToTitle(filepath.Base(filepath.Dir(src)))
	}
	base := filepath.Base(src)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		return untitled
	}
	return stem
}

// FolderNameToTitle turns "getting-started" into "Getting Started".
func FolderNameToTitle(name string) string {
	if name == "" || name == "." || name == string(filepath.Separator) {
		return untitled
	}
	parts := strings.Split(name, "-")
	for i, p := range parts {
		r, size := utf8.DecodeRuneInString(p)
		if size == 0 {
			continue
		}
		parts[i] = string(unicode.ToUpper(r)) + p[size:]
	}
	return strings.Join(parts, " ")
}

func isIndexFile(src string) bool {
	return filepath.Base(src) == indexFile
}
