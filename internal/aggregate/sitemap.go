// internal/aggregate/sitemap.go

// Package aggregate turns the collected page results of a build into the
// cross-page artifacts: the sitemap, the content index and the digest.
package aggregate

import (
	"bytes"
	"encoding/xml"
	"kiln/internal/util"
	"path/filepath"
)

// File names of the aggregate artifacts, relative to the output root.
const (
	SitemapFile      = "sitemap.xml"
	ContentIndexDir  = "content-index"
	ContentIndexFile = "index.html"
	DigestFile       = "llms.txt"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc string `xml:"loc"`
}

// RenderSitemap encodes urls, in order and without deduplication, as a sitemap document.
func RenderSitemap(urls []string) ([]byte, error) {
	set := sitemapURLSet{XMLNS: sitemapNS, URLs: make([]sitemapURL, 0, len(urls))}
	for _, u := range urls {
		set.URLs = append(set.URLs, sitemapURL{Loc: u})
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(set); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteSitemap writes sitemap.xml under outputDir.
func WriteSitemap(outputDir string, urls []string) error {
	data, err := RenderSitemap(urls)
	if err != nil {
		return err
	}
	return util.WriteFile(filepath.Join(outputDir, SitemapFile), data)
}
