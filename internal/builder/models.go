// internal/builder/models.go
package builder

import (
	"html/template"
	"kiln/internal/config"
	"kiln/internal/meta"
	"kiln/internal/metrics"
	"log/slog"
	"time"
)

// PageData is the struct passed to page templates.
type PageData struct {
	Title    string
	Body     template.HTML
	BaseHref string
	URL      string
	Site     config.SiteConfig
	Meta     meta.Meta
}

// PageResult is what a processed page contributes to the sitemap, index and
// digest. It is not modified after ProcessPage returns it.
type PageResult struct {
	Source            string
	Title             string
	URL               string // public URL path, rooted at the base path
	DigestPath        string // stripped markdown copy relative to the output root
	DigestDescription string
	DigestCopied      bool
}

// BuildOptions carries collaborators that are not part of site.yaml.
type BuildOptions struct {
	Logger   *slog.Logger
	Recorder metrics.Recorder
}

func (o BuildOptions) withDefaults() BuildOptions {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Recorder == nil {
		o.Recorder = metrics.NoopRecorder{}
	}
	return o
}

// Report summarizes a build.
type Report struct {
	Pages          []PageResult // successful pages, in input order
	Processed      int
	Failed         int
	DigestCopies   int
	SitemapURLs    int
	ArtifactErrors map[string]error
	Duration       time.Duration
}

// OK reports whether every page and every artifact was written.
func (r Report) OK() bool {
	return r.Failed == 0 && len(r.ArtifactErrors) == 0
}
