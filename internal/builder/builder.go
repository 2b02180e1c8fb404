// internal/builder/builder.go
package builder

import (
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"kiln/internal/aggregate"
	"kiln/internal/config"
	kerrors "kiln/internal/errors"
	"kiln/internal/logfields"
	"kiln/internal/markers"
	"kiln/internal/meta"
	"kiln/internal/metrics"
	"kiln/internal/util"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Site holds everything shared by the pages of one build. It is assembled by
// NewSite and only read afterwards, so ProcessPage may run concurrently.
type Site struct {
	cfg      config.SiteConfig
	logger   *slog.Logger
	recorder metrics.Recorder

	meta      *meta.Resolver
	markers   *markers.Filter
	markdown  *MarkdownRenderer
	templates *TemplateSet

	indexTmpl *template.Template
	indexErr  error

	digestTitle       string
	digestDescription string
}

// NewSite loads the syntax definitions, the page templates and the content
// index template. Failures loading syntaxes or page templates are fatal and
// returned before any page is touched.
func NewSite(cfg config.SiteConfig, opts BuildOptions) (*Site, error) {
	opts = opts.withDefaults()
	cfg = cfg.Normalize()
	if cfg.Domain == "" {
		opts.Logger.Warn("No domain configured: sitemap and llms.txt links will not be absolute URLs")
	}

	hl, err := NewHighlighter(cfg.SyntaxesDir, cfg.Theme, cfg.OmitLanguages, !cfg.NoSyntaxHighlighting)
	if err != nil {
		return nil, err
	}
	templates, err := LoadTemplates(cfg.TemplateDir, opts.Logger)
	if err != nil {
		return nil, err
	}

	s := &Site{
		cfg:       cfg,
		logger:    opts.Logger,
		recorder:  opts.Recorder,
		meta:      meta.NewResolver(opts.Logger),
		markers:   markers.Default(),
		markdown:  NewMarkdownRenderer(hl, cfg.RewriteLinks(), cfg.Sanitize),
		templates: templates,
	}
	// Cloning the set is only allowed before any template has executed.
	s.indexTmpl, s.indexErr = templates.LoadIndexTemplate(cfg.IndexTemplate)
	if s.indexErr != nil {
		s.logger.Warn("Content index template unavailable", logfields.Path(cfg.IndexTemplate), logfields.Error(s.indexErr))
	}

	rootMeta := meta.Load(filepath.Join(cfg.ContentDir, meta.FileName), opts.Logger)
	s.digestTitle = firstNonEmpty(cfg.DigestTitle, rootMeta.DigestTitle, config.DefaultDigestTitle)
	s.digestDescription = firstNonEmpty(cfg.DigestDescription, rootMeta.DigestDescription)
	return s, nil
}

// Config returns the normalized configuration the site was built with.
func (s *Site) Config() config.SiteConfig { return s.cfg }

// Build processes files concurrently and then writes the sitemap, content
// index and digest. A failing page is logged and left out; a failing artifact
// is logged and recorded in the report without stopping the others.
func (s *Site) Build(files []string) Report {
	start := time.Now()
	s.recorder.SetWorkers(s.cfg.Workers)
	s.logger.Info("Building pages", logfields.Count(len(files)), logfields.Workers(s.cfg.Workers))

	slots := make([]*PageResult, len(files))
	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for i, src := range files {
		i, src := i, src
		g.Go(func() error {
			if r, err := s.ProcessPage(src); err == nil {
				slots[i] = &r
			}
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Processed: len(files), ArtifactErrors: map[string]error{}}
	for _, r := range slots {
		if r == nil {
			report.Failed++
			continue
		}
		report.Pages = append(report.Pages, *r)
		if r.DigestCopied {
			report.DigestCopies++
		}
	}

	urls := make([]string, 0, len(files))
	for _, src := range files {
		u, err := SitemapURL(src, s.cfg.ContentDir, s.cfg.Domain, s.cfg.BasePath)
		if err != nil {
			s.logger.Warn("No sitemap URL for file", logfields.File(src), logfields.Error(err))
			continue
		}
		urls = append(urls, u)
	}
	report.SitemapURLs = len(urls)

	s.writeArtifact(&report, aggregate.SitemapFile, func() error {
		return aggregate.WriteSitemap(s.cfg.OutputDir, urls)
	})
	s.writeArtifact(&report, aggregate.ContentIndexDir, func() error {
		if s.indexErr != nil {
			return s.indexErr
		}
		pages := make([]aggregate.IndexPage, 0, len(report.Pages))
		for _, p := range report.Pages {
			pages = append(pages, aggregate.IndexPage{Title: p.Title, Href: p.URL})
		}
		return aggregate.WriteContentIndex(s.cfg.OutputDir, s.indexTmpl, s.cfg.BasePath, pages)
	})
	s.writeArtifact(&report, aggregate.DigestFile, func() error {
		d := aggregate.Digest{
			Title:       s.digestTitle,
			Description: s.digestDescription,
			Domain:      s.cfg.Domain,
		}
		for _, p := range report.Pages {
			d.Entries = append(d.Entries, aggregate.DigestEntry{
				Title:       p.Title,
				Path:        p.DigestPath,
				Description: p.DigestDescription,
				Copied:      p.DigestCopied,
			})
		}
		return aggregate.WriteDigest(s.cfg.OutputDir, d)
	})

	report.Duration = time.Since(start)
	s.recorder.ObserveBuildDuration(report.Duration)
	s.logger.Info("Build finished",
		logfields.Count(len(report.Pages)),
		slog.Int("failed", report.Failed),
		logfields.DurationMS(float64(report.Duration.Microseconds())/1000))
	return report
}

func (s *Site) writeArtifact(report *Report, name string, write func() error) {
	err := write()
	s.recorder.IncArtifactResult(name, metrics.Result(err == nil))
	if err != nil {
		report.ArtifactErrors[name] = kerrors.BuildError("artifact not written").
			Wrap(err).WithContext("artifact", name).Build()
		s.logger.Error("Failed to write artifact", logfields.Artifact(name), logfields.Error(err))
	}
}

// BuildSite runs a complete build: it prepares the output directory,
// discovers the markdown under the content root, builds every page and the
// aggregate artifacts, then copies static assets. The returned error is only
// set for failures that prevented the build from starting.
func BuildSite(cfg config.SiteConfig, opts BuildOptions) (Report, error) {
	opts = opts.withDefaults()
	site, err := NewSite(cfg, opts)
	if err != nil {
		return Report{}, err
	}
	cfg = site.Config()

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return Report{}, kerrors.FileSystemError("failed to create output directory").Fatal().
			Wrap(err).WithContext("dir", cfg.OutputDir).Build()
	}
	if cfg.CleanDestination {
		opts.Logger.Info("Cleaning destination directory", logfields.Path(cfg.OutputDir))
		if err := cleanDir(cfg.OutputDir); err != nil {
			return Report{}, kerrors.FileSystemError("failed to clean output directory").Fatal().
				Wrap(err).WithContext("dir", cfg.OutputDir).Build()
		}
	}

	// The output root may sit inside the content root; its digest copies are not content.
	files, err := DiscoverMarkdown(cfg.ContentDir, cfg.OutputDir)
	if err != nil {
		return Report{}, kerrors.FileSystemError("failed to list content").Fatal().
			Wrap(err).WithContext("dir", cfg.ContentDir).Build()
	}

	report := site.Build(files)

	if err := copyStaticAssets(cfg.StaticDir, cfg.OutputDir); err != nil {
		report.ArtifactErrors["static"] = err
		opts.Logger.Error("Failed to copy static assets", logfields.Path(cfg.StaticDir), logfields.Error(err))
	}
	return report, nil
}

// DiscoverMarkdown returns every .md file under contentDir, sorted, skipping
// the directories in skip.
func DiscoverMarkdown(contentDir string, skip ...string) ([]string, error) {
	skipped := make(map[string]bool, len(skip))
	for _, dir := range skip {
		skipped[filepath.Clean(dir)] = true
	}
	var files []string
	err := filepath.WalkDir(contentDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != contentDir && skipped[filepath.Clean(path)] {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(d.Name()) == markdownExt {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func cleanDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// copyStaticAssets copies files from the static directory to the output directory.
// A missing static directory is not an error.
func copyStaticAssets(staticDir, outputDir string) error {
	if _, err := os.Stat(staticDir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	allowedExts := map[string]bool{
		".css": true, ".js": true, ".txt": true, ".svg": true, ".ico": true,
		".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
		".woff": true, ".woff2": true,
	}
	return filepath.WalkDir(staticDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !allowedExts[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}
		rel, err := filepath.Rel(staticDir, path)
		if err != nil {
			return err
		}
		dest := filepath.Join(outputDir, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		return util.WriteFile(dest, data)
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
