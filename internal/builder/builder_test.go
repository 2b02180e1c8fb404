package builder

import (
	"bytes"
	"kiln/internal/aggregate"
	"kiln/internal/config"
	kerrors "kiln/internal/errors"
	"kiln/internal/metrics"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBaseTemplate  = `<html><title>{{ .Title }}</title><base href="{{ .BaseHref }}">{{ .Body }}</html>`
	testIndexTemplate = `{{ .Title }}:{{ range .Pages }}<a href="{{ .Href }}">{{ .Title }}</a>{{ end }}`
)

// newTestProject lays out pages and templates under a temp dir and returns a
// config pointing at them.
func newTestProject(t *testing.T, pages map[string]string) config.SiteConfig {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"templates/base.html":          testBaseTemplate,
		"templates/content-index.html": testIndexTemplate,
	}
	for rel, body := range pages {
		files["pages/"+rel] = body
	}
	writeFiles(t, root, files)

	return config.SiteConfig{
		Domain:        "https://example.com/",
		BasePath:      "/docs/",
		ContentDir:    filepath.Join(root, "pages"),
		OutputDir:     filepath.Join(root, "dist"),
		TemplateDir:   filepath.Join(root, "templates"),
		StaticDir:     filepath.Join(root, "static"),
		IndexTemplate: filepath.Join(root, "templates", "content-index.html"),
		Workers:       4,
	}.Normalize()
}

func readOutput(t *testing.T, cfg config.SiteConfig, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func buildOpts() BuildOptions {
	return BuildOptions{Logger: discardLogger()}
}

func TestBuildSite_DigestAndIndex(t *testing.T) {
	cfg := newTestProject(t, map[string]string{
		"a/a.md":     "Alpha page.\n",
		"a/meta.yml": "title: A\ndigest_description: '  First page.  '\n",
		"b/b.md":     "Beta page.\n",
		"b/meta.yml": "title: B\nomit_digest: true\n",
	})

	report, err := BuildSite(cfg, buildOpts())
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.DigestCopies)
	require.Len(t, report.Pages, 2)

	assert.Equal(t, PageResult{
		Source:            filepath.Join(cfg.ContentDir, "a", "a.md"),
		Title:             "A",
		URL:               "/docs/a/a.html",
		DigestPath:        "a/a.md",
		DigestDescription: "First page.",
		DigestCopied:      true,
	}, report.Pages[0])
	assert.False(t, report.Pages[1].DigestCopied)

	assert.Equal(t,
		"# LLM Content Index\n\n## Contents\n\n- [A](https://example.com/a/a.md): First page.\n",
		readOutput(t, cfg, aggregate.DigestFile))
	assert.Equal(t,
		`Index Content:<a href="a/a.html">A</a><a href="b/b.html">B</a>`,
		readOutput(t, cfg, "content-index/index.html"))

	sitemap := readOutput(t, cfg, aggregate.SitemapFile)
	assert.Contains(t, sitemap, "<loc>https://example.com/docs/a/a.html</loc>")
	assert.Contains(t, sitemap, "<loc>https://example.com/docs/b/b.html</loc>")

	assert.Equal(t, "<html><title>A</title><base href=\"../\"><p>Alpha page.</p>\n</html>", readOutput(t, cfg, "a/a.html"))
	assert.Equal(t, "Alpha page.\n", readOutput(t, cfg, "a/a.md"))
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "b", "b.md"))
}

func TestBuildSite_MarkerFiltering(t *testing.T) {
	cfg := newTestProject(t, map[string]string{
		"page.md": "Hello <exclude-from-llm-txt>human</exclude-from-llm-txt> " +
			"<only-in-llm-txt>machine</only-in-llm-txt>world.\n",
	})

	_, err := BuildSite(cfg, buildOpts())
	require.NoError(t, err)

	page := readOutput(t, cfg, "page.html")
	assert.Contains(t, page, "human")
	assert.NotContains(t, page, "machine")
	assert.NotContains(t, page, "llm-txt")

	digestCopy := readOutput(t, cfg, "page.md")
	assert.Equal(t, "Hello  machineworld.\n", digestCopy)
}

func TestBuildSite_SlugAndTitleFallback(t *testing.T) {
	cfg := newTestProject(t, map[string]string{
		"topics/intro/index.md":    "Intro.\n",
		"topics/intro/meta.yml":    "page_slug: quickstart\n",
		"getting-started/index.md": "Start.\n",
	})

	report, err := BuildSite(cfg, buildOpts())
	require.NoError(t, err)
	require.Len(t, report.Pages, 2)

	assert.Equal(t, "Getting Started", report.Pages[0].Title)
	assert.Equal(t, "/docs/getting-started/index.html", report.Pages[0].URL)
	assert.Equal(t, "/docs/quickstart/index.html", report.Pages[1].URL)
	assert.Equal(t, "topics/quickstart/index.md", report.Pages[1].DigestPath)
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "topics", "quickstart", "index.html"))
	assert.NoDirExists(t, filepath.Join(cfg.OutputDir, "topics", "intro"))
}

func TestBuildSite_TemplateFallback(t *testing.T) {
	cfg := newTestProject(t, map[string]string{
		"x/page.md":  "Body.\n",
		"x/meta.yml": "extends: missing.html\n",
	})
	_, err := BuildSite(cfg, buildOpts())
	require.NoError(t, err)
	assert.Equal(t, "<p>Body.</p>\n", readOutput(t, cfg, "x/page.html"))
}

func TestBuild_FailedPageStillInSitemap(t *testing.T) {
	cfg := newTestProject(t, map[string]string{
		"good.md": "Good.\n",
		"bad.md":  "Bad.\n",
	})
	// A non-empty directory where bad.html should go makes the write fail.
	writeFiles(t, cfg.OutputDir, map[string]string{"bad.html/keep": ""})

	report, err := BuildSite(cfg, buildOpts())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.False(t, report.OK())
	require.Len(t, report.Pages, 1)
	assert.Equal(t, "good", report.Pages[0].Title)
	assert.Equal(t, 2, report.SitemapURLs)
	assert.Contains(t, readOutput(t, cfg, aggregate.SitemapFile), "https://example.com/docs/bad.html")
	assert.NotContains(t, readOutput(t, cfg, aggregate.DigestFile), "bad")
}

func TestBuild_DeterministicAcrossWorkerCounts(t *testing.T) {
	pages := map[string]string{}
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		pages[name+"/"+name+".md"] = "Page " + name + ".\n"
	}
	cfg := newTestProject(t, pages)

	build := func(workers int, out string) map[string]string {
		c := cfg
		c.Workers = workers
		c.OutputDir = filepath.Join(filepath.Dir(cfg.OutputDir), out)
		_, err := BuildSite(c, buildOpts())
		require.NoError(t, err)
		got := map[string]string{}
		for _, rel := range []string{aggregate.SitemapFile, aggregate.DigestFile, "content-index/index.html"} {
			got[rel] = readOutput(t, c, rel)
		}
		return got
	}
	assert.Equal(t, build(1, "seq"), build(8, "par"))
}

func TestBuildSite_DigestTitleFromRootMeta(t *testing.T) {
	cfg := newTestProject(t, map[string]string{
		"meta.yml":     "digest_title: Kiln Docs\ndigest_description: Everything about kilns.\n",
		"a.md":         "A.\n",
		"sub/b.md":     "B.\n",
		"sub/meta.yml": "title: B\n",
	})
	_, err := BuildSite(cfg, buildOpts())
	require.NoError(t, err)
	// Root pages share the root meta.yml, so they inherit its digest description.
	assert.Equal(t,
		"# Kiln Docs\n\nEverything about kilns.\n\n## Contents\n\n"+
			"- [a](https://example.com/a.md): Everything about kilns.\n"+
			"- [B](https://example.com/sub/b.md)\n",
		readOutput(t, cfg, aggregate.DigestFile))
}

func TestBuildSite_GenerateDigestDefaultOff(t *testing.T) {
	off := false
	cfg := newTestProject(t, map[string]string{
		"a/a.md":     "A.\n",
		"b/b.md":     "B.\n",
		"b/meta.yml": "generate_digest: true\n",
	})
	cfg.GenerateDigestByDefault = &off

	report, err := BuildSite(cfg, buildOpts())
	require.NoError(t, err)
	assert.Equal(t, 1, report.DigestCopies)
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "a", "a.md"))
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "b", "b.md"))
}

func TestBuildSite_MissingIndexTemplateIsNotFatal(t *testing.T) {
	cfg := newTestProject(t, map[string]string{"a.md": "A.\n"})
	cfg.IndexTemplate = filepath.Join(t.TempDir(), "nope.html")

	report, err := BuildSite(cfg, buildOpts())
	require.NoError(t, err)
	assert.Contains(t, report.ArtifactErrors, aggregate.ContentIndexDir)
	assert.FileExists(t, filepath.Join(cfg.OutputDir, aggregate.SitemapFile))
	assert.FileExists(t, filepath.Join(cfg.OutputDir, aggregate.DigestFile))
}

func TestBuildSite_FatalInitErrors(t *testing.T) {
	cfg := newTestProject(t, map[string]string{"a.md": "A.\n"})

	noTemplates := cfg
	noTemplates.TemplateDir = filepath.Join(t.TempDir(), "missing")
	_, err := BuildSite(noTemplates, buildOpts())
	require.Error(t, err)
	assert.True(t, kerrors.IsFatal(err))
	assert.True(t, kerrors.HasCategory(err, kerrors.CategoryTemplate))

	badSyntaxes := cfg
	badSyntaxes.SyntaxesDir = filepath.Join(t.TempDir(), "missing")
	_, err = BuildSite(badSyntaxes, buildOpts())
	assert.True(t, kerrors.HasCategory(err, kerrors.CategorySyntax))

	assert.NoDirExists(t, cfg.OutputDir)
}

func TestBuildSite_CleanAndStatic(t *testing.T) {
	cfg := newTestProject(t, map[string]string{"a.md": "A.\n"})
	cfg.CleanDestination = true
	writeFiles(t, cfg.OutputDir, map[string]string{"stale.html": "old"})
	writeFiles(t, cfg.StaticDir, map[string]string{
		"css/site.css": "body{}",
		"notes.psd":    "binary",
	})

	report, err := BuildSite(cfg, buildOpts())
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "stale.html"))
	assert.Equal(t, "body{}", readOutput(t, cfg, "css/site.css"))
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "notes.psd"))
}

type countingRecorder struct {
	metrics.NoopRecorder
	pagesOK, pagesFailed, copies, artifactsOK atomic.Int64
}

func (c *countingRecorder) IncPageResult(r metrics.ResultLabel) {
	if r == metrics.ResultSuccess {
		c.pagesOK.Add(1)
		return
	}
	c.pagesFailed.Add(1)
}

func (c *countingRecorder) IncDigestCopy() { c.copies.Add(1) }

func (c *countingRecorder) IncArtifactResult(_ string, r metrics.ResultLabel) {
	if r == metrics.ResultSuccess {
		c.artifactsOK.Add(1)
	}
}

func TestBuildSite_RecordsMetrics(t *testing.T) {
	cfg := newTestProject(t, map[string]string{"a.md": "A.\n", "b.md": "B.\n"})
	rec := &countingRecorder{}

	_, err := BuildSite(cfg, BuildOptions{Logger: discardLogger(), Recorder: rec})
	require.NoError(t, err)
	assert.EqualValues(t, 2, rec.pagesOK.Load())
	assert.EqualValues(t, 0, rec.pagesFailed.Load())
	assert.EqualValues(t, 2, rec.copies.Load())
	assert.EqualValues(t, 3, rec.artifactsOK.Load())
}

func TestDiscoverMarkdown(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"z.md":       "",
		"a/b.md":     "",
		"a/meta.yml": "",
		"a/c.txt":    "",
		"B.MD":       "",
	})
	files, err := DiscoverMarkdown(dir)
	require.NoError(t, err)
	// Matching is case-sensitive: B.MD is not content.
	assert.Equal(t, []string{
		filepath.Join(dir, "a", "b.md"),
		filepath.Join(dir, "z.md"),
	}, files)

	files, err = DiscoverMarkdown(dir, filepath.Join(dir, "a"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "z.md")}, files)

	_, err = DiscoverMarkdown(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestNewSite_WarnsWithoutDomain(t *testing.T) {
	cfg := newTestProject(t, map[string]string{"a.md": "A.\n"})
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	_, err := NewSite(cfg, BuildOptions{Logger: logger})
	require.NoError(t, err)
	assert.NotContains(t, logs.String(), "No domain configured")

	cfg.Domain = ""
	_, err = NewSite(cfg, BuildOptions{Logger: logger})
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "level=WARN msg=\"No domain configured")
}
