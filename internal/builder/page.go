// internal/builder/page.go
package builder

import (
	"html/template"
	kerrors "kiln/internal/errors"
	"kiln/internal/logfields"
	"kiln/internal/metrics"
	"kiln/internal/util"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ProcessPage runs one source file through the page pipeline and writes its
// HTML, plus the stripped markdown copy when the page wants one. An error
// means the page was not written and must be left out of every aggregate.
func (s *Site) ProcessPage(src string) (PageResult, error) {
	start := time.Now()
	logger := s.logger.With(logfields.File(src))

	raw, err := os.ReadFile(src)
	if err != nil {
		return PageResult{}, s.pageFailed(src, "read", err)
	}
	text := string(raw)

	m := s.meta.ForFile(src)
	title := ResolveTitle(src, m.Title)

	body, err := s.markdown.Render([]byte(s.markers.ForHTML(text)))
	if err != nil {
		// goldmark only fails on writer errors; keep the page with an empty body.
		logger.Warn("Markdown render failed", logfields.Stage("render"), logfields.Error(err))
	}

	dest, err := ResolveOutput(src, s.cfg.ContentDir, s.cfg.OutputDir, s.cfg.BasePath, m.PageSlug)
	if err != nil {
		return PageResult{}, s.pageFailed(src, "resolve", err)
	}

	data := PageData{
		Title:    title,
		Body:     template.HTML(body),
		BaseHref: util.ComputeBaseHref(dest.RelPath),
		URL:      dest.URL,
		Site:     s.cfg,
		Meta:     m,
	}
	page := s.templates.Render(logger, m.TemplateName(DefaultTemplate), data)

	if err := os.MkdirAll(filepath.Dir(dest.Path), 0755); err != nil {
		return PageResult{}, s.pageFailed(src, "mkdir", err)
	}
	if err := util.WriteFile(dest.Path, []byte(s.markers.ForRenderedHTML(page))); err != nil {
		return PageResult{}, s.pageFailed(src, "write", err)
	}

	result := PageResult{
		Source:            src,
		Title:             title,
		URL:               dest.URL,
		DigestDescription: strings.TrimSpace(m.DigestDescription),
	}

	if m.WantsDigestCopy(s.cfg.DigestByDefault()) {
		copyPath := filepath.Join(filepath.Dir(dest.Path), filepath.Base(src))
		if err := util.WriteFile(copyPath, []byte(s.markers.ForDigest(text))); err != nil {
			logger.Warn("Failed to write digest copy", logfields.Stage("digest"), logfields.Path(copyPath), logfields.Error(err))
		} else if rel, err := filepath.Rel(s.cfg.OutputDir, copyPath); err == nil {
			result.DigestPath = util.URLPath(rel)
			result.DigestCopied = true
			s.recorder.IncDigestCopy()
		}
	}

	s.recorder.ObservePageDuration(time.Since(start))
	s.recorder.IncPageResult(metrics.ResultSuccess)
	logger.Debug("Page written", logfields.Path(dest.Path), logfields.URL(dest.URL))
	return result, nil
}

func (s *Site) pageFailed(src, stage string, err error) error {
	s.recorder.IncPageResult(metrics.ResultFailed)
	ce := kerrors.FileSystemError("page skipped").Wrap(err).
		WithContext("file", src).WithContext("stage", stage).Build()
	s.logger.Error("Page skipped", logfields.File(src), logfields.Stage(stage), logfields.Error(err))
	return ce
}
