// internal/builder/templates.go
package builder

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	kerrors "kiln/internal/errors"
	"kiln/internal/logfields"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DefaultTemplate is used when a page's metadata does not name one.
const DefaultTemplate = "base.html"

// TemplateSet is the compiled page templates. Every file under the template
// directory is a template named by its slash-separated relative path, so
// templates can include each other with {{ template "partials/nav.html" . }}.
// The set is complete before the first page renders and only executed afterwards.
type TemplateSet struct {
	dir  string
	root *template.Template
}

// LoadTemplates parses every file under templateDir. A missing or unreadable
// directory is fatal. A single file that does not parse is skipped with a
// warning, so pages extending it fall back to their body.
func LoadTemplates(templateDir string, logger *slog.Logger) (*TemplateSet, error) {
	if logger == nil {
		logger = slog.Default()
	}
	info, err := os.Stat(templateDir)
	if err != nil {
		return nil, kerrors.TemplateError("failed to open template directory").Fatal().
			Wrap(err).WithContext("dir", templateDir).Build()
	}
	if !info.IsDir() {
		return nil, kerrors.TemplateError(fmt.Sprintf("template path %s is not a directory", templateDir)).Fatal().Build()
	}

	root := template.New("")
	err = filepath.WalkDir(templateDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(templateDir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		// Parse standalone first: a failed Parse would leave a broken entry in the shared set.
		if _, err := template.New(name).Parse(string(src)); err != nil {
			logger.Warn("Skipping template that does not parse", logfields.Template(name), logfields.Error(err))
			return nil
		}
		if _, err := root.New(name).Parse(string(src)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, kerrors.TemplateError("failed to load templates").Fatal().
			Wrap(err).WithContext("dir", templateDir).Build()
	}
	return &TemplateSet{dir: templateDir, root: root}, nil
}

// Lookup returns the named template or nil.
func (ts *TemplateSet) Lookup(name string) *template.Template {
	return ts.root.Lookup(name)
}

// Render executes the named template with data. A missing template or an
// execution error is logged and the body HTML is returned on its own.
func (ts *TemplateSet) Render(logger *slog.Logger, name string, data PageData) string {
	tmpl := ts.root.Lookup(name)
	if tmpl == nil {
		logger.Warn("Template not found, rendering body only", logfields.Template(name))
		return string(data.Body)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		logger.Warn("Template render error, rendering body only", logfields.Template(name), logfields.Error(err))
		return string(data.Body)
	}
	return buf.String()
}

// LoadIndexTemplate returns the content index template at path. A file inside
// the template directory is already part of the set; any other file is parsed
// into a clone of the set so it can still use the page partials.
// It must be called before any page template executes.
func (ts *TemplateSet) LoadIndexTemplate(path string) (*template.Template, error) {
	if rel, err := filepath.Rel(ts.dir, path); err == nil && !strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel) {
		if tmpl := ts.root.Lookup(filepath.ToSlash(rel)); tmpl != nil {
			return tmpl, nil
		}
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, kerrors.TemplateError("failed to read content index template").
			Wrap(err).WithContext("path", path).Build()
	}
	clone, err := ts.root.Clone()
	if err != nil {
		return nil, kerrors.TemplateError("failed to clone template set").Wrap(err).Build()
	}
	tmpl, err := clone.New(indexTemplateName).Parse(string(src))
	if err != nil {
		return nil, kerrors.TemplateError("failed to parse content index template").
			Wrap(err).WithContext("path", path).Build()
	}
	return tmpl, nil
}

const indexTemplateName = "kiln:content-index"
