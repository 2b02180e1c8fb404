// internal/scaffold/scaffold.go
package scaffold

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"kiln/internal/config"
	"kiln/internal/util"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// ArchetypePath is the template new pages are created from.
const ArchetypePath = "archetypes/default.md"

// CreateNewSite writes a starter project into dir. It refuses to touch a
// directory that already holds a site.yaml.
func CreateNewSite(w io.Writer, dir string) error {
	if _, err := os.Stat(filepath.Join(dir, "site.yaml")); err == nil {
		return fmt.Errorf("%s already contains a site.yaml", dir)
	}
	fmt.Fprintln(w, "Scaffolding new site in:", dir)

	dirs := []string{"pages/guides", "static/css", "templates/partials", "syntaxes", "archetypes"}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", d, err)
		}
	}

	files := map[string]string{
		"site.yaml":                    siteYamlContent,
		"pages/index.md":               indexMdContent,
		"pages/meta.yml":               rootMetaContent,
		"pages/guides/index.md":        guidesMdContent,
		"pages/guides/meta.yml":        guidesMetaContent,
		"static/css/style.css":         staticCSSContent,
		"templates/base.html":          baseHTMLContent,
		"templates/partials/head.html": headHTMLContent,
		"templates/content-index.html": contentIndexHTMLContent,
		ArchetypePath:                  archetypeDefaultMdContent,
	}
	for path, content := range files {
		if err := util.WriteFile(filepath.Join(dir, path), []byte(content)); err != nil {
			return fmt.Errorf("failed to write file %s: %w", path, err)
		}
	}
	fmt.Fprintln(w, "Site scaffolded. You can now:")
	fmt.Fprintln(w, "  cd", dir)
	fmt.Fprintln(w, "  kiln serve")
	return nil
}

// CreateNewPage renders the archetype into <content_dir>/<section>/<slug>.md,
// where slug is derived from title. Existing pages are not overwritten.
func CreateNewPage(w io.Writer, section, title string, site config.SiteConfig) (string, error) {
	slug := Slugify(title)
	if slug == "" {
		return "", errors.New("title does not produce a usable file name")
	}
	path := filepath.Join(site.ContentDir, section, slug+".md")
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}

	tmplBytes, err := os.ReadFile(ArchetypePath)
	if errors.Is(err, os.ErrNotExist) {
		tmplBytes = []byte(archetypeDefaultMdContent)
	} else if err != nil {
		return "", fmt.Errorf("could not read archetype file %s: %w", ArchetypePath, err)
	}

	tmpl, err := template.New("archetype").Parse(string(tmplBytes))
	if err != nil {
		return "", fmt.Errorf("failed to parse archetype file %s: %w", ArchetypePath, err)
	}

	data := struct {
		Title  string
		Author string
	}{
		Title:  title,
		Author: site.Author,
	}

	var output bytes.Buffer
	if err := tmpl.Execute(&output, data); err != nil {
		return "", fmt.Errorf("failed to execute archetype template: %w", err)
	}
	if err := util.WriteFile(path, output.Bytes()); err != nil {
		return "", err
	}

	fmt.Fprintln(w, "Created:", path)
	return path, nil
}

// Slugify lowercases title and joins its words with hyphens.
func Slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

const siteYamlContent = `title: My Kiln Site
author: Your Name
description: Documentation built with kiln.
domain: https://example.com
base_path: /
content_dir: pages
output_dir: dist
template_dir: templates
static_dir: static
syntaxes_dir: syntaxes
index_template: templates/content-index.html
theme: onedark
omit_languages: [mermaid]
generate_digest_by_default: true
`

const indexMdContent = `Welcome to your new site.

<exclude-from-llm-txt>This paragraph is shown on the site but left out of llms.txt.</exclude-from-llm-txt>

<only-in-llm-txt>This paragraph only appears in the llms.txt copy.</only-in-llm-txt>

Read the [guides](how-to/index.html) next.
`

const rootMetaContent = `title: Home
digest_title: My Kiln Site
digest_description: Everything published on this site.
`

const guidesMdContent = "Guides live here.\n\n```go\nfmt.Println(\"hello\")\n```\n"

const guidesMetaContent = `digest_description: How-to guides.
page_slug: how-to
`

const archetypeDefaultMdContent = `# {{.Title}}

Written by {{.Author}}.
`

const staticCSSContent = `body {
  font-family: sans-serif;
  max-width: 700px;
  margin: 2em auto;
  padding: 0 1em;
  line-height: 1.6;
  color: #222;
  background: #fdfdfd;
}
pre { padding: 1em; overflow-x: auto; }
main { margin-bottom: 3em; }
footer { text-align: center; font-size: 0.9em; color: #555; }
`

const baseHTMLContent = `<!DOCTYPE html>
<html>
{{ template "partials/head.html" . }}
<body>
  <header><a href="{{ .BaseHref }}index.html">{{ .Site.Title }}</a></header>
  <main>
    {{ .Body }}
  </main>
  <footer><a href="{{ .BaseHref }}content-index/index.html">All pages</a></footer>
</body>
</html>
`

const headHTMLContent = `<head>
  <meta charset="utf-8">
  <title>{{ .Title }} | {{ .Site.Title }}</title>
  <link rel="stylesheet" href="{{ .BaseHref }}css/style.css">
  <meta name="description" content="{{ if .Meta.Description }}{{ .Meta.Description }}{{ else }}{{ .Site.Description }}{{ end }}">
</head>`

const contentIndexHTMLContent = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>{{ .Title }}</title>
  <link rel="stylesheet" href="../css/style.css">
</head>
<body>
  <h1>{{ .Title }}</h1>
  <ul>
  {{ range .Pages }}<li><a href="../{{ .Href }}">{{ .Title }}</a></li>
  {{ end }}</ul>
</body>
</html>
`
