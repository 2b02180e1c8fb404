// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	kerrors "kiln/internal/errors"
	"os"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Normalize when a field is left empty.
const (
	DefaultContentDir    = "pages"
	DefaultOutputDir     = "dist"
	DefaultTemplateDir   = "templates"
	DefaultStaticDir     = "static"
	DefaultIndexTemplate = "templates/content-index.html"
	DefaultTheme         = "onedark"
	DefaultDigestTitle   = "LLM Content Index"
)

// DefaultOmitLanguages are fenced languages left unhighlighted unless configured otherwise.
var DefaultOmitLanguages = []string{"mermaid"}

// SiteConfig holds the configuration from the site.yaml file.
// The `yaml` tags are used by the parser to map file keys to struct fields.
type SiteConfig struct {
	Title       string `yaml:"title"`
	Author      string `yaml:"author"`
	Description string `yaml:"description"`

	// Domain is the scheme and host used for fully-qualified URLs, without trailing slash.
	Domain string `yaml:"domain"`
	// BasePath prefixes every public URL path, e.g. "/blog". Empty means site root.
	BasePath string `yaml:"base_path"`

	ContentDir    string `yaml:"content_dir"`
	OutputDir     string `yaml:"output_dir"`
	TemplateDir   string `yaml:"template_dir"`
	StaticDir     string `yaml:"static_dir"`
	SyntaxesDir   string `yaml:"syntaxes_dir"`
	IndexTemplate string `yaml:"index_template"`

	Theme                string   `yaml:"theme"`
	OmitLanguages        []string `yaml:"omit_languages"`
	NoSyntaxHighlighting bool     `yaml:"no_syntax_highlighting"`

	GenerateDigestByDefault *bool  `yaml:"generate_digest_by_default"`
	DigestTitle             string `yaml:"digest_title"`
	DigestDescription       string `yaml:"digest_description"`

	Workers          int   `yaml:"workers"`
	Sanitize         bool  `yaml:"sanitize"`
	RewriteMDLinks   *bool `yaml:"rewrite_md_links"`
	CleanDestination bool  `yaml:"clean_destination"`
}

// LoadSiteConfig reads and normalizes a site.yaml file.
// A missing file is not an error: the defaults are returned instead.
func LoadSiteConfig(path string) (SiteConfig, error) {
	cfg := SiteConfig{}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg.Normalize(), nil
		}
		return SiteConfig{}, kerrors.ConfigError(fmt.Sprintf("could not read config file at %s", path)).Wrap(err).Build()
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return SiteConfig{}, kerrors.ConfigError(fmt.Sprintf("could not parse config file %s", path)).Wrap(err).Build()
	}

	return cfg.Normalize(), nil
}

// Normalize fills defaults and canonicalizes the domain and base path.
func (c SiteConfig) Normalize() SiteConfig {
	c.Domain = strings.TrimRight(strings.TrimSpace(c.Domain), "/")
	c.BasePath = NormalizeBasePath(c.BasePath)
	if c.ContentDir == "" {
		c.ContentDir = DefaultContentDir
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.TemplateDir == "" {
		c.TemplateDir = DefaultTemplateDir
	}
	if c.StaticDir == "" {
		c.StaticDir = DefaultStaticDir
	}
	if c.IndexTemplate == "" {
		c.IndexTemplate = DefaultIndexTemplate
	}
	if c.Theme == "" {
		c.Theme = DefaultTheme
	}
	if c.OmitLanguages == nil {
		c.OmitLanguages = append([]string(nil), DefaultOmitLanguages...)
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	return c
}

// DigestByDefault reports whether pages get a digest copy when their metadata is silent.
func (c SiteConfig) DigestByDefault() bool {
	if c.GenerateDigestByDefault == nil {
		return true
	}
	return *c.GenerateDigestByDefault
}

// RewriteLinks reports whether relative links to .md files are rewritten to .html.
func (c SiteConfig) RewriteLinks() bool {
	if c.RewriteMDLinks == nil {
		return true
	}
	return *c.RewriteMDLinks
}

// NormalizeBasePath returns p with one leading slash and no trailing slash.
// Empty and "/" both mean the site root and normalize to "".
func NormalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}
