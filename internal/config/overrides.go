// internal/config/overrides.go
package config

import "strings"

// Overrides carries values from flags and the environment. Empty strings and
// zero numbers mean "not set"; booleans can only switch a feature on.
type Overrides struct {
	ContentDir           string
	OutputDir            string
	TemplateDir          string
	StaticDir            string
	SyntaxesDir          string
	IndexTemplate        string
	Domain               string
	BasePath             string
	Theme                string
	DigestTitle          string
	DigestDescription    string
	OmitLanguages        string // comma separated
	NoSyntaxHighlighting bool
	Workers              int
	Sanitize             bool
	Clean                bool
}

// Merge applies o on top of c and re-normalizes the result.
func (c SiteConfig) Merge(o Overrides) SiteConfig {
	setString(&c.ContentDir, o.ContentDir)
	setString(&c.OutputDir, o.OutputDir)
	setString(&c.TemplateDir, o.TemplateDir)
	setString(&c.StaticDir, o.StaticDir)
	setString(&c.SyntaxesDir, o.SyntaxesDir)
	setString(&c.IndexTemplate, o.IndexTemplate)
	setString(&c.Domain, o.Domain)
	setString(&c.BasePath, o.BasePath)
	setString(&c.Theme, o.Theme)
	setString(&c.DigestTitle, o.DigestTitle)
	setString(&c.DigestDescription, o.DigestDescription)
	if o.OmitLanguages != "" {
		c.OmitLanguages = SplitList(o.OmitLanguages)
	}
	if o.Workers > 0 {
		c.Workers = o.Workers
	}
	c.NoSyntaxHighlighting = c.NoSyntaxHighlighting || o.NoSyntaxHighlighting
	c.Sanitize = c.Sanitize || o.Sanitize
	c.CleanDestination = c.CleanDestination || o.Clean
	return c.Normalize()
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
