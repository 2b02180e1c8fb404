// internal/meta/meta.go
package meta

import (
	"kiln/internal/logfields"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the sidecar holding metadata for every page in its directory.
const FileName = "meta.yml"

// Meta holds the optional per-directory overrides. Every field may be absent;
// the zero value is the "no metadata" record.
type Meta struct {
	Title             string   `yaml:"title"`
	Extends           string   `yaml:"extends"`
	GenerateDigest    *bool    `yaml:"generate_digest"`
	OmitDigest        *bool    `yaml:"omit_digest"`
	Description       string   `yaml:"description"`
	DigestDescription string   `yaml:"digest_description"`
	DigestTitle       string   `yaml:"digest_title"`
	Keywords          []string `yaml:"keywords"`
	Tags              []string `yaml:"tags"`
	MergeTagsKeywords *bool    `yaml:"merge_tags_keywords"`
	PageSlug          string   `yaml:"page_slug"`
}

// TemplateName returns the template this page extends, or def.
func (m Meta) TemplateName(def string) string {
	if m.Extends != "" {
		return m.Extends
	}
	return def
}

// WantsDigestCopy decides whether a stripped markdown copy is written.
// omit_digest wins over generate_digest, which wins over the build default.
func (m Meta) WantsDigestCopy(buildDefault bool) bool {
	if m.OmitDigest != nil && *m.OmitDigest {
		return false
	}
	if m.GenerateDigest != nil {
		return *m.GenerateDigest
	}
	return buildDefault
}

// Load reads a metadata file. A missing, unreadable or malformed file yields
// the zero Meta; the reason is logged at debug level when logger is non-nil.
func Load(path string, logger *slog.Logger) Meta {
	data, err := os.ReadFile(path)
	if err != nil {
		if logger != nil && !os.IsNotExist(err) {
			logger.Debug("Metadata unreadable, using defaults", logfields.Path(path), logfields.Error(err))
		}
		return Meta{}
	}
	var m Meta
	if err := yaml.Unmarshal(data, &m); err != nil {
		if logger != nil {
			logger.Warn("Metadata malformed, using defaults", logfields.Path(path), logfields.Error(err))
		}
		return Meta{}
	}
	return m
}

// Resolver finds the sidecar for content files.
type Resolver struct {
	logger *slog.Logger
}

func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// ForFile returns the metadata of the directory containing src.
func (r *Resolver) ForFile(src string) Meta {
	return Load(filepath.Join(filepath.Dir(src), FileName), r.logger)
}
