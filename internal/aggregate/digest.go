// internal/aggregate/digest.go
package aggregate

import (
	"fmt"
	"kiln/internal/util"
	"path/filepath"
	"strings"
)

// DigestEntry describes one page for the digest. Entries whose copy was not
// written are skipped.
type DigestEntry struct {
	Title       string
	Path        string // stripped markdown copy, relative to the output root
	Description string
	Copied      bool
}

// Digest is the input of the digest document.
type Digest struct {
	Title       string
	Description string
	Domain      string
	Entries     []DigestEntry
}

// Render produces the digest text: a title header, an optional description,
// a Contents heading and one link per copied page.
func (d Digest) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", d.Title)
	if desc := strings.TrimSpace(d.Description); desc != "" {
		fmt.Fprintf(&b, "%s\n\n", desc)
	}
	b.WriteString("## Contents\n\n")
	domain := strings.TrimRight(d.Domain, "/")
	for _, e := range d.Entries {
		if !e.Copied || e.Path == "" {
			continue
		}
		fmt.Fprintf(&b, "- [%s](%s/%s)", e.Title, domain, strings.TrimPrefix(e.Path, "/"))
		if desc := strings.TrimSpace(e.Description); desc != "" {
			fmt.Fprintf(&b, ": %s", desc)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// WriteDigest writes llms.txt under outputDir.
func WriteDigest(outputDir string, d Digest) error {
	return util.WriteFile(filepath.Join(outputDir, DigestFile), []byte(d.Render()))
}
