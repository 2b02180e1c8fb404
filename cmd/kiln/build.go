// cmd/kiln/build.go
package main

import (
	"fmt"
	"kiln/internal/builder"
	"log/slog"
	"os"
	"sort"
	"time"
)

// BuildCmd implements 'kiln build'.
type BuildCmd struct {
	Strict bool `help:"Exit non-zero when a page or artifact failed." env:"KILN_STRICT"`
}

func (b *BuildCmd) Run(root *CLI) error {
	cfg, err := root.SiteConfig()
	if err != nil {
		return err
	}
	fmt.Println("--- Building site ---")
	report, err := builder.BuildSite(cfg, builder.BuildOptions{Logger: slog.Default()})
	if err != nil {
		return fmt.Errorf("site generation failed: %w", err)
	}
	printReport(report)
	if b.Strict && !report.OK() {
		return fmt.Errorf("%d pages and %d artifacts failed", report.Failed, len(report.ArtifactErrors))
	}
	return nil
}

func printReport(r builder.Report) {
	fmt.Printf("Pages: %d generated, %d failed, %d digest copies (%s).\n",
		len(r.Pages), r.Failed, r.DigestCopies, r.Duration.Round(time.Millisecond))
	names := make([]string, 0, len(r.ArtifactErrors))
	for name := range r.ArtifactErrors {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "Artifact %s not written: %v\n", name, r.ArtifactErrors[name])
	}
	if r.OK() {
		fmt.Println("Build successful.")
	}
}
