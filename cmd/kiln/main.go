// cmd/kiln/main.go
package main

import (
	"fmt"
	"kiln/internal/config"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

// CLI is the root command. Site flags are global so build and serve share them.
// Precedence: flag > KILN_* environment > site.yaml > defaults.
type CLI struct {
	Config  string `short:"c" help:"Site configuration file." default:"site.yaml" env:"KILN_CONFIG"`
	Verbose bool   `short:"v" help:"Enable debug logging." env:"KILN_VERBOSE"`

	ContentDir           string `help:"Content root." env:"KILN_CONTENT_DIR"`
	OutputDir            string `short:"o" help:"Output root." env:"KILN_OUTPUT_DIR"`
	TemplateDir          string `help:"Page template directory." env:"KILN_TEMPLATE_DIR"`
	StaticDir            string `help:"Static asset directory." env:"KILN_STATIC_DIR"`
	SyntaxesDir          string `help:"Directory of chroma XML syntax definitions." env:"KILN_SYNTAXES_DIR"`
	IndexTemplate        string `help:"Content index template file." env:"KILN_INDEX_TEMPLATE"`
	Domain               string `help:"Scheme and host for absolute URLs." env:"KILN_DOMAIN"`
	BasePath             string `help:"URL path prefix of the site." env:"KILN_BASE_PATH"`
	Theme                string `help:"Highlighting theme." env:"KILN_THEME"`
	OmitLanguages        string `help:"Comma separated fence languages left unhighlighted." env:"KILN_OMIT_LANGUAGES"`
	NoSyntaxHighlighting bool   `help:"Disable syntax highlighting." env:"KILN_NO_SYNTAX_HIGHLIGHTING"`
	DigestTitle          string `help:"Title of llms.txt." env:"KILN_DIGEST_TITLE"`
	DigestDescription    string `help:"Description of llms.txt." env:"KILN_DIGEST_DESCRIPTION"`
	Workers              int    `short:"j" help:"Pages processed in parallel (default: CPU count)." env:"KILN_WORKERS"`
	Sanitize             bool   `help:"Sanitize rendered page bodies." env:"KILN_SANITIZE"`
	Clean                bool   `help:"Empty the output root before building." env:"KILN_CLEAN"`

	Build BuildCmd `cmd:"" default:"1" help:"Build the site."`
	Serve ServeCmd `cmd:"" help:"Serve the site with rebuild on change and live reload."`
	New   NewCmd   `cmd:"" help:"Create a new site or page."`
}

// AfterApply installs the default logger once flags are parsed.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

func (c *CLI) overrides() config.Overrides {
	return config.Overrides{
		ContentDir:           c.ContentDir,
		OutputDir:            c.OutputDir,
		TemplateDir:          c.TemplateDir,
		StaticDir:            c.StaticDir,
		SyntaxesDir:          c.SyntaxesDir,
		IndexTemplate:        c.IndexTemplate,
		Domain:               c.Domain,
		BasePath:             c.BasePath,
		Theme:                c.Theme,
		DigestTitle:          c.DigestTitle,
		DigestDescription:    c.DigestDescription,
		OmitLanguages:        c.OmitLanguages,
		NoSyntaxHighlighting: c.NoSyntaxHighlighting,
		Workers:              c.Workers,
		Sanitize:             c.Sanitize,
		Clean:                c.Clean,
	}
}

// SiteConfig loads the configuration file and applies flags and environment.
func (c *CLI) SiteConfig() (config.SiteConfig, error) {
	cfg, err := config.LoadSiteConfig(c.Config)
	if err != nil {
		return config.SiteConfig{}, err
	}
	return cfg.Merge(c.overrides()), nil
}

func newParser(cli *CLI, options ...kong.Option) (*kong.Kong, error) {
	options = append([]kong.Option{
		kong.Name("kiln"),
		kong.Description("A static site generator that also writes sitemap.xml, a content index and llms.txt."),
		kong.UsageOnError(),
	}, options...)
	return kong.New(cli, options...)
}

func main() {
	// A missing .env is fine; values already in the environment win.
	_ = godotenv.Load()

	var cli CLI
	parser, err := newParser(&cli)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if err := ctx.Run(&cli); err != nil {
		slog.Error("kiln failed", "error", err)
		os.Exit(1)
	}
}
