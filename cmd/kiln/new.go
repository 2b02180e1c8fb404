// cmd/kiln/new.go
package main

import (
	"kiln/internal/scaffold"
	"os"
)

// NewCmd groups the scaffolding commands.
type NewCmd struct {
	Site NewSiteCmd `cmd:"" help:"Create a new site skeleton."`
	Page NewPageCmd `cmd:"" help:"Create a page from archetypes/default.md."`
}

type NewSiteCmd struct {
	Dir string `arg:"" help:"Directory to create the site in."`
}

func (n *NewSiteCmd) Run() error {
	return scaffold.CreateNewSite(os.Stdout, n.Dir)
}

type NewPageCmd struct {
	Section string `arg:"" help:"Section directory under the content root."`
	Title   string `arg:"" help:"Page title."`
}

func (n *NewPageCmd) Run(root *CLI) error {
	cfg, err := root.SiteConfig()
	if err != nil {
		return err
	}
	_, err = scaffold.CreateNewPage(os.Stdout, n.Section, n.Title, cfg)
	return err
}
