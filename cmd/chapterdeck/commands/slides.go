package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/livetemplate/chapterdeck/internal/library"
)

func newSlidesCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "slides [directory]",
		Short: "List articles and their chapter keys",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := contentDir(args)
			if err != nil {
				return err
			}
			cfg, err := opts.loadConfig(dir)
			if err != nil {
				return err
			}

			lib := library.New(dir, cfg.Ignore, nil)
			if err := lib.Discover(); err != nil {
				return fmt.Errorf("failed to discover articles: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, article := range lib.All() {
				fmt.Fprintf(out, "%s  %s\n", article.Slug, article.Title)
				for i, slide := range article.Slides {
					if opts.verbose {
						fmt.Fprintf(out, "  %2d  %-30s %s (line %d)\n", i, slide.Key, slide.Title, slide.Line)
					} else {
						fmt.Fprintf(out, "  %2d  %s\n", i, slide.Key)
					}
				}
			}
			if lib.Len() == 0 {
				fmt.Fprintln(out, "No articles found.")
			}
			return nil
		},
	}
}
