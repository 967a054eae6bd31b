package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/livetemplate/chapterdeck/internal/pager"
)

func newPagerCommand(opts *globalOptions) *cobra.Command {
	var (
		slides   int
		limit    int
		width    int
		viewport int
	)

	cmd := &cobra.Command{
		Use:   "pager",
		Short: "Print the strip offset and edge state for every selection",
		Example: `  chapterdeck pager --slides 7 --limit 5 --width 40
  chapterdeck pager --slides 7 --viewport 400`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if slides <= 0 {
				return fmt.Errorf("--slides must be positive, got %d", slides)
			}
			if width <= 0 {
				return fmt.Errorf("--width must be positive, got %d", width)
			}

			out := cmd.OutOrStdout()
			if cmd.Flags().Changed("viewport") {
				cfg, err := opts.loadConfig(".")
				if err != nil {
					return err
				}
				var class string
				class, limit = cfg.Pager.Viewport().Classify(viewport)
				fmt.Fprintf(out, "viewport %dpx is %q\n", viewport, class)
			}
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}

			layout := pager.Layout{Count: slides, Limit: min(limit, slides), ItemWidth: width}
			left, right := pager.Margins(layout.Limit)
			fmt.Fprintf(out, "slides=%d limit=%d width=%d margins=%d/%d min offset=%d\n\n",
				slides, layout.Limit, width, left, right, layout.MinOffset())

			fmt.Fprintf(out, "%5s  %7s  %-5s  %-5s\n", "index", "offset", "prev", "next")
			for i := range slides {
				offset := layout.Offset(i)
				prev, next := layout.Edges(offset)
				fmt.Fprintf(out, "%5d  %7d  %-5t  %-5t\n", i, offset, prev, next)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&slides, "slides", "n", 7, "number of chapters")
	cmd.Flags().IntVarP(&limit, "limit", "l", 5, "indicators visible at once")
	cmd.Flags().IntVarP(&width, "width", "w", 85, "indicator width in pixels")
	cmd.Flags().IntVar(&viewport, "viewport", 0, "derive the limit from the breakpoint table for this viewport width")
	return cmd
}
