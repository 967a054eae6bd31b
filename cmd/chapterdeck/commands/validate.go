package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/livetemplate/chapterdeck"
	"github.com/livetemplate/chapterdeck/internal/library"
)

// errValidationFailed is returned after the individual problems have been
// printed, so main only adds the exit status.
var errValidationFailed = errors.New("validation failed")

func newValidateCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [directory]",
		Short: "Check that every article parses into chapters",
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

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "🔍 Validating articles in: %s\n\n", dir)

			checked, errs := library.New(dir, cfg.Ignore, nil).Validate()
			for _, err := range errs {
				var perr *chapterdeck.ParseError
				if errors.As(err, &perr) {
					fmt.Fprintln(out, perr.Format())
					continue
				}
				fmt.Fprintf(out, "❌ %v\n\n", err)
			}

			if len(errs) > 0 {
				fmt.Fprintf(out, "❌ %d of %d articles failed validation\n", len(errs), checked)
				return errValidationFailed
			}
			fmt.Fprintf(out, "✅ %d articles valid\n", checked)
			return nil
		},
	}
}
