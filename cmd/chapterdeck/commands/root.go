// Package commands implements the chapterdeck CLI.
package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/livetemplate/chapterdeck/internal/config"
	"github.com/livetemplate/chapterdeck/internal/logging"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	verbose    bool
}

// NewRootCommand builds the chapterdeck command tree.
func NewRootCommand(version string) *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "chapterdeck",
		Short: "Serve Markdown articles as paged chapter decks",
		Long: `chapterdeck turns a directory of Markdown articles into chaptered pages.
Every H2 heading starts a chapter; a strip of indicators above the
chapters pages through them and follows the reader's selection.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file path (default: chapterdeck.yaml in the content directory)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newServeCommand(opts),
		newValidateCommand(opts),
		newSlidesCommand(opts),
		newPagerCommand(opts),
		newVersionCommand(version),
	)
	return root
}

// contentDir resolves the optional directory argument to an absolute path.
func contentDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("directory does not exist: %s", dir)
		}
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", dir)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	return absDir, nil
}

// loadConfig reads --config when given and otherwise looks in dir.
func (o *globalOptions) loadConfig(dir string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.Load(o.configPath)
	} else {
		cfg, err = config.LoadFromDir(dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (o *globalOptions) logger(cfg *config.Config) (*zap.Logger, error) {
	level := cfg.Log.Level
	if o.verbose {
		level = "debug"
	}
	return logging.New(level, cfg.Server.Debug || o.verbose)
}
