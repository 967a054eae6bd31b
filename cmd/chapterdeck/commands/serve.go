package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/livetemplate/chapterdeck/internal/library"
	"github.com/livetemplate/chapterdeck/internal/server"
)

func newServeCommand(opts *globalOptions) *cobra.Command {
	var (
		port  int
		host  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve [directory]",
		Short: "Start the chapter deck server",
		Example: `  chapterdeck serve                 # Serve current directory
  chapterdeck serve ./articles      # Serve articles directory
  chapterdeck serve --watch         # Serve with live reload`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := contentDir(args)
			if err != nil {
				return err
			}
			cfg, err := opts.loadConfig(dir)
			if err != nil {
				return err
			}

			// CLI flags override config
			flags := cmd.Flags()
			if flags.Changed("port") {
				cfg.Server.Port = port
			}
			if flags.Changed("host") {
				cfg.Server.Host = host
			}
			if flags.Changed("watch") {
				cfg.Features.HotReload = watch
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			logger, err := opts.logger(cfg)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "📚 %s\n\n", cfg.Title)
			fmt.Fprintf(out, "Serving: %s\n", dir)

			lib := library.New(dir, cfg.Ignore, logger)
			if err := lib.Discover(); err != nil {
				return fmt.Errorf("failed to discover articles: %w", err)
			}

			fmt.Fprintf(out, "\nArticles discovered:\n")
			for _, article := range lib.All() {
				fmt.Fprintf(out, "  %-30s %d chapters\n", article.Slug, len(article.Slides))
			}

			srv := server.New(cfg, lib, logger)
			defer srv.Close()

			if cfg.Features.HotReload {
				if err := srv.EnableWatch(); err != nil {
					return fmt.Errorf("failed to enable watch mode: %w", err)
				}
				fmt.Fprintf(out, "\n👀 Watch mode enabled - articles reload on save\n")
			}

			fmt.Fprintf(out, "\n🌐 Server running at http://%s\n", cfg.Addr())
			fmt.Fprintf(out, "   Press Ctrl+C to stop\n\n")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.ListenAndServe(ctx); err != nil {
				logger.Error("server stopped", zap.Error(err))
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "port to listen on")
	cmd.Flags().StringVar(&host, "host", "localhost", "host to bind to")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload articles when they change")
	return cmd
}
