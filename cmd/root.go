// Package cmd defines the CLI commands for the predb-announcer executable.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/predb-announcer/internal/config"
	"github.com/JakeFAU/predb-announcer/internal/server"
)

// Runner is the application surface commands drive. Tests swap newApp for a fake.
type Runner interface {
	Run(ctx context.Context) error
	Close()
}

var newApp = func(ctx context.Context, cfg config.Config, opts server.Options) (Runner, error) {
	return server.Build(ctx, cfg, opts)
}

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "predb-announcer",
		Short: "Announces new Nintendo Switch scene releases.",
		Long: `predb-announcer polls the srrDB catalog for new Switch releases, renders
their NFO documents to images, uploads them and posts an announcement with
the title's thumbnail, NFO and proof images attached.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (TOML, YAML or JSON)")
	cmd.AddCommand(newRunCmd(opts))
	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "predb-announcer: %v\n", err)
		os.Exit(1)
	}
}
