package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/predb-announcer/internal/config"
	"github.com/JakeFAU/predb-announcer/internal/server"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Starts the announcer loop",
		Long: `Scans the catalog once per cycle and announces every release that was not
seen before. With --once the loop handles a single release (or one full scan)
and exits, and the catalog snapshot present at startup is not suppressed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			app, err := newApp(cmd.Context(), cfg, server.Options{Once: once})
			if err != nil {
				return fmt.Errorf("initialize application: %w", err)
			}
			defer app.Close()
			return app.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single pass and exit")
	return cmd
}
