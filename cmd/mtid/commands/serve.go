package commands

import (
	"io/fs"

	"github.com/spf13/cobra"

	"mtid/internal/app"
)

func serveCmd(frontendFS fs.FS) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load both trade files and serve the dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			if host != "" {
				cfg.Server.Host = host
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			application, err := app.NewApplication(cmd.Context(), cfg, logger, frontendFS)
			if err != nil {
				return err
			}
			return application.Run()
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host")
	cmd.Flags().IntVar(&port, "port", 0, "listen port")
	return cmd
}
