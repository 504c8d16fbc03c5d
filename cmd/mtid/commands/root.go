package commands

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mtid/internal/config"
	"mtid/internal/infrastructure"
	"mtid/pkg/contracts"
)

var (
	configFile string
	logLevel   string
	formalPath string
	informal   string

	cfg    *config.Config
	logger *slog.Logger
)

// Execute runs the mtid command line
func Execute(frontendFS fs.FS) error {
	root := newRootCmd(frontendFS)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func newRootCmd(frontendFS fs.FS) *cobra.Command {
	root := &cobra.Command{
		Use:           "mtid",
		Short:         "Merchandise trade intelligence dashboard",
		Version:       contracts.GetVersionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (default $MTID_CONFIG_FILE or config.yaml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&formalPath, "formal", "", "formal trade file (.csv or .xlsx)")
	root.PersistentFlags().StringVar(&informal, "informal", "", "informal trade file (.csv or .xlsx)")

	root.AddCommand(serveCmd(frontendFS), checkCmd(), exportCmd(), summaryCmd(), versionCmd())
	return root
}

// setup loads the configuration, applies flag overrides and initializes logging
func setup(cmd *cobra.Command) error {
	var err error
	if configFile != "" {
		cfg, err = config.LoadFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	if formalPath != "" {
		cfg.Data.FormalPath = formalPath
	}
	if informal != "" {
		cfg.Data.InformalPath = informal
	}
	if logLevel != "" {
		cfg.Logging.Level = strings.ToLower(logLevel)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err = infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Debug("configuration loaded",
		slog.String("command", cmd.Name()),
		slog.String("formal_path", cfg.Data.FormalPath),
		slog.String("informal_path", cfg.Data.InformalPath))
	return nil
}
