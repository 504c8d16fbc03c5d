package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"mtid/internal/dataset"
	"mtid/internal/validation"
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate both trade source files without serving",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.NewFileValidator(logger).ValidateSources(cfg.Data.FormalPath, cfg.Data.InformalPath); err != nil {
				return err
			}
			data, err := dataset.NewLoader(logger).Load(cmd.Context(), cfg.Data.FormalPath, cfg.Data.InformalPath)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, src := range data.Sources() {
				fmt.Fprintf(w, "%-8s %6d records  %s\n", src.TradeType, src.Records, src.Path)
			}
			fmt.Fprintf(w, "OK: %d records loaded\n", data.Len())
			return nil
		},
	}
}
