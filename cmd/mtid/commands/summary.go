package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"mtid/internal/dataset"
	"mtid/internal/view"
	"mtid/pkg/contracts/domain"
)

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print record counts and totals for both trade types",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := dataset.NewLoader(logger).Load(cmd.Context(), cfg.Data.FormalPath, cfg.Data.InformalPath)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, tt := range domain.TradeTypes() {
				s := view.Summarize(view.Filter(data, tt))
				fmt.Fprintf(w, "%s Trade\n", tt)
				if s.RecordCount == 0 {
					fmt.Fprintln(w, "  no records")
					continue
				}
				fmt.Fprintf(w, "  %s\n", s.InfoLine())
				fmt.Fprintf(w, "  Exports: %s  Imports: %s  Balance: %s\n",
					view.FormatUSD(s.TotalExportsUSD), view.FormatUSD(s.TotalImportsUSD), view.FormatUSD(s.TradeBalance()))
				fmt.Fprintf(w, "  Partners: %d  Products: %d\n", s.DistinctPartners, s.DistinctProducts)
			}
			return nil
		},
	}
}
