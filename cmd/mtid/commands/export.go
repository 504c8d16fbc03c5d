package commands

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mtid/internal/dataset"
	"mtid/internal/services"
	"mtid/internal/session"
	"mtid/internal/validation"
)

func exportCmd() *cobra.Command {
	var (
		tradeType string
		format    string
		out       string
		sort      string
		filters   []string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the sorted, filtered records of one trade type to a file",
		Example: `  mtid export --trade-type informal --format csv
  mtid export --filter "Flow=Export" --filter "Trade_Value_USD=> 1000" --sort Trade_Value_USD:desc`,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := tableParams(sort, filters)
			if err != nil {
				return err
			}

			data, err := dataset.NewLoader(logger).Load(cmd.Context(), cfg.Data.FormalPath, cfg.Data.InformalPath)
			if err != nil {
				return err
			}
			svc, err := services.NewDashboardService(services.DashboardOptions{
				Data:     data,
				Sessions: session.NewStore(cfg.Session.TTL, logger),
			}, logger)
			if err != nil {
				return err
			}

			file, err := svc.Export(cmd.Context(), "", tradeType, format, params)
			if err != nil {
				return err
			}
			if out == "" {
				out = file.Name
			}
			if err := validation.NewFileValidator(logger).ValidateOutputFile(out); err != nil {
				return err
			}
			if err := os.WriteFile(out, file.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d rows to %s\n", file.Rows, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&tradeType, "trade-type", "formal", "formal or informal")
	cmd.Flags().StringVar(&format, "format", "", "xlsx, csv or sqlite (default from table config)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default <trade type>_trade_data.<ext>)")
	cmd.Flags().StringVar(&sort, "sort", "", "sort columns, e.g. Year:desc,Partner_Country")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "column filter Column=expression, repeatable")
	return cmd
}

// tableParams turns CLI flags into the table query parameters used by the API
func tableParams(sort string, filters []string) (url.Values, error) {
	params := url.Values{}
	if sort != "" {
		params.Set("sort", sort)
	}
	for _, f := range filters {
		col, expr, ok := strings.Cut(f, "=")
		if !ok || strings.TrimSpace(col) == "" || expr == "" {
			return nil, fmt.Errorf("invalid filter %q, want Column=expression", f)
		}
		params.Set("filter["+strings.TrimSpace(col)+"]", expr)
	}
	return params, nil
}
