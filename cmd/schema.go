package cmd

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/adapters/datasource"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the datasource schema as the analyst sees it",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx := cmd.Context()
		ds, err := datasource.NewDatasourceAdapterFactory(logger).Open(ctx, cfg.Datasource.Type, cfg.Datasource.AdapterConfig())
		if err != nil {
			return fmt.Errorf("open datasource: %w", err)
		}
		defer func() { _ = ds.Close() }()

		summary, err := datasource.NewSchemaCatalog(ds, logger).SchemaSummary(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), summary)
		return nil
	},
}

var datasourcesCmd = &cobra.Command{
	Use:   "datasources",
	Short: "List the datasource types compiled into this binary",
	RunE: func(cmd *cobra.Command, args []string) error {
		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetAutoWrapText(false)
		table.SetAutoFormatHeaders(false)
		table.SetHeader([]string{"Type", "Name", "Description"})
		for _, info := range datasource.NewDatasourceAdapterFactory(zap.NewNop()).ListTypes() {
			table.Append([]string{info.Type, info.DisplayName, info.Description})
		}
		table.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(datasourcesCmd)
}
