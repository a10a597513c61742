package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-analyst/pkg/models"
	"github.com/ekaya-inc/ekaya-analyst/pkg/templates"
)

var (
	askNoCache   bool
	askInsights  bool
	askJSON      bool
	askTemplate  string
	askTemplates bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question and print the result",
	Long: `The ask command resolves a single natural-language question against the configured
datasource and prints the generated SQL with its result table.

With --template <id> it runs a prebuilt analytics query instead; the question is
then optional and only used for --insights. --list-templates prints the library.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if askTemplate != "" || askTemplates {
			return nil
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if askTemplates {
			renderTemplateList(cmd.OutOrStdout(), templates.Default().All())
			return nil
		}

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		question := strings.Join(args, " ")
		var result *models.ResolutionResult
		if askTemplate != "" {
			result, err = a.templates.Run(ctx, askTemplate, a.cfg.Pipeline.RowLimit)
			if err != nil {
				return err
			}
			if question == "" {
				tmpl, _ := templates.Default().Get(askTemplate)
				question = tmpl.Description
			}
		} else {
			result = a.resolver.Resolve(ctx, question, nil, !askNoCache)
		}

		var insights string
		if askInsights && result.Success {
			insights = a.resolver.GenerateInsights(ctx, question, result)
		}

		out := cmd.OutOrStdout()
		if askJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				*models.ResolutionResult
				Insights string `json:"insights,omitempty"`
			}{result, insights})
		}

		renderResult(out, result)
		if insights != "" {
			fmt.Fprintf(out, "\nInsights:\n%s\n", insights)
		}
		if !result.Success {
			return errors.New(result.Error)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVar(&askNoCache, "no-cache", false, "Skip the result cache")
	askCmd.Flags().BoolVar(&askInsights, "insights", false, "Summarize the result in plain language")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the full result as JSON")
	askCmd.Flags().StringVar(&askTemplate, "template", "", "Run the prebuilt query with this id instead of resolving a question")
	askCmd.Flags().BoolVar(&askTemplates, "list-templates", false, "List the prebuilt queries and exit")
	rootCmd.AddCommand(askCmd)
}

// renderResult prints the SQL, warnings and a row table for a resolution.
func renderResult(w io.Writer, result *models.ResolutionResult) {
	if sqlText := result.SQLText(); sqlText != "" {
		fmt.Fprintf(w, "SQL:\n  %s\n\n", sqlText)
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	for _, v := range result.ValidationErrors {
		fmt.Fprintf(w, "validation: %s\n", v)
	}
	if !result.Success {
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(true)
	table.SetHeader(result.Columns)
	for _, row := range result.Rows {
		cells := make([]string, len(result.Columns))
		for i, col := range result.Columns {
			cells[i] = formatCell(row[col])
		}
		table.Append(cells)
	}
	table.Render()

	source := "executed"
	if result.FromCache {
		source = "cached"
	}
	fmt.Fprintf(w, "%d row(s), %s in %s\n", result.RowCount, source, result.Elapsed.Round(time.Millisecond))
}

func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

// renderTemplateList prints one row per template.
func renderTemplateList(w io.Writer, ts []templates.Template) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"ID", "Category", "Difficulty", "Description"})
	for _, t := range ts {
		table.Append([]string{t.ID, t.Category, t.Difficulty, t.Description})
	}
	table.Render()
}
