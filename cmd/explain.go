package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-analyst/pkg/adapters/datasource"
	sqlutil "github.com/ekaya-inc/ekaya-analyst/pkg/sql"
)

var (
	explainLint bool
	explainPlan bool
)

var explainCmd = &cobra.Command{
	Use:   "explain <sql>",
	Short: "Validate and explain a SQL query without running it",
	Long: `The explain command checks a query against the same read-only rules used before
execution and describes what it does clause by clause. Nothing is sent to the
language model. With --plan, a valid query is also sent to the datasource for
its estimated execution plan; the query itself is not run.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		sqlQuery := strings.Join(args, " ")
		verdict := sqlutil.NewValidator(cfg.Datasource.LargeTables).Validate(sqlQuery)

		var analysis *sqlutil.Analysis
		if explainLint {
			a := sqlutil.Analyze(sqlQuery, 0)
			analysis = &a
		}
		out := cmd.OutOrStdout()
		renderExplanation(out, verdict, sqlutil.Explain(sqlQuery), analysis)

		if !explainPlan {
			return nil
		}
		ctx := cmd.Context()
		ds, err := datasource.NewDatasourceAdapterFactory(logger).Open(ctx, cfg.Datasource.Type, cfg.Datasource.AdapterConfig())
		if err != nil {
			return fmt.Errorf("open datasource: %w", err)
		}
		defer func() { _ = ds.Close() }()

		plan, err := queryPlan(ctx, ds, verdict, sqlQuery)
		if err != nil {
			return err
		}
		renderPlan(out, plan)
		return nil
	},
}

func init() {
	explainCmd.Flags().BoolVar(&explainLint, "lint", false, "Include performance lint findings")
	explainCmd.Flags().BoolVar(&explainPlan, "plan", false, "Ask the datasource for its estimated execution plan")
	rootCmd.AddCommand(explainCmd)
}

func renderExplanation(w io.Writer, verdict sqlutil.Verdict, e sqlutil.Explanation, analysis *sqlutil.Analysis) {
	status := "valid"
	if !verdict.Valid {
		status = "INVALID"
	}
	fmt.Fprintf(w, "Validation: %s\n", status)
	for _, msg := range verdict.Errors {
		fmt.Fprintf(w, "  error: %s\n", msg)
	}
	for _, msg := range verdict.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", msg)
	}

	fmt.Fprintf(w, "\n%s\nComplexity: %s (score %d)\n", e.Overview, e.Complexity.Level, e.Complexity.Score)

	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Clause", "Detail", "Meaning"})
	for _, c := range e.Columns {
		table.Append([]string{"select", c.Expression, c.Kind + " " + c.Name})
	}
	for _, t := range e.Tables {
		table.Append([]string{"table", t.Name, t.Role})
	}
	for _, f := range e.Filters {
		table.Append([]string{"filter", f.Condition, f.Purpose})
	}
	for _, agg := range e.Aggregations {
		table.Append([]string{"aggregate", agg.Function + "(" + agg.Argument + ")", agg.Purpose})
	}
	if e.GroupBy != "" {
		table.Append([]string{"group by", e.GroupBy, "one row per group"})
	}
	if e.OrderBy != nil {
		table.Append([]string{"order by", e.OrderBy.Column, e.OrderBy.Direction})
	}
	if e.Limit != nil {
		table.Append([]string{"limit", fmt.Sprint(*e.Limit), "at most this many rows"})
	}
	table.Render()

	for _, tip := range e.Tips {
		fmt.Fprintf(w, "tip: %s\n", tip)
	}

	if analysis == nil {
		return
	}
	fmt.Fprintf(w, "\nPerformance score: %.0f/100\n", analysis.Score)
	for _, issue := range analysis.Issues {
		fmt.Fprintf(w, "  [%s] %s: %s\n", issue.Severity, issue.Issue, issue.Solution)
	}
	for _, hint := range analysis.IndexHints {
		fmt.Fprintf(w, "  index %s(%s): %s\n", hint.Table, hint.Column, hint.Reason)
	}
}

// queryPlan asks the datasource planner for a plan. Queries that fail
// validation never reach the database.
func queryPlan(ctx context.Context, planner datasource.QueryPlanner, verdict sqlutil.Verdict, sqlQuery string) ([]string, error) {
	if !verdict.Valid {
		return nil, errors.New("query failed validation; no plan requested")
	}
	return planner.ExplainQuery(ctx, sqlQuery)
}

func renderPlan(w io.Writer, plan []string) {
	fmt.Fprintln(w, "\nExecution plan:")
	if len(plan) == 0 {
		fmt.Fprintln(w, "  (empty)")
		return
	}
	for _, step := range plan {
		fmt.Fprintf(w, "  %s\n", step)
	}
}
