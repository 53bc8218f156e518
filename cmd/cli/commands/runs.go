package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/resource-allocator/pkg/core/services"
)

// ListRunsCmd creates the listRuns command
func ListRunsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listRuns [count]",
		Short: "List stored allocation runs, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count := 0
			if len(args) > 0 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("count must be a positive integer, got: %s", args[0])
				}
				count = n
			}

			database, err := app.Database()
			if err != nil {
				return err
			}

			runs, err := services.ListRuns(app.Ctx, database, app.Logger, count)
			if err != nil {
				return err
			}

			if len(runs) == 0 {
				fmt.Println("No allocation runs stored.")
				return nil
			}

			fmt.Printf("\n%-36s  %-20s  %8s  %8s  %8s\n", "Run ID", "Created", "Clients", "Assigned", "Unmatched")
			for _, run := range runs {
				fmt.Printf("%-36s  %-20s  %8d  %8d  %8d\n",
					run.ID,
					run.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					run.ClientCount,
					run.AssignmentCount,
					run.UnmatchedCount)
			}
			fmt.Println()

			return nil
		},
	}
}

// ExportRunCmd creates the exportRun command
func ExportRunCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exportRun <run_id>",
		Short: "Write the assignments of a stored run as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")

			database, err := app.Database()
			if err != nil {
				return err
			}

			assignments, err := services.RunAssignments(app.Ctx, database, app.Logger, args[0])
			if err != nil {
				return err
			}

			calendar, err := app.Calendar()
			if err != nil {
				return err
			}

			if output == "" {
				return services.ExportAssignmentsCSV(os.Stdout, assignments, calendar)
			}
			if err := writeAssignmentsFile(output, assignments, calendar); err != nil {
				return err
			}
			fmt.Printf("✓ %d assignments written to %s\n", len(assignments), output)
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "File to write (defaults to stdout)")

	return cmd
}

// PublishRunCmd creates the publishRun command
func PublishRunCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publishRun <run_id>",
		Short: "Publish the assignments of a stored run to a tab of the configured spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := args[0]
			tab, _ := cmd.Flags().GetString("tab")
			if tab == "" {
				tab = "Assignments " + shortID(runID)
			}

			database, err := app.Database()
			if err != nil {
				return err
			}

			assignments, err := services.RunAssignments(app.Ctx, database, app.Logger, runID)
			if err != nil {
				return err
			}

			calendar, err := app.Calendar()
			if err != nil {
				return err
			}

			client, err := app.Sheets()
			if err != nil {
				return err
			}

			app.Logger.Debug("publishRun command", zap.String("run_id", runID), zap.String("tab", tab))

			if err := client.PublishAssignments(app.Ctx, app.Cfg.Sheets.SpreadsheetID, tab, assignments, calendar); err != nil {
				return err
			}

			fmt.Printf("\n✓ Published %d assignments to tab %q\n\n", len(assignments), tab)
			return nil
		},
	}

	cmd.Flags().String("tab", "", "Tab to write (defaults to \"Assignments <run id prefix>\")")

	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
