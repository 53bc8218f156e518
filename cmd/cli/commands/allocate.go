package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
	"github.com/jakechorley/resource-allocator/pkg/core/phases"
	"github.com/jakechorley/resource-allocator/pkg/core/rules"
	"github.com/jakechorley/resource-allocator/pkg/core/services"
	"github.com/jakechorley/resource-allocator/pkg/rowsource"
)

// AllocateCmd creates the allocate command
func AllocateCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Assign clients to tasks and workers using the stored rows",
		Long: `Assign each client at most one of its requested tasks, in priority order.

Rows are read from the store unless --clients, --workers or --tasks point at files.
Rules come from --rules, or the rules file in the config. The run is stored unless --dry-run is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			output, _ := cmd.Flags().GetString("output")

			req, err := buildAllocationRequest(app, cmd)
			if err != nil {
				return err
			}
			req.DryRun = dryRun

			app.Logger.Debug("allocate command",
				zap.Int("rule_count", len(req.Rules)),
				zap.Bool("dry_run", dryRun))

			database, err := app.Database()
			if err != nil {
				return err
			}

			result, err := services.RunAllocation(app.Ctx, database, app.Logger, app.Metrics, req)
			if err != nil {
				return err
			}

			calendar, err := app.Calendar()
			if err != nil {
				return err
			}

			printAllocation(req.Rules, result, calendar)

			if output != "" {
				if err := writeAssignmentsFile(output, result.Outcome.Assignments, calendar); err != nil {
					return err
				}
				fmt.Printf("Assignments written to %s\n\n", output)
			}

			return nil
		},
	}

	cmd.Flags().String("rules", "", "JSON rules file (overrides the configured rules file)")
	cmd.Flags().Float64("priority-weight", -1, "Priority weight in [0,1] (defaults to config)")
	cmd.Flags().Float64("fairness-weight", -1, "Fairness weight in [0,1] (defaults to config)")
	cmd.Flags().Float64("fulfillment-weight", -1, "Fulfillment weight in [0,1] (defaults to config)")
	cmd.Flags().Int("default-phase", 0, "Phase for tasks without preferred phases (defaults to config, then 1)")
	cmd.Flags().Bool("enforce-capacity", false, "Enforce worker MaxLoadPerPhase and task MaxConcurrent")
	cmd.Flags().String("clients", "", "Read clients from this file instead of the store")
	cmd.Flags().String("workers", "", "Read workers from this file instead of the store")
	cmd.Flags().String("tasks", "", "Read tasks from this file instead of the store")
	cmd.Flags().Bool("dry-run", false, "Compute the allocation without storing it")
	cmd.Flags().StringP("output", "o", "", "Also write the assignments to this CSV file")

	return cmd
}

// buildAllocationRequest merges command flags over the configured defaults
func buildAllocationRequest(app *AppContext, cmd *cobra.Command) (services.AllocationRequest, error) {
	weights, defaultPhase, enforceCapacity := app.AllocationDefaults()
	req := services.AllocationRequest{
		Weights:         weights,
		DefaultPhase:    defaultPhase,
		EnforceCapacity: enforceCapacity,
	}

	rulesPath, _ := cmd.Flags().GetString("rules")
	var err error
	if rulesPath != "" {
		req.Rules, err = loadRulesFile(rulesPath)
	} else {
		req.Rules, err = app.DefaultRules()
	}
	if err != nil {
		return req, err
	}

	for flag, target := range map[string]*float64{
		"priority-weight":    &req.Weights.Priority,
		"fairness-weight":    &req.Weights.Fairness,
		"fulfillment-weight": &req.Weights.Fulfillment,
	} {
		if cmd.Flags().Changed(flag) {
			*target, _ = cmd.Flags().GetFloat64(flag)
		}
	}

	if cmd.Flags().Changed("default-phase") {
		req.DefaultPhase, _ = cmd.Flags().GetInt("default-phase")
	}
	if cmd.Flags().Changed("enforce-capacity") {
		req.EnforceCapacity, _ = cmd.Flags().GetBool("enforce-capacity")
	}

	for flag, target := range map[string]*[]model.Row{
		"clients": &req.Clients,
		"workers": &req.Workers,
		"tasks":   &req.Tasks,
	} {
		path, _ := cmd.Flags().GetString(flag)
		if path == "" {
			continue
		}
		rows, err := rowsource.ReadFile(path)
		if err != nil {
			return req, err
		}
		*target = mapRowHeaders(model.EntityKind(flag), rows)
	}

	return req, nil
}

func printAllocation(ruleSet []rules.Rule, result *services.AllocationResult, calendar *phases.Calendar) {
	outcome := result.Outcome

	if len(ruleSet) > 0 {
		fmt.Printf("\nRules:\n")
		for _, rule := range ruleSet {
			fmt.Printf("  - %s\n", rules.Describe(rule))
		}
	}

	fmt.Printf("\nAssignments (%d):\n", len(outcome.Assignments))
	for _, a := range outcome.Assignments {
		fmt.Printf("  %-12s → %-12s by %-12s phase %s\n", a.ClientID, a.TaskID, a.WorkerID, phaseLabel(a.Phase, calendar))
	}

	if len(outcome.Unmatched) > 0 {
		fmt.Printf("\nUnmatched clients (%d):\n", len(outcome.Unmatched))
		for _, u := range outcome.Unmatched {
			fmt.Printf("  %-12s %s\n", u.ClientID, u.Reason)
		}
	}

	if len(outcome.CoRunGaps) > 0 {
		fmt.Printf("\nCo-run sets only partly scheduled:\n")
		for _, gap := range outcome.CoRunGaps {
			fmt.Printf("  scheduled %v, missing %v\n", gap.Scheduled, gap.Missing)
		}
	}

	if len(outcome.ValidationErrors) > 0 {
		fmt.Printf("\n⚠️  %d invariant violations:\n", len(outcome.ValidationErrors))
		for _, e := range outcome.ValidationErrors {
			fmt.Printf("  [%s] %s\n", e.CriterionName, e.Description)
		}
	}

	if result.Run != nil {
		fmt.Printf("\n✓ Run %s stored\n\n", result.Run.ID)
	} else {
		fmt.Printf("\n(dry run, nothing stored)\n\n")
	}
}

// phaseLabel shows the phase number, with its start date when a calendar is configured
func phaseLabel(phase int, calendar *phases.Calendar) string {
	if calendar == nil {
		return fmt.Sprintf("%d", phase)
	}
	if label := calendar.Label(phase); label != "" {
		return fmt.Sprintf("%d (%s)", phase, label)
	}
	return fmt.Sprintf("%d", phase)
}

func writeAssignmentsFile(path string, assignments []model.Assignment, calendar *phases.Calendar) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := services.ExportAssignmentsCSV(f, assignments, calendar); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

