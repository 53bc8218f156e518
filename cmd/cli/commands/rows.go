package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
	"github.com/jakechorley/resource-allocator/pkg/core/records"
	"github.com/jakechorley/resource-allocator/pkg/core/services"
	"github.com/jakechorley/resource-allocator/pkg/rowsource"
)

// ValidateCmd creates the validate command
func ValidateCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <entity> <file>",
		Short: "Check a .csv or .json file of clients, workers or tasks without storing it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mapHeaders, _ := cmd.Flags().GetBool("map-headers")

			kind, rows, err := readEntityFile(args[0], args[1], mapHeaders)
			if err != nil {
				return err
			}

			_, errs, err := services.PrepareRows(kind, rows)
			if err != nil {
				return err
			}

			if len(errs) > 0 {
				printValidationErrors(errs)
				return fmt.Errorf("%d validation errors in %s", len(errs), args[1])
			}

			fmt.Printf("\n✓ %d %s rows are valid\n\n", len(rows), kind)
			return nil
		},
	}

	cmd.Flags().Bool("map-headers", true, "Rename recognised column headers to their standard names")

	return cmd
}

// UploadCmd creates the upload command
func UploadCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <entity> <file>",
		Short: "Validate a .csv or .json file and replace the stored rows of that entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mapHeaders, _ := cmd.Flags().GetBool("map-headers")

			kind, rows, err := readEntityFile(args[0], args[1], mapHeaders)
			if err != nil {
				return err
			}

			return ingest(app, kind, rows)
		},
	}

	cmd.Flags().Bool("map-headers", true, "Rename recognised column headers to their standard names")

	return cmd
}

// ImportSheetCmd creates the importSheet command
func ImportSheetCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "importSheet <entity>",
		Short: "Import entity rows from the configured Google spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := model.ParseEntityKind(args[0])
			if err != nil {
				return err
			}

			client, err := app.Sheets()
			if err != nil {
				return err
			}

			tab, _ := cmd.Flags().GetString("tab")
			if tab == "" {
				tab = app.Cfg.Sheets.Tabs[string(kind)]
			}
			if tab == "" {
				return fmt.Errorf("no tab configured for %s; pass --tab", kind)
			}

			app.Logger.Debug("importSheet command", zap.String("entity", string(kind)), zap.String("tab", tab))

			rows, err := client.ReadRows(app.Ctx, app.Cfg.Sheets.SpreadsheetID, tab)
			if err != nil {
				return err
			}

			return ingest(app, kind, mapRowHeaders(kind, rows))
		},
	}

	cmd.Flags().String("tab", "", "Tab to read (defaults to the tab configured for the entity)")

	return cmd
}

func ingest(app *AppContext, kind model.EntityKind, rows []model.Row) error {
	database, err := app.Database()
	if err != nil {
		return err
	}

	result, err := services.IngestRows(app.Ctx, database, app.Logger, app.Metrics, kind, rows)
	if err != nil {
		return err
	}

	if !result.OK() {
		printValidationErrors(result.Errors)
		return fmt.Errorf("upload rejected: %d validation errors", len(result.Errors))
	}

	fmt.Printf("\n✓ Stored %d %s rows\n\n", result.Received, kind)
	return nil
}

func readEntityFile(entity, path string, mapHeaders bool) (model.EntityKind, []model.Row, error) {
	kind, err := model.ParseEntityKind(entity)
	if err != nil {
		return "", nil, err
	}

	rows, err := rowsource.ReadFile(path)
	if err != nil {
		return "", nil, err
	}

	if mapHeaders {
		rows = mapRowHeaders(kind, rows)
	}
	return kind, rows, nil
}

// mapRowHeaders renames recognised headers, taken from every row, to their standard names
func mapRowHeaders(kind model.EntityKind, rows []model.Row) []model.Row {
	seen := make(map[string]bool)
	var headers []string
	for _, row := range rows {
		for key := range row {
			if !seen[key] {
				seen[key] = true
				headers = append(headers, key)
			}
		}
	}
	sort.Strings(headers)

	mapping := records.SuggestHeaderMapping(kind, headers)
	if len(mapping) == 0 {
		return rows
	}
	return records.ApplyHeaderMapping(rows, mapping)
}

func printValidationErrors(errs []string) {
	fmt.Printf("\n✗ %d validation errors:\n", len(errs))
	for _, e := range errs {
		fmt.Printf("  %s\n", e)
	}
	fmt.Println()
}
