package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/grocer/internal/cart"
	"github.com/Veraticus/grocer/internal/cli"
	"github.com/Veraticus/grocer/internal/common"
	"github.com/Veraticus/grocer/internal/config"
	"github.com/Veraticus/grocer/internal/sheets"
)

func cartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Build grocery carts",
	}
	cmd.AddCommand(cartBuildCmd())
	return cmd
}

func cartBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a cart from a shopping list",
		Long: `Search the store for every item in a JSON shopping list and assemble a
priced cart. Restock items land in their own section of the summary.

Items file format:
  [{"ingredient": "milk", "quantity": 1, "unit": "gal", "category": "dairy"}]`,
		RunE: runCartBuild,
	}

	cmd.Flags().String("items", "", "JSON file of requested items (required)")
	cmd.Flags().String("restock", "", "JSON file of restock items")
	cmd.Flags().Bool("json", false, "print the summary as JSON")
	cmd.Flags().Bool("export-sheet", false, "export the summary to Google Sheets")
	cmd.Flags().Bool("no-progress", false, "hide the progress bar")
	_ = cmd.MarkFlagRequired("items")

	return cmd
}

func runCartBuild(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	itemsPath, _ := cmd.Flags().GetString("items")
	restockPath, _ := cmd.Flags().GetString("restock")
	asJSON, _ := cmd.Flags().GetBool("json")
	exportSheet, _ := cmd.Flags().GetBool("export-sheet")
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	items, err := readItems(itemsPath)
	if err != nil {
		return err
	}
	restock, err := readItems(restockPath)
	if err != nil {
		return err
	}
	if len(items)+len(restock) == 0 {
		return common.NewUserError("The shopping list is empty.", common.ErrEmptyOrder)
	}

	// Validate export settings before spending time on the build.
	var sheetsCfg *sheets.Config
	if exportSheet {
		if sheetsCfg, err = config.LoadSheetsConfig(viper.GetViper()); err != nil {
			return err
		}
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var opts []cart.Option
	if !noProgress && !asJSON {
		opts = append(opts, cart.WithProgress(cli.NewCartProgress(cmd.ErrOrStderr()).Update))
	}

	p, err := newPipeline(ctx, store, opts...)
	if err != nil {
		return err
	}
	defer p.Close()

	summary, err := p.assembler.Build(ctx, items, restock)
	if err != nil {
		return fmt.Errorf("cart build failed, nothing was ordered: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return err
		}
	} else if err := cli.RenderCart(cmd.OutOrStdout(), summary); err != nil {
		return err
	}

	if sheetsCfg != nil {
		writer, err := sheets.NewWriter(ctx, *sheetsCfg, nil)
		if err != nil {
			return err
		}
		id, err := writer.Export(ctx, summary)
		if err != nil {
			return err
		}
		cmd.PrintErrln(cli.FormatSuccess("Exported to spreadsheet " + id))
	}
	return nil
}
