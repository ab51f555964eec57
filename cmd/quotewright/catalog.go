package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Veraticus/quotewright/internal/catalog"
	"github.com/Veraticus/quotewright/internal/cli"
	"github.com/Veraticus/quotewright/internal/common"
	"github.com/Veraticus/quotewright/internal/model"
	"github.com/Veraticus/quotewright/internal/service"
)

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage catalog items",
		Long: `Add, price, search and import the products and services quotes are
built from. Standard and insurance quotes draw from separate catalogs.`,
	}
	cmd.PersistentFlags().String("catalog", string(model.CatalogStandard), "catalog (standard, insurance)")
	cmd.AddCommand(catalogAddCmd(), catalogListCmd(), catalogPriceCmd(), catalogSearchCmd(), catalogImportCmd())
	return cmd
}

func catalogType(cmd *cobra.Command) (model.CatalogType, error) {
	s, _ := cmd.Flags().GetString("catalog")
	switch model.CatalogType(strings.ToLower(s)) {
	case model.CatalogStandard:
		return model.CatalogStandard, nil
	case model.CatalogInsurance:
		return model.CatalogInsurance, nil
	default:
		return "", common.NewUserError(fmt.Sprintf("unknown catalog %q", s), common.ErrInvalidInput)
	}
}

func parsePrice(s string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if err != nil || price.IsNegative() {
		return decimal.Zero, common.NewUserError(fmt.Sprintf("%q is not a valid price", s), common.ErrInvalidInput)
	}
	return price, nil
}

func catalogAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <sku> <title> <unit-price>",
		Short: "Add a catalog item",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ct, err := catalogType(cmd)
			if err != nil {
				return err
			}
			price, err := parsePrice(args[2])
			if err != nil {
				return err
			}

			item := &model.CatalogItem{
				SKU:         args[0],
				Title:       args[1],
				UnitPrice:   price,
				CatalogType: ct,
				IsActive:    true,
			}
			item.UnitType, _ = cmd.Flags().GetString("unit")
			item.Category, _ = cmd.Flags().GetString("category")
			item.Description, _ = cmd.Flags().GetString("description")
			if trade, _ := cmd.Flags().GetInt64("trade"); trade > 0 {
				item.TradeID = &trade
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			if err := a.Catalog.Create(ctx, item); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Added %s (id %d) at %s", item.SKU, item.ID, item.UnitPrice.StringFixed(2))))
			return nil
		},
	}
	cmd.Flags().String("unit", "ea", "unit type")
	cmd.Flags().String("category", "", "category")
	cmd.Flags().String("description", "", "description")
	cmd.Flags().Int64("trade", 0, "trade id")
	return cmd
}

func catalogListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog items",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			ct, err := catalogType(cmd)
			if err != nil {
				return err
			}
			filter := service.CatalogFilter{CatalogType: ct}
			filter.ActiveOnly, _ = cmd.Flags().GetBool("active")
			filter.Term, _ = cmd.Flags().GetString("term")
			if trade, _ := cmd.Flags().GetInt64("trade"); trade > 0 {
				filter.TradeID = &trade
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			items, err := a.Catalog.List(ctx, filter)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.InfoStyle.Render("No catalog items found. Use 'quotewright catalog add' to create one."))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderItems(items))
			return nil
		},
	}
	cmd.Flags().Bool("active", false, "only active items")
	cmd.Flags().String("term", "", "filter by sku, title or description")
	cmd.Flags().Int64("trade", 0, "filter by trade id")
	return cmd
}

func renderItems(items []model.CatalogItem) string {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		active := cli.SuccessIcon
		if !it.IsActive {
			active = ""
		}
		rows = append(rows, []string{
			strconv.FormatInt(it.ID, 10),
			it.SKU,
			it.Title,
			it.UnitType,
			it.UnitPrice.StringFixed(2),
			active,
		})
	}
	return cli.RenderTable([]string{"ID", "SKU", "Title", "Unit", "Price", "Active"}, rows, 0, 4)
}

func catalogPriceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "price <id> <unit-price>",
		Short: "Change the price of a catalog item",
		Long: `Change the unit price of a catalog item. A changed price is added to the
item's price history; quotes pick it up the next time they are saved.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "catalog item")
			if err != nil {
				return err
			}
			price, err := parsePrice(args[1])
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			changed, err := a.Catalog.SetPrice(ctx, id, price)
			if err != nil {
				return err
			}
			if !changed {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Price unchanged"))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Item %d now costs %s", id, price.StringFixed(2))))
			return nil
		},
	}
}

func catalogSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search active items the way the quote editor autocompletes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ct, err := catalogType(cmd)
			if err != nil {
				return err
			}
			format := model.FormatStandard
			if ct == model.CatalogInsurance {
				format = model.FormatInsurance
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			results, err := a.Catalog.Search(ctx, catalog.SearchRequest{Term: args[0], Format: format})
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.InfoStyle.Render("No matches"))
				return nil
			}
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{strconv.FormatInt(r.ID, 10), r.SKU, r.Title, r.UnitPrice.StringFixed(2)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTable([]string{"ID", "SKU", "Title", "Price"}, rows, 0, 3))
			return nil
		},
	}
	return cmd
}

func catalogImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Import catalog items from a spreadsheet",
		Long: `Upsert catalog items by sku from an xlsx workbook. The first row names the
columns: sku, title and unit_price are required; description, unit_type,
category, trade_id, sort_order and active are optional.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ct, err := catalogType(cmd)
			if err != nil {
				return err
			}
			sheet, _ := cmd.Flags().GetString("sheet")

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer func() { _ = f.Close() }()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			ctx, stop := context.WithCancel(ctx)
			defer stop()
			handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
			ctx = handler.HandleInterrupts(ctx, "Catalog import", "Rows imported so far were saved; importing again updates them by sku.")

			opts := catalog.ImportOptions{Sheet: sheet, Catalog: ct}
			if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
				opts.Progress = cmd.ErrOrStderr()
			}
			result, err := a.Catalog.ImportXLSX(ctx, f, opts)
			if err != nil {
				if handler.WasInterrupted() {
					return nil
				}
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Imported %d new and %d updated items (%d price changes)",
				result.Created, result.Updated, result.PriceChanged)))
			for _, s := range result.Skipped {
				fmt.Fprintln(out, cli.FormatWarning("Skipped "+s))
			}
			return nil
		},
	}
	cmd.Flags().String("sheet", "", "sheet name (default: first sheet)")
	cmd.Flags().Bool("quiet", false, "hide the progress bar")
	return cmd
}
