package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Veraticus/quotewright/internal/cli"
	"github.com/Veraticus/quotewright/internal/common"
	"github.com/Veraticus/quotewright/internal/export"
	"github.com/Veraticus/quotewright/internal/model"
	"github.com/Veraticus/quotewright/internal/quote"
	"github.com/Veraticus/quotewright/internal/tui"
	"github.com/Veraticus/quotewright/internal/tui/themes"
)

func quoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Create, price and edit quotes",
	}
	cmd.AddCommand(
		quoteCreateCmd(),
		quoteListCmd(),
		quoteShowCmd(),
		quoteAddLineCmd(),
		quoteFormatCmd(),
		quoteEditCmd(),
	)
	return cmd
}

func quoteCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create an empty quote",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			formatFlag, _ := cmd.Flags().GetString("format")
			format, err := model.ParseQuoteFormat(formatFlag)
			if err != nil {
				return common.NewUserError(err.Error(), common.ErrInvalidFormat)
			}
			taxFlag, _ := cmd.Flags().GetString("tax")
			tax, err := decimal.NewFromString(strings.TrimSuffix(strings.TrimSpace(taxFlag), "%"))
			if err != nil || tax.IsNegative() {
				return common.NewUserError(fmt.Sprintf("%q is not a valid tax rate", taxFlag), common.ErrInvalidInput)
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			q := &model.Quote{Title: args[0], Format: format, TaxRate: tax}
			if err := a.Store.CreateQuote(ctx, q); err != nil {
				return fmt.Errorf("failed to create quote: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created %s quote %d", q.Format, q.ID)))
			return nil
		},
	}
	cmd.Flags().String("format", string(model.FormatStandard), "quote format (standard, insurance)")
	cmd.Flags().String("tax", "0", "quote tax rate in percent, used by insurance lines without their own rate")
	return cmd
}

func quoteListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List quotes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			quotes, err := a.Store.ListQuotes(ctx)
			if err != nil {
				return err
			}
			if len(quotes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.InfoStyle.Render("No quotes yet. Use 'quotewright quote create' to start one."))
				return nil
			}

			rows := make([][]string, 0, len(quotes))
			for _, q := range quotes {
				totals, err := a.Quotes.Totals(ctx, q.ID)
				if err != nil {
					return err
				}
				rows = append(rows, []string{
					strconv.FormatInt(q.ID, 10),
					q.Title,
					string(q.Format),
					totals.GrandTotal.StringFixed(2),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTable([]string{"ID", "Title", "Format", "Total"}, rows, 0, 3))
			return nil
		},
	}
}

func quoteShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a quote with its computed totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "quote")
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			doc, err := export.LoadDocument(ctx, a.Quotes, id)
			if err != nil {
				return err
			}
			order, _ := savedLayout(ctx, a, doc.Quote.Format)
			fmt.Fprintln(cmd.OutOrStdout(), renderSheet(export.Build(doc, export.Columns(doc.Quote.Format, order))))
			if doc.Totals.Invalid > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning(fmt.Sprintf("%d fields could not be evaluated and kept their previous value", doc.Totals.Invalid)))
			}
			return nil
		},
	}
}

// renderSheet prints an export sheet as an aligned text table.
func renderSheet(s export.Sheet) string {
	var (
		headers []string
		right   []int
		rows    [][]string
	)
	for i, c := range s.Columns {
		headers = append(headers, c.Title)
		if c.Money || c.Key == "quantity" {
			right = append(right, i)
		}
	}
	for _, r := range s.Rows {
		switch r.Kind {
		case export.RowTitle, export.RowHeader:
			continue
		case export.RowBlank:
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, len(r.Cells))
		for i, v := range r.Cells {
			cells[i] = sheetCell(s.Columns, i, v)
		}
		rows = append(rows, cells)
	}
	return cli.FormatTitle(s.Title) + "\n" + cli.RenderTable(headers, rows, right...)
}

func sheetCell(columns []export.Column, i int, v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if i < len(columns) && columns[i].Money {
			return strconv.FormatFloat(v, 'f', 2, 64)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func quoteAddLineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-line <quote-id> <sku>",
		Short: "Add a catalog item to a quote",
		Long: `Add a catalog item to a group of a quote. The quantity accepts arithmetic
such as "2*3"; the formula prices the line from the catalog price:
"$" keeps it, "$+5" or "$-5" adds, "$*1.1" scales and a plain number
overrides it.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "quote")
			if err != nil {
				return err
			}
			groupName, _ := cmd.Flags().GetString("group")
			qty, _ := cmd.Flags().GetString("qty")
			formulaText, _ := cmd.Flags().GetString("formula")

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			q, err := a.Store.GetQuote(ctx, id)
			if err != nil {
				return err
			}
			item, err := a.Store.GetCatalogItemBySKU(ctx, q.Format.CatalogType(), args[1])
			if errors.Is(err, common.ErrNotFound) {
				return common.NewUserError(fmt.Sprintf("no %s catalog item with sku %q", q.Format.CatalogType(), args[1]), err)
			}
			if err != nil {
				return err
			}

			groups, err := a.Quotes.Groups(ctx, id)
			if err != nil {
				return err
			}
			inputs := quote.InputsFromGroups(groups)
			gi := -1
			for i, g := range inputs {
				if strings.EqualFold(g.Name, groupName) {
					gi = i
					break
				}
			}
			if gi < 0 {
				inputs = append(inputs, quote.GroupInput{Name: groupName, SelectionMode: model.SelectAll})
				gi = len(inputs) - 1
			}

			line := quote.LineInput{
				PricingItemID: &item.ID,
				Title:         item.Title,
				Description:   item.Description,
				UnitType:      item.UnitType,
				LineSKU:       item.SKU,
				Quantity:      qty,
				Formula:       formulaText,
				ItemType:      model.ItemStandard,
				IsSelected:    true,
			}
			if q.Format == model.FormatInsurance {
				line.MaterialCost = decimal.NewNullDecimal(item.UnitPrice)
			}
			inputs[gi].Items = append(inputs[gi].Items, line)

			result, err := a.Quotes.SaveGroups(ctx, id, inputs)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(result.Invalid) > 0 {
				fmt.Fprintln(out, cli.FormatWarning("The quantity or formula could not be evaluated; the line was saved with its previous value"))
			}
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Added %s to %s; quote total %s",
				item.SKU, inputs[gi].Name, result.Totals.GrandTotal.StringFixed(2))))
			return nil
		},
	}
	cmd.Flags().String("group", "Items", "group to add the line to; created when missing")
	cmd.Flags().String("qty", "1", "quantity or arithmetic expression")
	cmd.Flags().String("formula", "$", "price formula")
	return cmd
}

func quoteFormatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "format <id> <standard|insurance>",
		Short: "Switch the pricing format of a quote",
		Long: `Switch a quote between standard and insurance pricing. Moving to insurance
merges every group into the first one; moving back to standard keeps the
merged group. Line prices are recomputed for the new format.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "quote")
			if err != nil {
				return err
			}
			to, err := model.ParseQuoteFormat(args[1])
			if err != nil {
				return common.NewUserError(err.Error(), common.ErrInvalidFormat)
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			q, err := a.Store.GetQuote(ctx, id)
			if err != nil {
				return err
			}
			if q.Format == to {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(fmt.Sprintf("Quote %d is already %s", id, to)))
				return nil
			}
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				reader := cli.NewNonBlockingReader(cmd.InOrStdin())
				ok, err := reader.Confirm(ctx, cmd.OutOrStdout(), fmt.Sprintf("Switching quote %d from %s to %s cannot be undone. Continue?", id, q.Format, to))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Format unchanged"))
					return nil
				}
			}

			groups, err := a.Quotes.SetFormat(ctx, id, to)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Quote %d is now %s with %d lines", id, to, model.ItemCount(groups))))
			return nil
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	return cmd
}

func quoteEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Open the line item table of a quote",
		Long: `Open the line item table in the terminal. Resize columns with +/- or by
dragging their right edge, move them with H/L or by dragging the header.
The layout is saved per quote format as you change it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "quote")
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			opts := []tui.Option{tui.FromApp(a)}
			if theme, _ := cmd.Flags().GetString("theme"); theme != "" {
				opts = append(opts, tui.WithTheme(themes.GetTheme(theme)))
			}
			if noMouse, _ := cmd.Flags().GetBool("no-mouse"); noMouse {
				opts = append(opts, tui.WithMouse(false))
			}
			if err := tui.Run(ctx, id, opts...); err != nil && !errors.Is(err, ctx.Err()) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().String("theme", "", "color theme (default, catppuccin-mocha)")
	cmd.Flags().Bool("no-mouse", false, "disable mouse support")
	return cmd
}
