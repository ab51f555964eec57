package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/quotewright/internal/catalog"
	"github.com/Veraticus/quotewright/internal/cli"
	"github.com/Veraticus/quotewright/internal/model"
)

func presetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "Load and apply trade presets",
		Long: `Trade presets are starter groups of catalog items for a trade and quote
format, kept in YAML files.`,
	}
	cmd.AddCommand(presetLoadCmd(), presetListCmd(), presetApplyCmd())
	return cmd
}

func presetLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <file-or-directory>",
		Short: "Store the presets of a YAML file or of every YAML file in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			presets, err := catalog.LoadPresets(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			if err := a.Catalog.ImportPresets(ctx, presets); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Loaded %d presets", len(presets))))
			return nil
		},
	}
}

func presetListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored presets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			presets, err := a.Store.ListTradePresets(ctx)
			if err != nil {
				return err
			}
			if len(presets) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.InfoStyle.Render("No presets. Use 'quotewright preset load' to add some."))
				return nil
			}
			rows := make([][]string, 0, len(presets))
			for _, p := range presets {
				items := 0
				for _, g := range p.Groups {
					items += len(g.Items)
				}
				rows = append(rows, []string{fmt.Sprint(p.TradeID), string(p.Format), p.Name, fmt.Sprint(len(p.Groups)), fmt.Sprint(items)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTable([]string{"Trade", "Format", "Name", "Groups", "Items"}, rows, 0, 3, 4))
			return nil
		},
	}
}

func presetApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply <quote-id> <trade-id>",
		Short: "Populate an empty quote from a trade preset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			quoteID, err := parseID(args[0], "quote")
			if err != nil {
				return err
			}
			tradeID, err := parseID(args[1], "trade")
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			result, err := a.Catalog.ApplyPreset(ctx, catalog.PresetRequest{
				QuoteID: quoteID,
				TradeID: tradeID,
				Format:  model.QuoteFormat(format),
				Persist: true,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !result.Applied {
				fmt.Fprintln(out, cli.FormatWarning(result.Message))
				return nil
			}
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Added %d groups with %d lines", len(result.Groups), model.ItemCount(result.Groups))))
			if result.MissingCount > 0 {
				fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("%d preset items are not in the catalog and were skipped", result.MissingCount)))
			}
			return nil
		},
	}
	cmd.Flags().String("format", "", "preset format (default: the quote's format)")
	return cmd
}
