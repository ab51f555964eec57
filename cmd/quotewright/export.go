package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/quotewright/internal/app"
	"github.com/Veraticus/quotewright/internal/cli"
	"github.com/Veraticus/quotewright/internal/config"
	"github.com/Veraticus/quotewright/internal/export"
	"github.com/Veraticus/quotewright/internal/model"
	"github.com/Veraticus/quotewright/internal/tui"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export quotes to spreadsheets",
		Long: `Export a quote with its groups and totals. Columns follow the order and
widths saved from the line item table for the quote's format.`,
	}
	cmd.PersistentFlags().Bool("default-layout", false, "ignore the saved column layout")
	cmd.AddCommand(exportXLSXCmd(), exportSheetsCmd())
	return cmd
}

// savedLayout returns the column order and widths saved for the line item
// table of a format. A missing or unreadable preference yields neither.
func savedLayout(ctx context.Context, a *app.App, format model.QuoteFormat) ([]string, map[string]int) {
	payload, ok, err := a.Prefs.Load(ctx, tui.PrefsContext(format))
	if err != nil {
		slog.Warn("Failed to load saved column layout", "format", format, "error", err)
		return nil, nil
	}
	if !ok {
		return nil, nil
	}
	return payload.Order, payload.Widths
}

func loadSheet(cmd *cobra.Command, a *app.App, quoteID int64) (export.Sheet, map[string]int, error) {
	ctx := cmd.Context()
	doc, err := export.LoadDocument(ctx, a.Quotes, quoteID)
	if err != nil {
		return export.Sheet{}, nil, err
	}
	var (
		order  []string
		widths map[string]int
	)
	if plain, _ := cmd.Flags().GetBool("default-layout"); !plain {
		order, widths = savedLayout(ctx, a, doc.Quote.Format)
	}
	return export.Build(doc, export.Columns(doc.Quote.Format, order)), widths, nil
}

func exportXLSXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "xlsx <quote-id>",
		Short: "Write a quote to an xlsx workbook",
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

			sheet, widths, err := loadSheet(cmd, a, id)
			if err != nil {
				return err
			}

			path, _ := cmd.Flags().GetString("output")
			if path == "" {
				path = fmt.Sprintf("quote-%d.xlsx", id)
			}
			path = config.ExpandPath(path)
			if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", path, err)
			}
			if err := export.WriteXLSX(f, sheet, export.XLSXOptions{Widths: widths}); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Exported quote to "+path))
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "output file (default: quote-<id>.xlsx)")
	return cmd
}

func exportSheetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sheets <quote-id>",
		Short: "Write a quote to a tab of the configured Google spreadsheet",
		Long: `Write a quote to Google Sheets, one tab per quote. Configure a service
account with sheets.service_account_path, or run 'quotewright auth sheets'
once to authorize with OAuth2.`,
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

			sheet, _, err := loadSheet(cmd, a, id)
			if err != nil {
				return err
			}

			writer, err := export.NewSheetsWriter(ctx, config.LoadSheetsConfig(viper.GetViper()), a.Logger)
			if err != nil {
				return fmt.Errorf("failed to connect to Google Sheets: %w", err)
			}
			url, err := writer.Write(ctx, sheet)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Exported quote to Google Sheets"))
			if url = strings.TrimSpace(url); url != "" {
				fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render(url))
			}
			return nil
		},
	}
}
