package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/quotewright/internal/cli"
	"github.com/Veraticus/quotewright/internal/common"
	"github.com/Veraticus/quotewright/internal/model"
	"github.com/Veraticus/quotewright/internal/prefs"
	"github.com/Veraticus/quotewright/internal/tui"
)

func prefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Inspect and reset saved table layouts",
	}
	cmd.AddCommand(prefsShowCmd(), prefsResetCmd())
	return cmd
}

func formatArg(args []string) (model.QuoteFormat, error) {
	s := ""
	if len(args) > 0 {
		s = args[0]
	}
	format, err := model.ParseQuoteFormat(s)
	if err != nil {
		return "", common.NewUserError(err.Error(), common.ErrInvalidFormat)
	}
	return format, nil
}

func prefsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [standard|insurance]",
		Short: "Show the saved line item layout of a quote format",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			format, err := formatArg(args)
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			pc := tui.PrefsContext(format)
			payload, ok, err := a.Prefs.Load(ctx, pc)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !ok || payload.Empty() {
				fmt.Fprintln(out, cli.FormatInfo("No layout saved for "+pc.Key()))
				return nil
			}

			fmt.Fprintln(out, cli.FormatTitle(pc.Key()))
			rows := make([][]string, 0, len(payload.Order))
			for i, key := range payload.Order {
				width := ""
				if w, ok := payload.Widths[key]; ok {
					width = strconv.Itoa(w)
				}
				rows = append(rows, []string{strconv.Itoa(i + 1), key, width})
			}
			fmt.Fprintln(out, cli.RenderTable([]string{"#", "Column", "Width"}, rows, 0, 2))
			return nil
		},
	}
}

func prefsResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset [standard|insurance]",
		Short: "Forget the saved line item layout of a quote format",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			format, err := formatArg(args)
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			pc := tui.PrefsContext(format)
			if err := a.Prefs.Save(ctx, pc, prefs.Payload{}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Reset "+pc.Key()))
			return nil
		},
	}
}
