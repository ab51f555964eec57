package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/quotewright/internal/cli"
)

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot and verify the database",
	}
	cmd.AddCommand(backupCreateCmd(), backupListCmd(), backupVerifyCmd())
	return cmd
}

func backupCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create [tag]",
		Short: "Create a database snapshot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			tag := ""
			if len(args) == 1 {
				tag = args[0]
			}
			ctx, stop := context.WithCancel(ctx)
			defer stop()
			handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
			ctx = handler.HandleInterrupts(ctx, "Backup", "The partial snapshot was not recorded.")

			info, err := a.Store.Backup(ctx, tag)
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created backup %s (%d bytes)", info.ID, info.FileSize)))
			fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render(info.Path))
			return nil
		},
	}
}

func backupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List snapshots",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			backups, err := a.Store.ListBackups(ctx)
			if err != nil {
				return err
			}
			if len(backups) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.InfoStyle.Render("No backups yet. Use 'quotewright backup create' to make one."))
				return nil
			}

			rows := make([][]string, 0, len(backups))
			for _, b := range backups {
				rows = append(rows, []string{
					b.ID,
					b.CreatedAt.Format("2006-01-02 15:04"),
					strconv.Itoa(b.SchemaVersion),
					strconv.Itoa(b.RowCounts["catalog_items"]),
					strconv.Itoa(b.RowCounts["quotes"]),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTable(
				[]string{"ID", "Created", "Schema", "Items", "Quotes"}, rows, 2, 3, 4))
			return nil
		},
	}
}

func backupVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <id>",
		Short: "Check that a snapshot opens and matches its recorded row counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			if err := a.Store.VerifyBackup(ctx, args[0]); err != nil {
				return fmt.Errorf("backup %s failed verification: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Backup "+args[0]+" verified"))
			return nil
		},
	}
}
