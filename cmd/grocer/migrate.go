package main

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/grocer/internal/cli"
	"github.com/Veraticus/grocer/internal/config"
	"github.com/Veraticus/grocer/internal/storage"
)

const (
	preMigrateLabel = "pre-migrate"
	keepPreMigrate  = 5
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Every other command migrates on open, so this is only needed to inspect
or prepare a database ahead of time. An existing database is backed up
before it is upgraded.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "show the schema version without applying changes")
	cmd.Flags().Bool("backup", true, "back up an existing database before upgrading it")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")
	backup, _ := cmd.Flags().GetBool("backup")
	dbPath := config.DatabasePath(viper.GetViper())

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	current, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if status {
		fmt.Fprintf(cmd.OutOrStdout(), "Database:        %s\n", dbPath)
		fmt.Fprintf(cmd.OutOrStdout(), "Current version: %d\n", current)
		fmt.Fprintf(cmd.OutOrStdout(), "Latest version:  %d\n", storage.ExpectedSchemaVersion)
		return nil
	}

	if current >= storage.ExpectedSchemaVersion {
		slog.Info("Database is up to date", "version", current)
		return nil
	}

	if backup && current > 0 {
		info, err := store.Backup(ctx, preMigrateLabel)
		if err != nil {
			return fmt.Errorf("backup before migration failed: %w", err)
		}
		slog.Info("Backed up database", "file", info.Path)
		if _, err := store.PruneBackups(ctx, preMigrateLabel, keepPreMigrate); err != nil {
			slog.Warn("Failed to prune old backups", "error", err)
		}
	}

	slog.Info("Running database migrations", "database", dbPath, "from", current)
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	slog.Info("Database migrations completed", "version", storage.ExpectedSchemaVersion)
	return nil
}

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, _ := cmd.Flags().GetBool("list")
			label, _ := cmd.Flags().GetString("label")

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if list {
				backups, err := store.ListBackups(cmd.Context())
				if err != nil {
					return err
				}
				if len(backups) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No backups"))
					return nil
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "ID\tCREATED\tSCHEMA\tMAPPINGS\tBRANDS\t")
				for _, b := range backups {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t\n", b.ID, b.CreatedAt.Format("2006-01-02 15:04"),
						b.SchemaVersion, b.RowCounts["product_mappings"], b.RowCounts["brand_preferences"])
				}
				return tw.Flush()
			}

			info, err := store.Backup(cmd.Context(), label)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Backed up to "+info.Path))
			return nil
		},
	}
	cmd.Flags().Bool("list", false, "list existing backups")
	cmd.Flags().String("label", "manual", "label for the backup file")
	return cmd
}
