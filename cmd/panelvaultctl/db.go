package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	sqliteadapter "github.com/ericfisherdev/panelvault/internal/adapter/driven/sqlite"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the database",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.ErrOrStderr(), "error: Command 'db' requires a subcommand migrate")
		fmt.Fprintln(cmd.ErrOrStderr())
		_ = cmd.Help()
		os.Exit(1)
	},
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := dbPath()
		if err != nil {
			return err
		}
		db, err := openDB(cmd.Context(), path)
		if err != nil {
			return err
		}
		defer db.Close()

		version, dirty, err := sqliteadapter.SchemaVersion(db.Writer)
		if err != nil {
			return err
		}
		if dirty {
			return fmt.Errorf("database %s is dirty at schema version %d", path, version)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "database %s is at schema version %d\n", path, version)
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd)
	rootCmd.AddCommand(dbCmd)
}
