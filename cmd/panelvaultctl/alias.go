package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	sqliteadapter "github.com/ericfisherdev/panelvault/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/panelvault/internal/application"
)

var aliasCmd = &cobra.Command{
	Use:   "alias",
	Short: "Manage server aliases",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.ErrOrStderr(), "error: Command 'alias' requires a subcommand set, list or delete")
		fmt.Fprintln(cmd.ErrOrStderr())
		_ = cmd.Help()
		os.Exit(1)
	},
}

var aliasPanel string

var aliasSetCmd = &cobra.Command{
	Use:   "set <name> <server-uuid>",
	Short: "Create or replace a server alias",
	Long: `Maps a friendly name to a server UUID. With --panel the alias is bound
to that panel and resolves without contacting it.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAliasDirectory(cmd.Context(), func(dir *application.AliasDirectory) error {
			return setAlias(cmd.Context(), dir, cmd.OutOrStdout(), args[0], args[1], aliasPanel)
		})
	},
}

var aliasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List server aliases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAliasDirectory(cmd.Context(), func(dir *application.AliasDirectory) error {
			return listAliases(cmd.Context(), dir, cmd.OutOrStdout())
		})
	},
}

var aliasDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a server alias",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAliasDirectory(cmd.Context(), func(dir *application.AliasDirectory) error {
			if err := dir.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted alias %s\n", args[0])
			return nil
		})
	},
}

func init() {
	aliasSetCmd.Flags().StringVar(&aliasPanel, "panel", "", "panel URL the server lives on")
	aliasCmd.AddCommand(aliasSetCmd, aliasListCmd, aliasDeleteCmd)
	rootCmd.AddCommand(aliasCmd)
}

func withAliasDirectory(ctx context.Context, fn func(*application.AliasDirectory) error) error {
	path, err := dbPath()
	if err != nil {
		return err
	}
	db, err := openDB(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	return fn(application.NewAliasDirectory(sqliteadapter.NewAliasRepo(db), slog.Default()))
}

func setAlias(ctx context.Context, dir *application.AliasDirectory, out io.Writer, name, serverUUID, panelURL string) error {
	alias, err := dir.Set(ctx, name, serverUUID, panelURL)
	if err != nil {
		return err
	}
	if alias.PanelURL == "" {
		_, err = fmt.Fprintf(out, "%s -> %s\n", alias.Name, alias.ServerUUID)
	} else {
		_, err = fmt.Fprintf(out, "%s -> %s on %s\n", alias.Name, alias.ServerUUID, alias.PanelURL)
	}
	return err
}

func listAliases(ctx context.Context, dir *application.AliasDirectory, out io.Writer) error {
	aliases, err := dir.List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ALIAS\tSERVER\tPANEL")
	for _, a := range aliases {
		panel := a.PanelURL
		if panel == "" {
			panel = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Name, a.ServerUUID, panel)
	}
	return tw.Flush()
}
