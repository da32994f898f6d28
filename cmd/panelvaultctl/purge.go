package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/panelvault/internal/adapter/driven/aesgcm"
	"github.com/ericfisherdev/panelvault/internal/adapter/driven/redislock"
	sqliteadapter "github.com/ericfisherdev/panelvault/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/panelvault/internal/application"
	"github.com/ericfisherdev/panelvault/internal/config"
	"github.com/ericfisherdev/panelvault/internal/domain/port/driven"
)

var purgeDays int

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove revoked and inactive credentials",
	Long: `Deletes revoked credentials and credentials unused for the purge horizon.
The horizon defaults to PANELVAULT_CRED_PURGE_DAYS. When PANELVAULT_REDIS_ADDR
is set the run takes the same lock as the server's purge loop.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPurge(cmd.Context(), cmd.OutOrStdout(), cmd.Flags().Changed("days"))
	},
}

func init() {
	purgeCmd.Flags().IntVar(&purgeDays, "days", 0, "inactivity horizon in days (overrides PANELVAULT_CRED_PURGE_DAYS)")
	rootCmd.AddCommand(purgeCmd)
}

func runPurge(ctx context.Context, out io.Writer, daysSet bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := config.LoadEnvFile(".env"); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	days := cfg.PurgeDays
	if daysSet {
		days = purgeDays
	}

	db, err := openDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	cipher, err := aesgcm.New(cfg.EncryptionKey)
	if err != nil {
		return err
	}
	vault := application.NewVault(sqliteadapter.NewCredentialRepo(db), cipher, application.VaultConfig{
		KeyVersion:    cfg.KeyVersion,
		LabelAlphabet: cfg.LabelAlphabet,
	}, slog.Default(), nil)

	var lock driven.SweepLock = redislock.NewLocal()
	if cfg.HasRedis() {
		redisLock, client, err := redislock.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		lock = redisLock
	}

	return purgeOnce(ctx, application.NewPurgeService(vault, lock, days, 0, slog.Default(), nil), out)
}

func purgeOnce(ctx context.Context, svc *application.PurgeService, out io.Writer) error {
	n, ok := svc.RunOnce(ctx)
	if !ok {
		return errors.New("purge did not run: lock held or sweep failed")
	}
	_, err := fmt.Fprintf(out, "purged %d credentials\n", n)
	return err
}
