package main

import (
	"alcyxob/plan-tracker/internal/config"
	"alcyxob/plan-tracker/internal/repository/mongo"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newIndexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Create the MongoDB indexes and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			if cfg.Database.Driver != config.DriverMongo {
				return errors.New("indexes requires database.driver=mongo")
			}

			client, err := mongo.ConnectDB(cfg.Database.URI)
			if err != nil {
				return fmt.Errorf("connect mongo: %w", err)
			}
			defer func() { _ = mongo.DisconnectDB(client) }()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			if err := mongo.EnsureIndexes(ctx, client.Database(cfg.Database.Name), log); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "indexes ensured on", cfg.Database.Name)
			return nil
		},
	}
}
