package main

import (
	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/PrintReady/internal/config"
	"github.com/dharsanguruparan/PrintReady/internal/database"
	"github.com/dharsanguruparan/PrintReady/internal/prepare"
	"github.com/dharsanguruparan/PrintReady/internal/queue"
	"github.com/dharsanguruparan/PrintReady/internal/repository"
	"github.com/dharsanguruparan/PrintReady/internal/resolver"
)

func newEnqueueCmd() *cobra.Command {
	var req prepare.Request
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Resolve a line item against the configured database and enqueue its render",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			pool, err := database.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()
			docs := repository.NewPostgresStore(pool)

			client := asynq.NewClient(asynq.RedisClientOpt{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			defer client.Close()

			preparer := prepare.New(docs, resolver.New(cfg.DefaultSourceBucket), client, cfg.QueueName, queue.PolicyFromConfig(cfg), cliLogger(cmd))
			res, err := preparer.Prepare(ctx, req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"taskId":  res.TaskID,
				"queue":   res.Queue,
				"payload": res.Payload,
			})
		},
	}
	cmd.Flags().StringVar(&req.DesignID, "design-id", "", "Design id")
	cmd.Flags().StringVar(&req.SKU, "sku", "", "Requested SKU")
	cmd.Flags().StringVar(&req.CatalogItemID, "catalog-item", "", "Catalog item id (defaults to the SKU)")
	cmd.Flags().StringVar(&req.OrderID, "order", "", "Order id")
	cmd.Flags().StringVar(&req.LineItemID, "line-item", "", "Line item id")
	cmd.Flags().StringVar(&req.OutputBucket, "output-bucket", "", "Artifact bucket override")
	for _, name := range []string{"design-id", "order", "line-item"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
