package main

import (
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/PrintReady/internal/resolver"
)

func newResolveCmd() *cobra.Command {
	var (
		designFile, catalogFile string
		designID, sku           string
		orderID, lineItemID     string
		defaultBucket           string
	)
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the render payload for a design from local JSON records",
		RunE: func(cmd *cobra.Command, args []string) error {
			design, err := readJSONFile(designFile)
			if err != nil {
				return err
			}
			item, err := readJSONFile(catalogFile)
			if err != nil {
				return err
			}
			res, err := resolver.New(defaultBucket).Resolve(resolver.Input{
				DesignID:    designID,
				Design:      design,
				CatalogItem: item,
				SKU:         sku,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"payload": res.Payload(designID, orderID, lineItemID),
				"origins": map[string]string{
					"printSpec": res.PrintSpecOrigin,
					"safeArea":  res.SafeAreaOrigin,
					"source":    res.SourceOrigin,
				},
			})
		},
	}
	cmd.Flags().StringVar(&designFile, "design", "", "Design record JSON file")
	cmd.Flags().StringVar(&catalogFile, "catalog", "", "Catalog item record JSON file")
	cmd.Flags().StringVar(&designID, "design-id", "design", "Design id")
	cmd.Flags().StringVar(&sku, "sku", "", "Requested SKU")
	cmd.Flags().StringVar(&orderID, "order", "order", "Order id written into the payload")
	cmd.Flags().StringVar(&lineItemID, "line-item", "line-item", "Line item id written into the payload")
	cmd.Flags().StringVar(&defaultBucket, "default-bucket", "", "Bucket for bare object paths")
	_ = cmd.MarkFlagRequired("design")
	return cmd
}
