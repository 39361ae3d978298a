package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/PrintReady/internal/blobstore"
	"github.com/dharsanguruparan/PrintReady/internal/model"
	"github.com/dharsanguruparan/PrintReady/internal/render"
	"github.com/dharsanguruparan/PrintReady/internal/repository"
)

const localSourceBucket = "source"

func newRenderCmd() *cobra.Command {
	var (
		flags  specFlags
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "render IMAGE",
		Short: "Render print-ready files for a local image into a directory",
		Long: `render runs the full pipeline against a local directory tree. The image is
staged at the payload's source location (OUT/source/<name> unless --payload says
otherwise), artifacts land under OUT/output/prints/... and the line item record
the pipeline would write is printed to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			blobs := blobstore.NewLocalStore(outDir)
			source := model.StorageReference{Bucket: localSourceBucket, Path: filepath.Base(args[0])}
			payload, err := flags.payload(source)
			if err != nil {
				return err
			}
			if err := blobs.Upload(ctx, payload.Source, data, ""); err != nil {
				return err
			}

			docs := repository.NewMemoryStore()
			pipeline := render.NewPipeline(blobs, docs, "output", cliLogger(cmd))
			outcome, err := pipeline.Run(ctx, payload)
			if err != nil {
				if outcome != nil && outcome.Report != nil {
					_ = printJSON(cmd.OutOrStdout(), outcome.Report)
				}
				return err
			}
			item, err := docs.Get(ctx, repository.LineItems(payload.OrderID), payload.LineItemID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), item)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&outDir, "out", "o", "printready-out", "Output directory")
	return cmd
}
