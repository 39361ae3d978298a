package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/PrintReady/internal/model"
	"github.com/dharsanguruparan/PrintReady/internal/preflight"
	"github.com/dharsanguruparan/PrintReady/internal/transform"
)

// specFlags builds a payload from flags when no payload file is given.
type specFlags struct {
	payloadFile string
	spec        model.PrintSpec
	format      string
}

func (f *specFlags) register(cmd *cobra.Command) {
	def := model.DefaultPrintSpec()
	cmd.Flags().StringVar(&f.payloadFile, "payload", "", "Render payload JSON file (overrides the page flags)")
	cmd.Flags().Float64Var(&f.spec.WidthMM, "width-mm", def.WidthMM, "Trimmed page width in mm")
	cmd.Flags().Float64Var(&f.spec.HeightMM, "height-mm", def.HeightMM, "Trimmed page height in mm")
	cmd.Flags().Float64Var(&f.spec.DPI, "dpi", def.DPI, "Requested resolution")
	cmd.Flags().Float64Var(&f.spec.BleedMM, "bleed-mm", def.BleedMM, "Bleed in mm")
	cmd.Flags().Float64Var(&f.spec.SafeZoneMM, "safe-zone-mm", def.SafeZoneMM, "Safe zone in mm")
	cmd.Flags().StringVar(&f.format, "format", string(def.OutputFormat), "Output format: tiff, pdf or both")
}

func (f *specFlags) payload(source model.StorageReference) (model.RenderPayload, error) {
	if f.payloadFile != "" {
		data, err := os.ReadFile(f.payloadFile)
		if err != nil {
			return model.RenderPayload{}, err
		}
		return model.DecodePayload(data)
	}
	spec := f.spec
	spec.OutputFormat = model.OutputFormat(f.format)
	p := model.RenderPayload{
		DesignID:   "local",
		OrderID:    "local",
		LineItemID: "local",
		Source:     source,
		PrintSpec:  spec,
		SafeArea:   model.InsetSafeArea(spec),
	}
	return p, p.Validate()
}

func newPreflightCmd() *cobra.Command {
	var flags specFlags
	cmd := &cobra.Command{
		Use:   "preflight IMAGE",
		Short: "Check an image against a print spec without rendering",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			img, format, err := transform.Decode(data)
			if err != nil {
				return err
			}
			payload, err := flags.payload(model.StorageReference{Bucket: "local", Path: args[0]})
			if err != nil {
				return err
			}
			b := img.Bounds()
			width, height := preflight.RequiredPixels(payload.PrintSpec)
			checks, checkErr := preflight.Validate(b.Dx(), b.Dy(), payload)
			out := map[string]any{
				"source":   map[string]any{"format": format, "widthPx": b.Dx(), "heightPx": b.Dy()},
				"required": map[string]int{"widthPx": width, "heightPx": height},
				"checks":   checks,
				"passed":   checkErr == nil,
			}
			if checkErr != nil {
				out["error"] = checkErr.Error()
			}
			if err := printJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if checkErr != nil {
				return fmt.Errorf("preflight failed")
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
