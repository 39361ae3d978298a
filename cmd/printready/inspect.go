package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	pdfutil "github.com/dharsanguruparan/PrintReady/internal/pdf"
	"github.com/dharsanguruparan/PrintReady/internal/transform"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "Print the density, ICC and page metadata of a rendered TIFF or PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			out := map[string]any{"file": args[0], "bytes": len(data), "checksum": transform.Checksum(data)}
			switch {
			case bytes.HasPrefix(data, []byte("%PDF-")):
				info, err := pdfutil.Inspect(data)
				if err != nil {
					return err
				}
				out["format"] = "pdf"
				out["pages"] = info.Pages
				out["widthPt"] = info.WidthPt
				out["heightPt"] = info.HeightPt
			case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
				md, err := transform.InspectTIFF(data)
				if err != nil {
					return err
				}
				img, _, err := transform.Decode(data)
				if err != nil {
					return err
				}
				out["format"] = "tiff"
				out["widthPx"] = img.Bounds().Dx()
				out["heightPx"] = img.Bounds().Dy()
				out["xDpi"] = md.XDPI
				out["yDpi"] = md.YDPI
				out["iccProfileBytes"] = len(md.ICCProfile)
				if len(md.ICCProfile) > 0 {
					out["iccValid"] = transform.ValidateICC(md.ICCProfile) == nil
				}
			default:
				return fmt.Errorf("%s is neither a TIFF nor a PDF", args[0])
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}
