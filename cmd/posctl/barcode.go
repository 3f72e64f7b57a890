package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-pos/internal/barcode"
)

func newBarcodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "barcode",
		Short: "Generate and render product barcodes",
	}

	var count int
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Print random 13 digit barcodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count <= 0 {
				return fmt.Errorf("--count must be positive")
			}
			for i := 0; i < count; i++ {
				fmt.Fprintln(cmd.OutOrStdout(), barcode.Generate(nil))
			}
			return nil
		},
	}
	generate.Flags().IntVarP(&count, "count", "n", 1, "how many to print")

	var (
		height   int
		noText   bool
		modWidth int
	)
	render := &cobra.Command{
		Use:   "svg <value>",
		Short: "Render value as a CODE128 SVG on stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return barcode.Code128SVG(cmd.OutOrStdout(), args[0], barcode.Options{
				ModuleWidth: modWidth,
				Height:      height,
				ShowText:    !noText,
			})
		},
	}
	render.Flags().IntVar(&height, "height", 0, "bar height in pixels")
	render.Flags().IntVar(&modWidth, "module-width", 0, "narrow bar width in pixels")
	render.Flags().BoolVar(&noText, "no-text", false, "omit the human readable line")

	cmd.AddCommand(generate, render)
	return cmd
}
