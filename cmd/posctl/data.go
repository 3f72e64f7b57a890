package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-pos/internal/app"
	"github.com/odyssey-erp/odyssey-pos/internal/transfer"
)

func newExportCmd() *cobra.Command {
	var (
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export [collection]",
		Short: "Export the whole store or one collection",
		Long:  "Without a collection, export writes products, bills and settings as one JSON document. With a collection, --format selects json or csv.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := transfer.ParseFormat(format)
			if err != nil {
				return err
			}
			w, closeOut, err := openOutput(cmd, out)
			if err != nil {
				return err
			}
			defer closeOut()
			return withServices(cmd, func(svc *app.Services) error {
				if len(args) == 1 {
					return svc.Transfer.ExportCollection(cmd.Context(), args[0], f, w)
				}
				doc, err := svc.Transfer.ExportAll(cmd.Context())
				if err != nil {
					return err
				}
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(doc)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "json or csv")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (defaults to stdout)")
	return cmd
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import products from a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()
			return withServices(cmd, func(svc *app.Services) error {
				res, err := svc.Transfer.ImportProducts(cmd.Context(), operator.UserID, io.LimitReader(file, transfer.MaxImportBytes))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d products, %d failed\n", res.Imported, res.Failed)
				for _, msg := range res.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", msg)
				}
				return nil
			})
		},
	}
}

func openOutput(cmd *cobra.Command, path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}
