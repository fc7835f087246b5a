package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/storefront/pkg/app"
)

var exportPath string

// storefront products:export
var exportCmd = &cobra.Command{
	Use:   "products:export",
	Short: "Write the catalog to an xlsx workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := exportPath
		if path == "" {
			path = "products-" + time.Now().UTC().Format("20060102") + ".xlsx"
		}
		return withApp(func(ctx context.Context, a *app.Application) error {
			if err := a.ExportProducts(ctx, path); err != nil {
				return err
			}
			fmt.Println("✅ Exported:", path)
			return nil
		})
	},
}

// storefront products:import <file.xlsx>
var importCmd = &cobra.Command{
	Use:   "products:import <file.xlsx>",
	Short: "Create or update products from an xlsx workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.Application) error {
			return a.ImportProducts(ctx, args[0], os.Stdout)
		})
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportPath, "output", "o", "", "output file (default products-YYYYMMDD.xlsx)")
}
