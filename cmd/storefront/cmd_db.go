package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/pkg/app"
)

// storefront indexes
var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "Create the MongoDB indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.Application) error {
			if err := a.Indexes(ctx); err != nil {
				return err
			}
			fmt.Println("✅ Indexes ready")
			return nil
		})
	},
}

// storefront seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the admin user and a sample catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.Application) error {
			fmt.Println("Running seeders…")
			return a.Seed(ctx, os.Stdout)
		})
	},
}

var reconcileOlderThan time.Duration

// storefront orders:reconcile
var reconcileCmd = &cobra.Command{
	Use:   "orders:reconcile",
	Short: "Confirm or delete checkout drafts left by an interrupted checkout",
	RunE: func(cmd *cobra.Command, args []string) error {
		olderThan := reconcileOlderThan
		if olderThan <= 0 {
			olderThan = config.ReconcileAfter()
		}
		return withApp(func(ctx context.Context, a *app.Application) error {
			return a.ReconcileOrders(ctx, olderThan, os.Stdout)
		})
	},
}

func init() {
	reconcileCmd.Flags().DurationVar(&reconcileOlderThan, "older-than", 0, "only drafts older than this duration (default RECONCILE_AFTER)")
}
