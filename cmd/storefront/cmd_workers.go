package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/storefront/pkg/app"
)

var queueWorkersFlag int

// storefront queue:work
var queueWorkCmd = &cobra.Command{
	Use:   "queue:work",
	Short: "Process queued jobs from Redis",
	RunE: func(cmd *cobra.Command, args []string) error {
		workers := max(queueWorkersFlag, 1)
		return withApp(func(ctx context.Context, a *app.Application) error {
			fmt.Printf("🚀 Queue worker started (%d workers). Press Ctrl+C to stop.\n", workers)
			if err := a.Work(ctx, workers); err != nil {
				return err
			}
			fmt.Println("\n⚡ Queue worker stopped.")
			return nil
		})
	},
}

func init() {
	queueWorkCmd.Flags().IntVarP(&queueWorkersFlag, "workers", "w", 5, "Number of concurrent workers")
}
