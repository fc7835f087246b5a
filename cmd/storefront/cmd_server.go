package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/storefront/pkg/app"
)

// storefront serve
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"run", "start"},
	Short:   "Start the HTTP server with its background workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.Application) error {
			return a.Serve(ctx)
		})
	},
}

// storefront route:list
var routeListCmd = &cobra.Command{
	Use:   "route:list",
	Short: "List every registered route",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.PrintRoutes(os.Stdout)
	},
}
