// Command storefront runs the storefront API and its maintenance tasks.
//
//	storefront serve              # HTTP API, websocket hub, queue workers, scheduler
//	storefront indexes            # create MongoDB indexes
//	storefront seed               # admin user + sample catalog
//	storefront orders:reconcile   # settle checkout drafts left by a crash
//	storefront route:list
//	storefront products:export -o catalog.xlsx
//	storefront products:import catalog.xlsx
//	storefront queue:work -w 4
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/storefront/pkg/app"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "storefront",
	Short:         "Storefront API server and maintenance commands",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routeListCmd)

	rootCmd.AddCommand(indexesCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(reconcileCmd)

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)

	rootCmd.AddCommand(queueWorkCmd)
}

// withApp boots the application for the duration of fn, cancelling the
// context on SIGINT/SIGTERM.
func withApp(fn func(ctx context.Context, a *app.Application) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Boot(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background()) //nolint:errcheck

	return fn(ctx, a)
}
