package app

// pkg/app/commands.go: the work behind the CLI sub-commands that need a
// booted Application.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shashiranjanraj/storefront/app/routes"
	"github.com/shashiranjanraj/storefront/database/migrations"
	"github.com/shashiranjanraj/storefront/database/seeders"
	"github.com/shashiranjanraj/storefront/pkg/router"
)

// Indexes creates every registered MongoDB index.
func (a *Application) Indexes(ctx context.Context) error {
	return migrations.Run(ctx, a.Mongo)
}

// Seed runs the registered seeders.
func (a *Application) Seed(ctx context.Context, out io.Writer) error {
	return seeders.RunAll(ctx, seeders.Deps{Users: a.Repos.Users, Products: a.Repos.Products}, out)
}

// ReconcileOrders settles checkout drafts older than olderThan once and
// prints the outcome.
func (a *Application) ReconcileOrders(ctx context.Context, olderThan time.Duration, out io.Writer) error {
	res, err := a.Orders.ReconcileDrafts(ctx, olderThan)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "confirmed %d, deleted %d\n", res.Confirmed, res.Deleted)
	return nil
}

// ExportProducts writes the catalog workbook to path.
func (a *Application) ExportProducts(ctx context.Context, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := a.Products.Export(ctx, f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ImportProducts upserts the catalog from the workbook at path.
func (a *Application) ImportProducts(ctx context.Context, path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}
	res, err := a.Products.Import(ctx, f, st.Size())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created %d, updated %d, skipped %d\n", res.Created, res.Updated, res.Skipped)
	for _, e := range res.Errors {
		fmt.Fprintln(out, "  •", e)
	}
	return nil
}

// Work runs queue workers until ctx is cancelled. Jobs pushed by another
// process only arrive through Redis.
func (a *Application) Work(ctx context.Context, workers int) error {
	if a.Redis == nil {
		return errors.New("queue:work needs Redis; jobs run inside serve otherwise")
	}
	a.Queue.Start(ctx, workers)
	<-ctx.Done()
	a.Queue.Wait()
	return nil
}

// PrintRoutes writes the route table. It needs no connections.
func PrintRoutes(out io.Writer) error {
	r := router.New()
	routes.Register(r, routes.Handlers{})

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "METHOD\tPATH\tNAME")
	fmt.Fprintln(w, "------\t----\t----")
	for _, ri := range r.Routes() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
	}
	return w.Flush()
}
