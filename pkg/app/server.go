package app

import (
	"context"
	"time"

	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/internal/server"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/schedule"
)

const (
	queueWorkers      = 4
	reconcileInterval = time.Minute
)

// Serve runs the HTTP server, the websocket hub, the queue workers and the
// scheduler until ctx is cancelled, then waits for all of them to stop.
func (a *Application) Serve(ctx context.Context) error {
	h, err := a.Handler()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.Hub.Start(ctx)
	a.Queue.Start(ctx, queueWorkers)
	sched := a.Scheduler()
	sched.Start(ctx)

	err = server.Start(ctx, ":"+config.AppPort(), h)

	cancel()
	a.Hub.Close()
	a.Queue.Wait()
	sched.Wait()
	return err
}

// Scheduler returns the periodic tasks of a serving process.
func (a *Application) Scheduler() *schedule.Scheduler {
	s := schedule.New()
	s.Every(reconcileInterval).Name("orders:reconcile").WithoutOverlapping().Run(func(ctx context.Context) error {
		res, err := a.Orders.ReconcileDrafts(ctx, config.ReconcileAfter())
		if err != nil {
			return err
		}
		if res.Confirmed+res.Deleted > 0 {
			logger.WithCtx(ctx).Info("checkout drafts reconciled", "confirmed", res.Confirmed, "deleted", res.Deleted)
		}
		return nil
	})
	return s
}
