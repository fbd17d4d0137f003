package conversation

import (
	"context"
	"time"
)

// StartReconcileWorker periodically rebuilds missing index entries until ctx
// is done. A non-positive interval disables the worker.
func StartReconcileWorker(ctx context.Context, svc *Service, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				svc.logger.Info("Reconcile worker stopped")
				return
			case <-ticker.C:
				reconcileOnce(ctx, svc)
			}
		}
	}()
}

func reconcileOnce(ctx context.Context, svc *Service) {
	start := time.Now()
	added, err := svc.ReconcileAll(ctx)
	if err != nil {
		svc.logger.Error("Reconcile worker: pass failed", "error", err)
		return
	}
	if added > 0 {
		svc.logger.Info("Reconcile worker: pass complete", "added", added, "duration", time.Since(start))
	}
}
