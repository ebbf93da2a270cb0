package services

import (
	"context"
	"log"
	"time"

	"pottery-gallery-backend/internal/storage"
)

// Reconciler periodically diffs the object store against the metadata table
// to find the orphans left by partially failed uploads and deletes. Orphaned
// objects older than the grace window are removed; orphaned rows are only
// reported, since the matching object write may still be in flight.
type Reconciler struct {
	store   MetadataStore
	objects storage.Storage
	grace   time.Duration
}

// Report summarizes one reconciliation pass.
type Report struct {
	OrphanedObjects []string
	OrphanedRows    []string
	RemovedObjects  int
}

func NewReconciler(store MetadataStore, objects storage.Storage, grace time.Duration) *Reconciler {
	return &Reconciler{
		store:   store,
		objects: objects,
		grace:   grace,
	}
}

// Start runs reconciliation on the given interval until ctx is cancelled.
// Failures are logged and never stop the loop.
func (r *Reconciler) Start(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				report, err := r.RunOnce(ctx)
				if err != nil {
					log.Printf("Warning: reconciliation failed: %v", err)
					continue
				}
				if len(report.OrphanedObjects) > 0 || len(report.OrphanedRows) > 0 {
					log.Printf("Reconciliation: %d orphaned objects (%d removed), %d orphaned rows: %v",
						len(report.OrphanedObjects), report.RemovedObjects,
						len(report.OrphanedRows), report.OrphanedRows)
				}
			}
		}
	}()
}

// RunOnce performs a single diff of bucket contents against file rows.
func (r *Reconciler) RunOnce(ctx context.Context) (Report, error) {
	var report Report

	objects, err := r.objects.List(ctx)
	if err != nil {
		return report, err
	}

	filenames, err := r.store.ListFilenames()
	if err != nil {
		return report, err
	}

	rows := make(map[string]bool, len(filenames))
	for _, name := range filenames {
		rows[name] = true
	}

	cutoff := time.Now().Add(-r.grace)
	stored := make(map[string]bool, len(objects))
	for _, object := range objects {
		stored[object.Key] = true
		if rows[object.Key] {
			continue
		}
		report.OrphanedObjects = append(report.OrphanedObjects, object.Key)
		if object.LastModified.After(cutoff) {
			// Could be an upload whose metadata insert hasn't happened yet.
			continue
		}
		if err := r.objects.Delete(ctx, object.Key); err != nil {
			log.Printf("Warning: failed to remove orphaned object %q: %v", object.Key, err)
			continue
		}
		report.RemovedObjects++
	}

	for _, name := range filenames {
		if !stored[name] {
			report.OrphanedRows = append(report.OrphanedRows, name)
		}
	}

	return report, nil
}
