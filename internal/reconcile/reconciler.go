// Package reconcile repairs friend-graph damage left by the two-write edge
// protocol: a crash between the two sides of AddFriend leaves one identity
// listing the other without the mirror entry.
package reconcile

import (
	"context"
	"log"
	"time"

	"circle-service/internal/observability"
	"circle-service/internal/repositories"
)

// Reconciler periodically scans for asymmetric friend edges and restores
// the missing side.
type Reconciler struct {
	friendRepo repositories.FriendRepository
	interval   time.Duration
	grace      time.Duration
}

// New constructs a Reconciler. Edges younger than grace are skipped so an
// in-flight AddFriend is not mistaken for damage.
func New(friendRepo repositories.FriendRepository, interval, grace time.Duration) *Reconciler {
	return &Reconciler{friendRepo: friendRepo, interval: interval, grace: grace}
}

// Run loops until the context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			repaired, err := r.RunOnce(ctx)
			if err != nil {
				log.Printf("friend edge reconcile failed: %v", err)
				continue
			}
			if repaired > 0 {
				log.Printf("friend edge reconcile repaired %d edges", repaired)
			}
		}
	}
}

// RunOnce performs a single scan-and-repair pass and returns the number of
// edges repaired. Repair always restores the missing mirror, so a removal
// that crashed after its first delete is healed back into a friendship;
// the survivor can remove again.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	edges, err := r.friendRepo.ListAsymmetric(ctx, r.grace)
	if err != nil {
		return 0, err
	}

	repaired := 0
	for _, edge := range edges {
		if err := r.friendRepo.InsertEdge(ctx, edge.PeerID, edge.OwnerID); err != nil {
			log.Printf("friend edge repair %d->%d failed: %v", edge.PeerID, edge.OwnerID, err)
			continue
		}
		repaired++
	}
	if repaired > 0 {
		observability.AddEdgeRepairs(repaired)
	}
	return repaired, nil
}
