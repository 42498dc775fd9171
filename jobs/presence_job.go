package jobs

import (
	"log"
	"time"

	"github.com/smiletime/smiletime-api/presence"
)

const offlineRetention = 30 * time.Minute

// PruneStalePresence evicts presence entries that have been offline longer
// than the retention window. Disconnect keeps entries around (so "last seen"
// is answerable); this sweep is the only place they are removed.
func PruneStalePresence(registry *presence.Registry) {
	if n := registry.PruneOffline(offlineRetention); n > 0 {
		log.Printf("Pruned %d stale presence entries", n)
	}
}
