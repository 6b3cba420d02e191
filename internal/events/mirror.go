package events

import (
	"context"
	"log"

	"weathercache/internal/store"
)

// MirrorTo returns a Handler that copies each event's record into dst under the same key
func MirrorTo(dst store.Store) Handler {
	return func(ctx context.Context, event Event) error {
		record := event.Record
		if err := dst.Put(ctx, event.Key, &record); err != nil {
			return err
		}
		log.Printf("Mirrored %s for %s", event.Key, event.Coordinate)
		return nil
	}
}
