package match

import "context"

// SnapshotProvider reads one source type. Fetch returns NotFound for ordinary
// missing data and an error only for infrastructure failures.
type SnapshotProvider interface {
	Supports() SourceType
	Fetch(ctx context.Context, locator string) (Snapshot, error)
}
