package ports

import (
	"context"

	"github.com/civicore/community-api/internal/core/domain"
)

// ActivityRepository appends audit events to durable storage.
type ActivityRepository interface {
	Insert(ctx context.Context, event *domain.ActivityEvent) error
}

// ActivityRecorder accepts audit events for asynchronous persistence. Services
// call Record after a successful ledger mutation; a failed or dropped audit
// write never fails the request that caused it.
type ActivityRecorder interface {
	Record(event domain.ActivityEvent)
}
