package bus

import (
	"context"

	"github.com/pusulaai/pusula-backend/internal/types"
)

// Bus fans progress events out across nodes. Every node publishes its own
// events and forwards everything it receives to the local hub.
type Bus interface {
	Publish(ctx context.Context, update *types.ProgressUpdate) error
	StartForwarder(ctx context.Context, onUpdate func(update *types.ProgressUpdate)) error
	Close() error
}
