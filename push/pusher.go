package push

import (
	"context"

	"github.com/pkg/errors"
)

// ErrGone reports that a connection no longer exists and should be
// forgotten by whoever is tracking it.
var ErrGone = errors.New("push: connection is gone")

// Pusher delivers a payload to a single live connection.
type Pusher interface {
	Push(ctx context.Context, connID string, payload []byte) error
}
