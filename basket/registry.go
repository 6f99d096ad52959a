package basket

import (
	"context"
	"time"

	"inviqa/request-basket/log"

	"github.com/sirupsen/logrus"
)

type connectionStore interface {
	AddConnection(ctx context.Context, connID, endpoint string, at time.Time) (int64, error)
	RemoveConnection(ctx context.Context, connID string) error
	Connections(ctx context.Context, endpoint string) ([]string, error)
}

// Registry records which live connection watches which basket.
type Registry struct {
	repo connectionStore
	now  func() time.Time
}

func NewRegistry(repo connectionStore) *Registry {
	return &Registry{
		repo: repo,
		now:  time.Now,
	}
}

// Subscribe attaches connID to the basket. Subscribing to a basket that does
// not exist is ignored.
func (r *Registry) Subscribe(ctx context.Context, connID, endpoint string) error {
	n, err := r.repo.AddConnection(ctx, connID, endpoint, r.now().UTC())
	if err != nil {
		return storeError("subscribe", err)
	}

	logger := log.Logger.WithFields(logrus.Fields{"connection_id": connID, "endpoint": endpoint})
	if n == 0 {
		logger.Info("ignoring subscription to a basket that does not exist")
		return nil
	}

	logger.Debug("connection subscribed")

	return nil
}

func (r *Registry) Unsubscribe(ctx context.Context, connID string) error {
	if err := r.repo.RemoveConnection(ctx, connID); err != nil {
		return storeError("unsubscribe", err)
	}

	log.Logger.WithField("connection_id", connID).Debug("connection unsubscribed")

	return nil
}

func (r *Registry) SubscribersOf(ctx context.Context, endpoint string) ([]string, error) {
	ids, err := r.repo.Connections(ctx, endpoint)
	if err != nil {
		return nil, storeError("list subscribers", err)
	}

	return ids, nil
}
