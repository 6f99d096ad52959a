package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"inviqa/request-basket/basket"
	"inviqa/request-basket/log"
	"inviqa/request-basket/newrelic"
	"inviqa/request-basket/prometheus"
	"inviqa/request-basket/push"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type subscribers interface {
	SubscribersOf(ctx context.Context, endpoint string) ([]string, error)
	Unsubscribe(ctx context.Context, connID string) error
}

type mirror interface {
	PublishEvent(endpoint, kind string, payload []byte) error
}

// Notifier fans a captured request out to every connection viewing its
// basket. Connections reported gone are unsubscribed; any other failure is
// logged and the connection kept.
type Notifier struct {
	subs    subscribers
	pusher  push.Pusher
	timeout time.Duration
	mirror  mirror
}

func NewNotifier(subs subscribers, pusher push.Pusher, timeout time.Duration) *Notifier {
	return &Notifier{
		subs:    subs,
		pusher:  pusher,
		timeout: timeout,
	}
}

// MirrorTo additionally publishes every event to m.
func (n *Notifier) MirrorTo(m mirror) *Notifier {
	n.mirror = m
	return n
}

// Notify returns once every push attempt and the mirror publish have
// finished or timed out. The mirror runs alongside the pushes so a slow
// broker never delays viewers.
func (n *Notifier) Notify(ctx context.Context, endpoint string, view *basket.RequestView) {
	logger := log.Logger.WithField("endpoint", endpoint)

	event := basket.NewRequestEvent(endpoint, view)
	payload, err := json.Marshal(event)
	if err != nil {
		logger.WithError(err).Error("unable to encode new request event")
		newrelic.NoticeError(ctx, err)
		return
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	if n.mirror != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := n.mirror.PublishEvent(endpoint, event.Kind, payload); err != nil {
				newrelic.NoticeError(ctx, err)
			}
		}()
	}

	connIDs, err := n.subs.SubscribersOf(ctx, endpoint)
	if err != nil {
		logger.WithError(err).Error("unable to look up the viewers of a basket")
		newrelic.NoticeError(ctx, err)
		return
	}

	for _, connID := range connIDs {
		wg.Add(1)
		go func(connID string) {
			defer wg.Done()
			n.pushTo(ctx, logger.WithField("connection_id", connID), connID, payload)
		}(connID)
	}
}

func (n *Notifier) pushTo(ctx context.Context, logger logrus.FieldLogger, connID string, payload []byte) {
	pushCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	seg := newrelic.StartSegment(ctx, "notify: push")
	err := n.pusher.Push(pushCtx, connID, payload)
	seg.End()
	switch {
	case err == nil:
		prometheus.RecordDelivery(prometheus.DeliveryDelivered)
	case errors.Is(err, push.ErrGone):
		prometheus.RecordDelivery(prometheus.DeliveryGone)
		logger.Debug("viewer connection is gone, unsubscribing it")
		if err := n.subs.Unsubscribe(ctx, connID); err != nil {
			logger.WithError(err).Error("unable to unsubscribe a stale viewer connection")
		}
	default:
		prometheus.RecordDelivery(prometheus.DeliveryFailed)
		logger.WithError(err).Warn("push to viewer connection failed")
		newrelic.NoticeError(ctx, err)
	}
}
