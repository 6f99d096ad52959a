package push

import (
	"context"
	"fmt"
	"sync"
	"time"

	"inviqa/request-basket/log"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	subjectPrefix = "basket.connections."

	replyOK   = "ok"
	replyGone = "gone"
	replyFail = "error"
)

// NatsRelay lets any instance push to a connection held by another one. Each
// local connection is exposed as a request/reply subject; a push for an id the
// local hub does not know is forwarded over NATS.
type NatsRelay struct {
	nc      *nats.Conn
	local   Pusher
	timeout time.Duration

	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

func NewNatsRelay(nc *nats.Conn, local Pusher, timeout time.Duration) *NatsRelay {
	return &NatsRelay{
		nc:      nc,
		local:   local,
		timeout: timeout,
		subs:    map[string]*nats.Subscription{},
	}
}

// Connect dials the NATS server with reconnects enabled.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("request-basket"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Logger.WithError(err).Warn("disconnected from NATS")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Logger.WithField("url", c.ConnectedUrl()).Info("reconnected to NATS")
		}),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to connect to NATS at %s", url)
	}

	return nc, nil
}

func Subject(connID string) string {
	return subjectPrefix + connID
}

func (r *NatsRelay) Attach(connID string) error {
	sub, err := r.nc.Subscribe(Subject(connID), func(msg *nats.Msg) {
		if err := msg.Respond([]byte(r.deliver(connID, msg.Data))); err != nil {
			log.Logger.WithError(err).WithField("connection_id", connID).Warn("unable to reply to relayed push")
		}
	})
	if err != nil {
		return errors.Wrapf(err, "unable to subscribe to %s", Subject(connID))
	}

	r.mu.Lock()
	r.subs[connID] = sub
	r.mu.Unlock()

	return nil
}

func (r *NatsRelay) Detach(connID string) {
	r.mu.Lock()
	sub, ok := r.subs[connID]
	delete(r.subs, connID)
	r.mu.Unlock()

	if !ok {
		return
	}
	if err := sub.Unsubscribe(); err != nil {
		log.Logger.WithError(err).WithField("connection_id", connID).Debug("unable to unsubscribe relay subject")
	}
}

// Push tries the local hub first and falls back to whichever instance holds
// the connection.
func (r *NatsRelay) Push(ctx context.Context, connID string, payload []byte) error {
	err := r.local.Push(ctx, connID, payload)
	if !errors.Is(err, ErrGone) {
		return err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	msg, err := r.nc.RequestWithContext(ctx, Subject(connID), payload)
	if errors.Is(err, nats.ErrNoResponders) {
		return ErrGone
	}
	if err != nil {
		return errors.Wrapf(err, "relayed push to %s failed", connID)
	}

	return replyError(msg.Data)
}

func (r *NatsRelay) deliver(connID string, payload []byte) string {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	err := r.local.Push(ctx, connID, payload)
	switch {
	case err == nil:
		return replyOK
	case errors.Is(err, ErrGone):
		return replyGone
	default:
		log.Logger.WithFields(logrus.Fields{"connection_id": connID, "error": err}).Warn("relayed push failed locally")
		return replyFail
	}
}

func replyError(data []byte) error {
	switch string(data) {
	case replyOK:
		return nil
	case replyGone:
		return ErrGone
	default:
		return fmt.Errorf("relayed push was rejected: %q", string(data))
	}
}
