package job

import (
	"context"
	"net/http"
	"time"

	"inviqa/request-basket/config"
	"inviqa/request-basket/log"
)

type basketExpirer interface {
	Expire(ctx context.Context, olderThan time.Time) (int, error)
}

type cleanup struct {
	expirer basketExpirer
	ttl     time.Duration
	now     func() time.Time
	SidecarQuitter
}

// RunCleanup deletes every basket older than the configured TTL together with
// its requests and bodies. It returns the process exit code.
func RunCleanup(ctx context.Context, expirer basketExpirer, cfg *config.Config) int {
	j := newCleanupWithDefaultClient(expirer, cfg.GetBasketTTL())
	if cfg.SidecarProxyUrl != "" {
		j.EnableSideCarProxyQuit(cfg.SidecarProxyUrl)
	}

	if _, err := j.Execute(ctx); err != nil {
		return 1
	}

	return 0
}

func newCleanupWithDefaultClient(expirer basketExpirer, ttl time.Duration) *cleanup {
	return newCleanup(expirer, ttl, http.DefaultClient)
}

func newCleanup(expirer basketExpirer, ttl time.Duration, cl httpPoster) *cleanup {
	return &cleanup{
		expirer: expirer,
		ttl:     ttl,
		now:     time.Now,
		SidecarQuitter: SidecarQuitter{
			Client: cl,
		},
	}
}

// Execute removes baskets older than the TTL. A TTL of zero disables expiry:
// nothing is deleted, but the sidecar is still released.
func (c *cleanup) Execute(ctx context.Context) (int, error) {
	deleted := 0

	if c.ttl <= 0 {
		log.Logger.Info("basket expiry is disabled, no baskets deleted")
	} else {
		cutoff := c.now().Add(-c.ttl)

		var err error
		deleted, err = c.expirer.Expire(ctx, cutoff)
		if err != nil {
			log.Logger.WithError(err).Errorf("an error occurred whilst deleting baskets created before %s", cutoff.Format(time.RFC3339))
			return deleted, err
		}

		log.Logger.Infof("deleted %d expired baskets", deleted)
	}

	if c.QuitSidecar {
		if err := c.Quit(); err != nil {
			return deleted, err
		}
	}

	return deleted, nil
}
