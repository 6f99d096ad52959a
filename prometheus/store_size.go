package prometheus

import (
	"context"
	"time"

	"inviqa/request-basket/log"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const observeInterval = time.Second * 1

var (
	basketCount     prom.Gauge
	requestCount    prom.Gauge
	connectionCount prom.Gauge
)

func init() {
	basketCount = promauto.NewGauge(prom.GaugeOpts{
		Name: "request_basket_baskets",
		Help: "The number of baskets currently stored",
	})
	requestCount = promauto.NewGauge(prom.GaugeOpts{
		Name: "request_basket_requests",
		Help: "The number of captured requests currently stored across all baskets",
	})
	connectionCount = promauto.NewGauge(prom.GaugeOpts{
		Name: "request_basket_connections",
		Help: "The number of live viewer connections known to the store",
	})
}

func ObserveBasketCount(sizer Sizer, ctx context.Context) {
	observe(ctx, basketCount, sizer.GetBasketCount, "baskets")
}

func ObserveRequestCount(sizer Sizer, ctx context.Context) {
	observe(ctx, requestCount, sizer.GetRequestCount, "requests")
}

func ObserveConnectionCount(sizer Sizer, ctx context.Context) {
	observe(ctx, connectionCount, sizer.GetConnectionCount, "connections")
}

// ObserveStore samples every store gauge until ctx is cancelled.
func ObserveStore(sizer Sizer, ctx context.Context) {
	go ObserveBasketCount(sizer, ctx)
	go ObserveRequestCount(sizer, ctx)
	go ObserveConnectionCount(sizer, ctx)
}

func observe(ctx context.Context, gauge prom.Gauge, size func() (uint, error), what string) {
	for {
		n, err := size()
		if err != nil {
			log.Logger.WithError(err).Errorf("an error occurred counting the stored %s", what)
		} else {
			gauge.Set(float64(n))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(observeInterval):
		}
	}
}
