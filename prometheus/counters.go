package prometheus

import (
	"strings"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	DeliveryDelivered = "delivered"
	DeliveryGone      = "gone"
	DeliveryFailed    = "failed"
)

var (
	capturedRequests *prom.CounterVec
	pushDeliveries   *prom.CounterVec
	notifyOverflows  prom.Counter
)

func init() {
	capturedRequests = promauto.NewCounterVec(prom.CounterOpts{
		Name: "request_basket_captured_requests_total",
		Help: "Requests captured into a basket, by HTTP method",
	}, []string{"method"})
	pushDeliveries = promauto.NewCounterVec(prom.CounterOpts{
		Name: "request_basket_push_deliveries_total",
		Help: "Push attempts to viewer connections, by outcome",
	}, []string{"outcome"})
	notifyOverflows = promauto.NewCounter(prom.CounterOpts{
		Name: "request_basket_notify_queue_overflows_total",
		Help: "Events delivered outside the worker pool because the notify queue was full",
	})
}

func RecordCapture(method string) {
	capturedRequests.WithLabelValues(strings.ToUpper(method)).Inc()
}

func RecordDelivery(outcome string) {
	pushDeliveries.WithLabelValues(outcome).Inc()
}

func RecordNotifyOverflow() {
	notifyOverflows.Inc()
}
