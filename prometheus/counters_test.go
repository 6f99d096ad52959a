package prometheus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordCapture_NormalisesMethod(t *testing.T) {
	before := testutil.ToFloat64(capturedRequests.WithLabelValues("PATCH"))

	RecordCapture("patch")
	RecordCapture("PATCH")

	if actual := testutil.ToFloat64(capturedRequests.WithLabelValues("PATCH")) - before; actual != 2.00 {
		t.Errorf("expected 2 PATCH captures, but got %f", actual)
	}
}

func TestRecordDelivery(t *testing.T) {
	before := testutil.ToFloat64(pushDeliveries.WithLabelValues(DeliveryGone))

	RecordDelivery(DeliveryGone)

	if actual := testutil.ToFloat64(pushDeliveries.WithLabelValues(DeliveryGone)) - before; actual != 1.00 {
		t.Errorf("expected 1 gone delivery, but got %f", actual)
	}
}

func TestRecordNotifyOverflow(t *testing.T) {
	before := testutil.ToFloat64(notifyOverflows)

	RecordNotifyOverflow()

	if actual := testutil.ToFloat64(notifyOverflows) - before; actual != 1.00 {
		t.Errorf("expected 1 overflow, but got %f", actual)
	}
}
