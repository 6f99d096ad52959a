package newrelic

import (
	"context"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
)

// ContextWithTxn starts a background transaction named name on app and
// returns a context carrying it. A nil app yields an inert transaction.
func ContextWithTxn(parent context.Context, name string, app *newrelic.Application) (context.Context, *newrelic.Transaction) {
	var txn *newrelic.Transaction
	if app == nil {
		txn = &newrelic.Transaction{}
	} else {
		txn = app.StartTransaction(name)
	}

	return newrelic.NewContext(parent, txn), txn
}

// NoticeError reports err on the transaction in ctx. Cancellations and
// deadlines are expected during shutdown and slow pushes, so they are not
// reported.
func NoticeError(ctx context.Context, err error) {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	newrelic.FromContext(ctx).NoticeError(err)
}

// StartSegment times name within the transaction in ctx. The returned
// segment must be ended by the caller.
func StartSegment(ctx context.Context, name string) *newrelic.Segment {
	return newrelic.FromContext(ctx).StartSegment(name)
}
