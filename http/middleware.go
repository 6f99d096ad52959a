package http

import (
	"net/http"
	"time"

	"inviqa/request-basket/log"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	nr "github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"
)

// newRelicMiddleware runs every request inside a web transaction named after
// the matched route pattern.
func newRelicMiddleware(app *nr.Application) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if app == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			txn := app.StartTransaction(r.Method + " " + r.URL.Path)
			defer txn.End()

			txn.SetWebRequestHTTP(r)
			w = txn.SetWebResponse(w)
			r = nr.RequestWithTransactionContext(r, txn)

			next.ServeHTTP(w, r)

			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				txn.SetName(r.Method + " " + rctx.RoutePattern())
			}
		})
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		log.Logger.WithFields(logrus.Fields{
			"req_id":   middleware.GetReqID(r.Context()),
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"bytes":    ww.BytesWritten(),
			"duration": time.Since(start).String(),
		}).Debug("handled request")
	})
}

func requestLogFields(r *http.Request) logrus.Fields {
	return logrus.Fields{
		"req_id": middleware.GetReqID(r.Context()),
		"method": r.Method,
		"path":   r.URL.Path,
	}
}
