package http

import (
	"context"
	"net"
	"net/http"
	"sort"
	"time"

	"inviqa/request-basket/log"
)

const (
	checkOK          = "ok"
	checkUnavailable = "unavailable"
	checkTimeout     = time.Second
)

// Pinger is a store the service cannot run without.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type PingerFunc func(ctx context.Context) error

func (f PingerFunc) PingContext(ctx context.Context) error {
	return f(ctx)
}

type healthReport struct {
	Healthy bool              `json:"healthy"`
	Checks  map[string]string `json:"checks"`
}

type healthzHandler struct {
	checkAddr []string
	stores    map[string]Pinger
}

// NewHealthzHandler reports liveness from the named stores. With
// ?readiness=1 it also dials every address in checkAddr.
func NewHealthzHandler(checkAddr []string, stores map[string]Pinger) http.Handler {
	return &healthzHandler{
		checkAddr: checkAddr,
		stores:    stores,
	}
}

func (h healthzHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	report := healthReport{Healthy: true, Checks: map[string]string{}}

	h.checkStores(req.Context(), &report)
	if req.URL.Query().Get("readiness") == "1" {
		h.checkServices(&report)
	}

	status := http.StatusOK
	if !report.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func (h healthzHandler) checkStores(ctx context.Context, report *healthReport) {
	names := make([]string, 0, len(h.stores))
	for name := range h.stores {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pingCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := h.stores[name].PingContext(pingCtx)
		cancel()

		if err != nil {
			log.Logger.WithError(err).Debugf("%s is not available or there is a problem with connectivity", name)
			report.fail(name)
			continue
		}
		report.Checks[name] = checkOK
	}
}

func (h healthzHandler) checkServices(report *healthReport) {
	for _, host := range h.checkAddr {
		log.Logger.Debugf("checking connectivity to %s", host)
		conn, err := net.DialTimeout("tcp", host, checkTimeout)
		if err != nil {
			log.Logger.Debugf("unable to connect to %s", host)
			report.fail(host)
			continue
		}
		_ = conn.Close()
		report.Checks[host] = checkOK
	}
}

func (r *healthReport) fail(name string) {
	r.Healthy = false
	r.Checks[name] = checkUnavailable
}
