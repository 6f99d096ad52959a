//go:build integration
// +build integration

package http

import (
	"net/http"
	"sync"
)

var (
	mu    sync.Mutex
	recvd = map[string]bool{}
)

// GetHttpTestHandlerFunc stands in for a sidecar proxy and records the
// paths it was asked for.
func GetHttpTestHandlerFunc() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/quitquitquit":
			record(r.URL.Path)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func Received(path string) bool {
	mu.Lock()
	defer mu.Unlock()
	return recvd[path]
}

func Reset() {
	mu.Lock()
	defer mu.Unlock()
	recvd = map[string]bool{}
}

func record(path string) {
	mu.Lock()
	defer mu.Unlock()
	recvd[path] = true
}
