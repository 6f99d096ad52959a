package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"inviqa/request-basket/basket"
	"inviqa/request-basket/log"
	"inviqa/request-basket/newrelic"
	"inviqa/request-basket/prometheus"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

const paramEndpoint = "endpoint"

type basketService interface {
	Create(ctx context.Context, endpoint string) error
	ListRequests(ctx context.Context, endpoint string) ([]*basket.RequestView, error)
	Clear(ctx context.Context, endpoint string) error
	Delete(ctx context.Context, endpoint string) error
	Capture(ctx context.Context, endpoint, method string, headers map[string]string, body []byte) error
}

type tokenAllocator interface {
	Allocate(ctx context.Context) (string, error)
}

// API serves basket management and request capture.
type API struct {
	baskets      basketService
	tokens       tokenAllocator
	maxBodyBytes int64
}

func NewAPI(baskets basketService, tokens tokenAllocator, maxBodyBytes int64) *API {
	return &API{
		baskets:      baskets,
		tokens:       tokens,
		maxBodyBytes: maxBodyBytes,
	}
}

func (a *API) newEndpoint(w http.ResponseWriter, r *http.Request) {
	token, err := a.tokens.Allocate(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, token)
}

func (a *API) createBasket(w http.ResponseWriter, r *http.Request) {
	endpoint, ok := endpointParam(w, r)
	if !ok {
		return
	}

	if err := a.baskets.Create(r.Context(), endpoint); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (a *API) listRequests(w http.ResponseWriter, r *http.Request) {
	endpoint, ok := endpointParam(w, r)
	if !ok {
		return
	}

	views, err := a.baskets.ListRequests(r.Context(), endpoint)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if views == nil {
		views = []*basket.RequestView{}
	}

	writeJSON(w, http.StatusOK, views)
}

func (a *API) clearBasket(w http.ResponseWriter, r *http.Request) {
	endpoint, ok := endpointParam(w, r)
	if !ok {
		return
	}

	if err := a.baskets.Clear(r.Context(), endpoint); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *API) deleteBasket(w http.ResponseWriter, r *http.Request) {
	endpoint, ok := endpointParam(w, r)
	if !ok {
		return
	}

	if err := a.baskets.Delete(r.Context(), endpoint); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// capture stores whatever arrives at /api/{endpoint}, whatever the method.
func (a *API) capture(w http.ResponseWriter, r *http.Request) {
	endpoint, ok := endpointParam(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body is too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "unable to read request body", http.StatusBadRequest)
		return
	}

	if err := a.baskets.Capture(r.Context(), endpoint, r.Method, captureHeaders(r), body); err != nil {
		writeError(w, r, err)
		return
	}

	prometheus.RecordCapture(r.Method)
	w.WriteHeader(http.StatusNoContent)
}

// captureHeaders flattens the request headers the way they are shown to
// viewers: lower-case names, repeated values joined with ", ".
func captureHeaders(r *http.Request) map[string]string {
	headers := make(map[string]string, len(r.Header)+1)
	for name, values := range r.Header {
		headers[strings.ToLower(name)] = strings.Join(values, ", ")
	}
	if r.Host != "" {
		headers["host"] = r.Host
	}

	return headers
}

func endpointParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	endpoint := chi.URLParam(r, paramEndpoint)
	if verr := validateEndpoint(endpoint); verr != nil {
		http.Error(w, verr.message, verr.status)
		return "", false
	}

	return endpoint, true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.Logger.WithFields(requestLogFields(r)).WithError(err)

	switch {
	case errors.Is(err, basket.ErrNotFound):
		http.Error(w, "basket does not exist", http.StatusNotFound)
	case errors.Is(err, basket.ErrConflict):
		http.Error(w, "basket already exists", http.StatusConflict)
	case errors.Is(err, basket.ErrAllocationExhausted):
		logger.Error("unable to allocate a basket endpoint")
		http.Error(w, "unable to allocate a basket endpoint", http.StatusServiceUnavailable)
	default:
		logger.Error("basket operation failed")
		newrelic.NoticeError(r.Context(), err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Logger.WithError(err).Error("unable to encode JSON response")
	}
}
