package notify

import (
	"context"
	"sync"

	nr "github.com/newrelic/go-agent/v3/newrelic"

	"inviqa/request-basket/basket"
	"inviqa/request-basket/log"
	"inviqa/request-basket/newrelic"
	"inviqa/request-basket/prometheus"
)

type notifier interface {
	Notify(ctx context.Context, endpoint string, view *basket.RequestView)
}

type event struct {
	endpoint string
	view     *basket.RequestView
}

// Dispatcher hands captured requests to a fixed pool of notify workers. When
// the queue is full the event gets a goroutine of its own, so Dispatch never
// blocks the capture path and never drops an event.
type Dispatcher struct {
	notifier notifier
	nrApp    *nr.Application
	queue    chan event
	wg       sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(n notifier, queueSize int, nrApp *nr.Application) *Dispatcher {
	if queueSize < 0 {
		queueSize = 0
	}

	return &Dispatcher{
		notifier: n,
		nrApp:    nrApp,
		queue:    make(chan event, queueSize),
	}
}

func (d *Dispatcher) Start(workers int) {
	if workers < 1 {
		workers = 1
	}

	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.listenAndProcess()
	}
}

func (d *Dispatcher) Dispatch(endpoint string, view *basket.RequestView) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		log.Logger.WithField("endpoint", endpoint).Warn("dispatcher is stopped, dropping new request event")
		return
	}

	e := event{endpoint: endpoint, view: view}
	select {
	case d.queue <- e:
	default:
		prometheus.RecordNotifyOverflow()
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.process(e)
		}()
	}
}

// Stop refuses new events and waits for every queued one to be delivered.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) listenAndProcess() {
	defer d.wg.Done()

	for e := range d.queue {
		d.process(e)
	}
}

func (d *Dispatcher) process(e event) {
	ctx, txn := newrelic.ContextWithTxn(context.Background(), "notify: Dispatcher.process()", d.nrApp)
	defer txn.End()

	txn.AddAttribute("endpoint", e.endpoint)
	d.notifier.Notify(ctx, e.endpoint, e.view)
}
