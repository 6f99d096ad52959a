package test

import (
	"context"
	"sync"
	"time"

	"inviqa/request-basket/push"
)

type Delivery struct {
	ConnID  string
	Payload []byte
}

// MockPusher records deliveries. Connections listed as gone return
// push.ErrGone, failing ones return their configured error and slow ones wait
// for their delay or the context, whichever comes first.
type MockPusher struct {
	mu         sync.Mutex
	deliveries []Delivery
	gone       map[string]bool
	failing    map[string]error
	slow       map[string]time.Duration
	inFlight   int
	maxFlight  int
}

func NewMockPusher() *MockPusher {
	return &MockPusher{
		gone:    map[string]bool{},
		failing: map[string]error{},
		slow:    map[string]time.Duration{},
	}
}

func (p *MockPusher) Push(ctx context.Context, connID string, payload []byte) error {
	p.mu.Lock()
	p.inFlight++
	if p.inFlight > p.maxFlight {
		p.maxFlight = p.inFlight
	}
	delay := p.slow[connID]
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.inFlight--
		p.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.gone[connID] {
		return push.ErrGone
	}
	if err := p.failing[connID]; err != nil {
		return err
	}

	p.deliveries = append(p.deliveries, Delivery{ConnID: connID, Payload: append([]byte(nil), payload...)})
	return nil
}

func (p *MockPusher) MarkGone(connID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gone[connID] = true
}

func (p *MockPusher) Fail(connID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failing[connID] = err
}

func (p *MockPusher) Delay(connID string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.slow[connID] = d
}

func (p *MockPusher) Deliveries() []Delivery {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Delivery{}, p.deliveries...)
}

func (p *MockPusher) DeliveredTo(connID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, d := range p.deliveries {
		if d.ConnID == connID {
			n++
		}
	}
	return n
}

// MaxConcurrent is the highest number of pushes observed in flight at once.
func (p *MockPusher) MaxConcurrent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxFlight
}
