package test

import (
	"sync"

	"inviqa/request-basket/basket"
)

type DispatchedEvent struct {
	Endpoint string
	View     *basket.RequestView
}

type MockDispatcher struct {
	sync.Mutex
	events []DispatchedEvent
}

func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{}
}

func (d *MockDispatcher) Dispatch(endpoint string, view *basket.RequestView) {
	d.Lock()
	defer d.Unlock()
	d.events = append(d.events, DispatchedEvent{Endpoint: endpoint, View: view})
}

func (d *MockDispatcher) Dispatched() []DispatchedEvent {
	d.Lock()
	defer d.Unlock()
	return append([]DispatchedEvent{}, d.events...)
}
