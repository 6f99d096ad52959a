package test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"inviqa/request-basket/basket"
)

type storedBasket struct {
	basket.Basket
	requests []*basket.Request
}

// MockRepository is an in-memory metadata store. Uniqueness of endpoints and
// connection ids is enforced the same way the database does it.
type MockRepository struct {
	sync.RWMutex
	baskets      map[string]*storedBasket
	connections  map[string]string
	nextID       int64
	returnError  bool
	existsError  bool
	insertHook   func(endpoint string)
	deleteHook   func(endpoint string)
	raceOnCreate bool
	journal      *Journal
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		baskets:     map[string]*storedBasket{},
		connections: map[string]string{},
	}
}

func (m *MockRepository) BasketExists(_ context.Context, endpoint string) (bool, error) {
	m.RLock()
	defer m.RUnlock()
	if m.returnError || m.existsError {
		return false, errors.New("oops")
	}
	if m.raceOnCreate {
		return false, nil
	}

	_, ok := m.baskets[endpoint]
	return ok, nil
}

func (m *MockRepository) CreateBasket(_ context.Context, endpoint string, createdAt time.Time) error {
	m.Lock()
	defer m.Unlock()
	if m.returnError {
		return errors.New("oops")
	}
	if _, ok := m.baskets[endpoint]; ok {
		return basket.ErrConflict
	}

	m.nextID++
	m.baskets[endpoint] = &storedBasket{Basket: basket.Basket{ID: m.nextID, Endpoint: endpoint, CreatedAt: createdAt}}

	return nil
}

func (m *MockRepository) DeleteBasket(_ context.Context, endpoint string) (int64, error) {
	m.Lock()
	defer m.Unlock()
	if m.returnError {
		return 0, errors.New("oops")
	}

	if _, ok := m.baskets[endpoint]; !ok {
		return 0, nil
	}

	delete(m.baskets, endpoint)
	for id, e := range m.connections {
		if e == endpoint {
			delete(m.connections, id)
		}
	}
	m.record("row.delete_basket")

	return 1, nil
}

func (m *MockRepository) ExpiredBaskets(_ context.Context, olderThan time.Time) ([]string, error) {
	m.RLock()
	defer m.RUnlock()
	if m.returnError {
		return nil, errors.New("oops")
	}

	var endpoints []string
	for e, b := range m.baskets {
		if b.CreatedAt.Before(olderThan) {
			endpoints = append(endpoints, e)
		}
	}
	sort.Strings(endpoints)

	return endpoints, nil
}

func (m *MockRepository) InsertRequest(_ context.Context, endpoint string, req *basket.Request) (int64, error) {
	if hook := m.hook(func() func(string) { return m.insertHook }); hook != nil {
		hook(endpoint)
	}

	m.Lock()
	defer m.Unlock()
	if m.returnError {
		return 0, errors.New("oops")
	}

	b, ok := m.baskets[endpoint]
	if !ok {
		return 0, nil
	}

	m.nextID++
	req.ID = m.nextID
	stored := *req
	b.requests = append(b.requests, &stored)
	m.record("row.insert_request")

	return 1, nil
}

func (m *MockRepository) Requests(_ context.Context, endpoint string) ([]*basket.Request, error) {
	m.RLock()
	defer m.RUnlock()
	if m.returnError {
		return nil, errors.New("oops")
	}

	b, ok := m.baskets[endpoint]
	if !ok {
		return []*basket.Request{}, nil
	}

	reqs := make([]*basket.Request, 0, len(b.requests))
	for _, r := range b.requests {
		c := *r
		reqs = append(reqs, &c)
	}
	sort.SliceStable(reqs, func(i, j int) bool {
		if reqs[i].Timestamp.Equal(reqs[j].Timestamp) {
			return reqs[i].ID > reqs[j].ID
		}
		return reqs[i].Timestamp.After(reqs[j].Timestamp)
	})

	return reqs, nil
}

func (m *MockRepository) DeleteRequests(_ context.Context, endpoint string, maxID int64) (int64, error) {
	if hook := m.hook(func() func(string) { return m.deleteHook }); hook != nil {
		hook(endpoint)
	}

	m.Lock()
	defer m.Unlock()
	if m.returnError {
		return 0, errors.New("oops")
	}

	b, ok := m.baskets[endpoint]
	if !ok {
		return 0, nil
	}

	var kept []*basket.Request
	var n int64
	for _, r := range b.requests {
		if r.ID <= maxID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	b.requests = kept
	m.record("row.delete_requests")

	return n, nil
}

func (m *MockRepository) AddConnection(_ context.Context, connID, endpoint string, _ time.Time) (int64, error) {
	m.Lock()
	defer m.Unlock()
	if m.returnError {
		return 0, errors.New("oops")
	}

	if _, ok := m.baskets[endpoint]; !ok {
		return 0, nil
	}
	m.connections[connID] = endpoint

	return 1, nil
}

func (m *MockRepository) RemoveConnection(_ context.Context, connID string) error {
	m.Lock()
	defer m.Unlock()
	if m.returnError {
		return errors.New("oops")
	}

	delete(m.connections, connID)

	return nil
}

func (m *MockRepository) Connections(_ context.Context, endpoint string) ([]string, error) {
	m.RLock()
	defer m.RUnlock()
	if m.returnError {
		return nil, errors.New("oops")
	}

	ids := []string{}
	for id, e := range m.connections {
		if e == endpoint {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	return ids, nil
}

func (m *MockRepository) GetBasketCount() (uint, error) {
	m.RLock()
	defer m.RUnlock()
	if m.returnError {
		return 0, errors.New("oops")
	}
	return uint(len(m.baskets)), nil
}

func (m *MockRepository) GetRequestCount() (uint, error) {
	m.RLock()
	defer m.RUnlock()
	if m.returnError {
		return 0, errors.New("oops")
	}

	var n uint
	for _, b := range m.baskets {
		n += uint(len(b.requests))
	}
	return n, nil
}

func (m *MockRepository) GetConnectionCount() (uint, error) {
	m.RLock()
	defer m.RUnlock()
	if m.returnError {
		return 0, errors.New("oops")
	}
	return uint(len(m.connections)), nil
}

// AddBasket seeds a basket with the given creation time.
func (m *MockRepository) AddBasket(endpoint string, createdAt time.Time) {
	m.Lock()
	defer m.Unlock()
	m.nextID++
	m.baskets[endpoint] = &storedBasket{Basket: basket.Basket{ID: m.nextID, Endpoint: endpoint, CreatedAt: createdAt}}
}

// RemoveBasket drops a basket behind the service's back.
func (m *MockRepository) RemoveBasket(endpoint string) {
	m.Lock()
	defer m.Unlock()
	delete(m.baskets, endpoint)
}

func (m *MockRepository) RequestCount(endpoint string) int {
	m.RLock()
	defer m.RUnlock()
	b, ok := m.baskets[endpoint]
	if !ok {
		return 0
	}
	return len(b.requests)
}

func (m *MockRepository) ConnectionBasket(connID string) (string, bool) {
	m.RLock()
	defer m.RUnlock()
	e, ok := m.connections[connID]
	return e, ok
}

func (m *MockRepository) ReturnErrors() {
	m.Lock()
	defer m.Unlock()
	m.returnError = true
}

func (m *MockRepository) ReturnExistsError() {
	m.existsError = true
}

// SimulateCreateRace makes existence checks miss so that only the insert
// can detect a duplicate endpoint.
func (m *MockRepository) SimulateCreateRace() {
	m.raceOnCreate = true
}

// BeforeInsertRequest runs fn ahead of every request insert, outside the lock.
func (m *MockRepository) BeforeInsertRequest(fn func(endpoint string)) {
	m.Lock()
	defer m.Unlock()
	m.insertHook = fn
}

// BeforeDeleteRequests runs fn ahead of every bulk request delete, outside
// the lock.
func (m *MockRepository) BeforeDeleteRequests(fn func(endpoint string)) {
	m.Lock()
	defer m.Unlock()
	m.deleteHook = fn
}

func (m *MockRepository) hook(get func() func(string)) func(string) {
	m.RLock()
	defer m.RUnlock()
	return get()
}

func (m *MockRepository) SetJournal(j *Journal) {
	m.journal = j
}

func (m *MockRepository) record(op string) {
	if m.journal != nil {
		m.journal.Record(op)
	}
}
