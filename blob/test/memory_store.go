package test

import (
	"context"
	"errors"
	"sync"

	"inviqa/request-basket/blob"
)

type recorder interface {
	Record(op string)
}

// MemoryStore is an in-memory blob.Store with failure injection.
type MemoryStore struct {
	sync.RWMutex
	blobs       map[string][]byte
	putErr      error
	getErr      error
	deleteErr   error
	failDeletes map[string]bool
	deletes     int
	journal     recorder
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs:       map[string][]byte{},
		failDeletes: map[string]bool{},
	}
}

func (m *MemoryStore) Put(_ context.Context, body []byte) (string, error) {
	m.Lock()
	defer m.Unlock()
	if m.putErr != nil {
		return "", m.putErr
	}

	id := blob.NewID()
	m.blobs[id] = append([]byte{}, body...)
	m.record("blob.put")

	return id, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) ([]byte, error) {
	m.RLock()
	defer m.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}

	b, ok := m.blobs[id]
	if !ok {
		return nil, blob.ErrNotFound
	}

	return append([]byte{}, b...), nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.Lock()
	defer m.Unlock()
	if m.deleteErr != nil || m.failDeletes[id] {
		return errors.New("oops")
	}

	delete(m.blobs, id)
	m.deletes++
	m.record("blob.delete")

	return nil
}

func (m *MemoryStore) Len() int {
	m.RLock()
	defer m.RUnlock()
	return len(m.blobs)
}

func (m *MemoryStore) Has(id string) bool {
	m.RLock()
	defer m.RUnlock()
	_, ok := m.blobs[id]
	return ok
}

func (m *MemoryStore) DeleteCount() int {
	m.RLock()
	defer m.RUnlock()
	return m.deletes
}

// Remove drops a blob behind the store's back.
func (m *MemoryStore) Remove(id string) {
	m.Lock()
	defer m.Unlock()
	delete(m.blobs, id)
}

func (m *MemoryStore) ReturnPutError() {
	m.putErr = errors.New("oops")
}

func (m *MemoryStore) ReturnGetError() {
	m.getErr = errors.New("oops")
}

func (m *MemoryStore) ReturnDeleteError() {
	m.deleteErr = errors.New("oops")
}

func (m *MemoryStore) FailDeleteOf(id string) {
	m.Lock()
	defer m.Unlock()
	m.failDeletes[id] = true
}

func (m *MemoryStore) SetJournal(j recorder) {
	m.journal = j
}

func (m *MemoryStore) record(op string) {
	if m.journal != nil {
		m.journal.Record(op)
	}
}
