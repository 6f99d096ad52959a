package test

import "sync"

// Journal records the order in which operations reached the test doubles.
type Journal struct {
	sync.Mutex
	entries []string
}

func NewJournal() *Journal {
	return &Journal{}
}

func (j *Journal) Record(op string) {
	j.Lock()
	defer j.Unlock()
	j.entries = append(j.entries, op)
}

func (j *Journal) Entries() []string {
	j.Lock()
	defer j.Unlock()
	return append([]string{}, j.entries...)
}

// IndexOf returns the position of the first occurrence of op, or -1.
func (j *Journal) IndexOf(op string) int {
	j.Lock()
	defer j.Unlock()
	for i, e := range j.entries {
		if e == op {
			return i
		}
	}
	return -1
}

// LastIndexOf returns the position of the last occurrence of op, or -1.
func (j *Journal) LastIndexOf(op string) int {
	j.Lock()
	defer j.Unlock()
	for i := len(j.entries) - 1; i >= 0; i-- {
		if j.entries[i] == op {
			return i
		}
	}
	return -1
}
