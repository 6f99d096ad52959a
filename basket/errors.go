package basket

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNotFound            = errors.New("basket: endpoint does not exist")
	ErrConflict            = errors.New("basket: endpoint already exists")
	ErrAllocationExhausted = errors.New("basket: no free endpoint found within the allowed attempts")
)

// StoreError wraps a failure of the metadata store or the blob store. Callers
// only ever see driver errors through it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("basket: %s: %s", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Cause() error {
	return e.Err
}

func IsStoreFailure(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
