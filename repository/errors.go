package repository

import (
	"errors"
	"fmt"
	"math"
)

// ErrNotFound is returned when no invoice has the requested id.
var ErrNotFound = errors.New("invoice not found")

// ErrInvalidTotal is returned when the items of an invoice sum to a value
// that cannot be stored, such as an overflowed total.
var ErrInvalidTotal = errors.New("invoice total is out of range")

// StorageError wraps a connection or write failure from the database.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func checkTotal(total float64) error {
	if math.IsInf(total, 0) || math.IsNaN(total) {
		return ErrInvalidTotal
	}
	return nil
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
