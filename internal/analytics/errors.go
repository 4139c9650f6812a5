package analytics

import (
	"errors"
	"fmt"
)

var (
	// ErrDataFormat is matched by every DataFormatError.
	ErrDataFormat = errors.New("malformed commerce data")

	ErrInvalidDateRange = errors.New("invalid date range")
)

// RecordKind names the kind of input record that failed to parse.
type RecordKind string

const (
	RecordOrder    RecordKind = "order"
	RecordCustomer RecordKind = "customer"
)

// DataFormatError reports an unparseable price or timestamp on a single record.
type DataFormatError struct {
	Record RecordKind
	ID     string
	Field  string
	Value  string
	Err    error
}

// Error implements the error interface.
func (e *DataFormatError) Error() string {
	msg := fmt.Sprintf("%s %s: invalid %s %q", e.Record, e.ID, e.Field, e.Value)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is implements errors.Is for DataFormatError.
func (e *DataFormatError) Is(target error) bool {
	return target == ErrDataFormat
}

func (e *DataFormatError) Unwrap() error {
	return e.Err
}

func orderFieldError(o *Order, field, value string, err error) *DataFormatError {
	return &DataFormatError{Record: RecordOrder, ID: o.ID, Field: field, Value: value, Err: err}
}

func customerFieldError(c *Customer, field, value string, err error) *DataFormatError {
	return &DataFormatError{Record: RecordCustomer, ID: c.ID, Field: field, Value: value, Err: err}
}
