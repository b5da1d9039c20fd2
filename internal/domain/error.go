package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat is returned when a timestamp, GPU id, or utilization reading is present but malformed.
	ErrFormat = errors.New("malformed trace value")

	// ErrDataIntegrity is returned when a utilization row does not cover a GPU slot a job was placed on.
	ErrDataIntegrity = errors.New("utilization trace is inconsistent with job placements")

	// ErrMalformedRecord is returned for job records that parse but violate the data model,
	// such as an unknown status or an attempt that ends before it starts.
	ErrMalformedRecord = errors.New("malformed job record")

	ErrNoPathSpecified = errors.New("no path specified")
	ErrEmptyTrace      = errors.New("trace contains no records")
)

// Error attaches context to one of the sentinel errors above while keeping it matchable.
type Error struct {
	error

	msg string
}

func Errorf(err error, msg string, args ...interface{}) error {
	return &Error{
		error: err,
		msg:   fmt.Sprintf("%v: %s", err, fmt.Sprintf(msg, args...)),
	}
}

func IsError(err1 error, err2 error) bool {
	if err1 == err2 {
		return true
	} else if e, ok := err1.(*Error); ok {
		return e.error == err2
	} else if e, ok := err2.(*Error); ok {
		return err1 == e.error
	} else {
		return false
	}
}

func (err *Error) Error() string {
	return err.msg
}

func (err *Error) Unwrap() error {
	return err.error
}
