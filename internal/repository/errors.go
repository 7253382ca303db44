package repository

import "fmt"

// DataSourceError reports a failed or malformed stored-procedure call.
type DataSourceError struct {
	Procedure string
	Err       error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("data source %s: %v", e.Procedure, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }

// StoreError reports a failed insight store operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("insight store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
