package sqlserver

import (
	"errors"
	"fmt"
)

// Standard errors
var (
	// ErrConnectionFailed is returned when a connection attempt fails
	ErrConnectionFailed = errors.New("connection failed")

	// ErrConnectionClosed is returned when attempting to use a closed connection
	ErrConnectionClosed = errors.New("connection is closed")

	// ErrInvalidAddress is returned when an instance address cannot be parsed
	ErrInvalidAddress = errors.New("invalid instance address")
)

// ConnectionError is returned when an instance cannot be reached or authenticated against.
type ConnectionError struct {
	Instance string
	Host     string
	Port     int
	Cause    error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.Port > 0 {
		return fmt.Sprintf("failed to connect to %s at %s:%d: %v", e.Instance, e.Host, e.Port, e.Cause)
	}
	return fmt.Sprintf("failed to connect to %s: %v", e.Instance, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is ErrConnectionFailed.
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnectionFailed
}

// QueryError wraps a failed statement with the server and database it ran against.
type QueryError struct {
	Server    string
	Database  string
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Database != "" {
		return fmt.Sprintf("[%s/%s] %s: %v", e.Server, e.Database, e.Operation, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Server, e.Operation, e.Cause)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

func wrapQuery(server, database, operation string, err error) error {
	if err == nil {
		return nil
	}

	// Don't double-wrap
	var qe *QueryError
	if errors.As(err, &qe) {
		return err
	}
	return &QueryError{Server: server, Database: database, Operation: operation, Cause: err}
}
