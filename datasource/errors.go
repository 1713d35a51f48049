package datasource

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyConfig       = errors.New("no datasource configured")
	ErrDuplicateName     = errors.New("duplicate datasource name")
	ErrDefaultNotFound   = errors.New("default datasource name is not configured")
	ErrAlreadyRegistered = errors.New("datasources already registered")
	ErrInvalidName       = errors.New("datasource name must be an identifier")
	ErrUnknownType       = errors.New("unsupported database type")
	ErrNotRegistered     = errors.New("datasources not registered")
	ErrInvalidMode       = errors.New("unknown datasource mode")
	ErrInvalidPolicy     = errors.New("unknown routing key policy")
	ErrInvalidSettings   = errors.New("invalid session settings")
	ErrUnknownOverride   = errors.New("session override names no configured datasource")
)

// ConfigurationError rejects a configuration before any pool is built.
// Reason is one of the Err sentinels above and matches with errors.Is.
type ConfigurationError struct {
	Name   string
	Reason error
	Detail string
}

func (e ConfigurationError) Error() string {
	msg := "datasource configuration: " + e.Reason.Error()
	if e.Name != "" {
		msg += fmt.Sprintf(": %q", e.Name)
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e ConfigurationError) Unwrap() error {
	return e.Reason
}

// PoolConstructionError means the pool for Name failed to initialize. Registration was rolled back.
type PoolConstructionError struct {
	Name Name
	Err  error
}

func (e PoolConstructionError) Error() string {
	return fmt.Sprintf("build pool %q: %v", e.Name, e.Err)
}

func (e PoolConstructionError) Unwrap() error {
	return e.Err
}

// RoutingKeyNotFoundError is returned under PolicyFail for a key that names no pool.
type RoutingKeyNotFoundError struct {
	Key string
}

func (e RoutingKeyNotFoundError) Error() string {
	return fmt.Sprintf("routing key %q names no configured datasource", e.Key)
}

// NotFoundError means no resource is exposed under ID
type NotFoundError struct {
	ID ID
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("datasource resource not found: %s", e.ID)
}

// TypeMismatchError means LookupAs[T] got a resource that is not a T.
type TypeMismatchError struct {
	ID       ID
	Expected string
	Actual   string
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("datasource resource type mismatch for %s: expected=%s actual=%s",
		e.ID, e.Expected, e.Actual)
}
