package ai

import "errors"

var (
	// ErrNoCredentials is returned by CredentialPool.Draw when the pool
	// holds no secrets.
	ErrNoCredentials = errors.New("credential pool is empty")

	// ErrBreakerOpen indicates the circuit breaker refused the call.
	ErrBreakerOpen = errors.New("circuit breaker is open")

	// ErrDuplicateAdapter indicates an adapter name was registered twice.
	ErrDuplicateAdapter = errors.New("adapter already registered")

	// ErrUnknownProvider indicates a route or override names an adapter
	// that is not in the registry.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrNotCapable indicates the adapter does not support the capability
	// a task requires.
	ErrNotCapable = errors.New("adapter does not support capability")

	// ErrTaskExhausted indicates every adapter in a task's route failed.
	ErrTaskExhausted = errors.New("all providers failed for task")

	// ErrDuplicateRouteAdapter indicates an adapter appears twice in one route.
	ErrDuplicateRouteAdapter = errors.New("adapter appears twice in route")

	// ErrMissingAPIKey indicates a required vendor credential is absent.
	// Fatal at startup for the affected adapter only.
	ErrMissingAPIKey = errors.New("required API key is missing")

	// ErrInvalidMaxAttempts indicates a retry policy with a non-positive
	// attempt count.
	ErrInvalidMaxAttempts = errors.New("max attempts must be greater than zero")
)
