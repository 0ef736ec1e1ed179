package promptapi

import "fmt"

// ValidationError rejects a request before it reaches the network.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RequestError covers every failed exchange with the service: transport
// failures, non-2xx statuses and undecodable bodies are not told apart
// beyond StatusCode, which is 0 when no response arrived.
type RequestError struct {
	Method     string
	Path       string
	StatusCode int
	Reason     string
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("promptcrafter %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("promptcrafter %s %s: %s", e.Method, e.Path, e.Reason)
}

func (e *RequestError) Unwrap() error { return e.Err }
