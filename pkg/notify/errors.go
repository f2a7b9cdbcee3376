package notify

import "fmt"

// TransportError reports that a command could not be delivered to the server
// or its response could not be read. HTTP status codes are never turned into
// a TransportError.
type TransportError struct {
	Command string
	URL     string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("notify: %s: cannot connect to %s: %v", e.Command, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// EncodeError reports a request payload that cannot be marshaled to JSON.
type EncodeError struct {
	Command string
	Err     error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("notify: %s: encode payload: %v", e.Command, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// DecodeError reports a response that does not have the shape the command
// promises. Field is set when a single field failed (e.g. base64 content).
type DecodeError struct {
	Command string
	Field   string
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("notify: %s: decode %s: %v", e.Command, e.Field, e.Err)
	}
	return fmt.Sprintf("notify: %s: decode response: %v", e.Command, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
