package cdp

import (
	"fmt"
	"strings"
	"time"
)

// DiscoveryError reports a failed context listing: the HTTP call itself,
// a non-JSON body, or an empty list.
type DiscoveryError struct {
	URL string
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("context discovery at %s failed: %v", e.URL, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// ContextNotFoundError reports that discovery succeeded but no context
// carries the expected title.
type ContextNotFoundError struct {
	Title     string
	Available []string
}

func (e *ContextNotFoundError) Error() string {
	return fmt.Sprintf("no debuggable context titled %q (available: %s)",
		e.Title, strings.Join(e.Available, ", "))
}

// TransportError reports a socket-level failure: dial, send, an abrupt
// close, or a malformed message body.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// TimeoutError reports that the response window elapsed with no matching
// response.
type TimeoutError struct {
	ID     int64
	Window time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("no response for command %d within %s", e.ID, e.Window)
}

// RemoteExecutionError reports a matched response carrying exception
// details: the command reached the context and the context rejected it.
type RemoteExecutionError struct {
	ID      int64
	Details string
}

func (e *RemoteExecutionError) Error() string {
	return fmt.Sprintf("command %d raised a remote exception: %s", e.ID, e.Details)
}

// NoResponseError is the defensive catch-all: the connection ended with
// neither a matching response nor a recorded failure.
type NoResponseError struct {
	ID int64
}

func (e *NoResponseError) Error() string {
	return fmt.Sprintf("connection closed with no usable outcome for command %d", e.ID)
}
