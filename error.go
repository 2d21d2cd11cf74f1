package replay

import (
	"errors"
	"fmt"
	"net/http"
	"syscall"
)

// ErrNoMockAvailable is matched, via errors.Is, by the error RoundTripper
// returns when a request has no handler and no fixture and falling back to
// the network is disabled.
var ErrNoMockAvailable = errors.New("replay: no mock available")

// ErrUnidentifiable is returned when a request produces no identity hash and
// therefore cannot be filed.
var ErrUnidentifiable = errors.New("replay: request has no identity")

var errInvalidJSON = errors.New("invalid JSON")

// Error is returned by RoundTripper when a request or response body cannot
// be buffered. It carries the request being resolved so callers can tell a
// replay failure from an error produced elsewhere in an *http.Client.
type Error struct {
	// Request is the *http.Request that was being processed when the error
	// occurred.
	Request *http.Request
	// Response is the *http.Response being processed, if any.
	Response *http.Response
	// Err is the underlying read error.
	Err error
}

func (r *Error) Error() string {
	return r.Err.Error()
}

func (r *Error) Unwrap() error {
	return r.Err
}

// NotConnectedError reports a request that could not be served offline. It
// looks like a network-unreachable error to code that inspects transport
// errors: it unwraps to syscall.ENETUNREACH and implements net.Error.
type NotConnectedError struct {
	Method string
	URL    string
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("replay: not connected to network: no mock for %s %s", e.Method, e.URL)
}

func (e *NotConnectedError) Unwrap() error { return syscall.ENETUNREACH }

// Is reports whether target is ErrNoMockAvailable.
func (e *NotConnectedError) Is(target error) bool { return target == ErrNoMockAvailable }

// Timeout is part of net.Error.
func (e *NotConnectedError) Timeout() bool { return false }

// Temporary is part of net.Error.
func (e *NotConnectedError) Temporary() bool { return false }

// DecodeError reports a fixture that could not be parsed.
type DecodeError struct {
	Path  string
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	switch {
	case e.Path != "" && e.Field != "":
		return fmt.Sprintf("replay: decode %s (%s): %v", e.Path, e.Field, e.Err)
	case e.Path != "":
		return fmt.Sprintf("replay: decode %s: %v", e.Path, e.Err)
	case e.Field != "":
		return fmt.Sprintf("replay: decode %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("replay: decode: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports a body that could not be encoded for inline storage.
type EncodeError struct {
	Field       string
	ContentType string
	Err         error
}

func (e *EncodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("replay: encode %s as %q: %v", e.Field, e.ContentType, e.Err)
	}
	return fmt.Sprintf("replay: encode %q: %v", e.ContentType, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// MissingSidecarError reports a sidecar file implied by the naming convention
// that is not present on disk.
type MissingSidecarError struct {
	Path string
	Err  error
}

func (e *MissingSidecarError) Error() string {
	return fmt.Sprintf("replay: missing sidecar %s: %v", e.Path, e.Err)
}

func (e *MissingSidecarError) Unwrap() error { return e.Err }
