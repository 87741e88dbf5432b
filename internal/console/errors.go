package console

import (
	"errors"
	"fmt"
)

// Generic messages used when the server's error body is not usable.
const (
	unparsableErrorBody = "failed to parse error response from server"
	statusErrorFormat   = "HTTP error! Status: %d"
)

// ErrorKind classifies client failures.
type ErrorKind int

const (
	// KindNone means no error.
	KindNone ErrorKind = iota
	// KindNetwork is a transport failure; the request did not complete.
	KindNetwork
	// KindHTTP is a non-2xx response.
	KindHTTP
	// KindMalformed is a 2xx response whose body could not be used.
	KindMalformed
	// KindOther is any other error, such as a cancelled context.
	KindOther
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNetwork:
		return "network"
	case KindHTTP:
		return "http"
	case KindMalformed:
		return "malformed_response"
	default:
		return "other"
	}
}

// NetworkError reports a request that could not complete.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("could not reach %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError reports a non-2xx response. Message is the server's error text
// when it sent one.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// MalformedResponseError reports a success response that could not be decoded.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// Kind classifies err.
func Kind(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var netErr *NetworkError
	var httpErr *HTTPError
	var malformed *MalformedResponseError
	switch {
	case errors.As(err, &httpErr):
		return KindHTTP
	case errors.As(err, &malformed):
		return KindMalformed
	case errors.As(err, &netErr):
		return KindNetwork
	default:
		return KindOther
	}
}

// httpErrorFromBody builds the HTTPError for a non-2xx response body.
func httpErrorFromBody(status int, body []byte) *HTTPError {
	var payload struct {
		Error string `json:"error"`
	}
	msg := ""
	if err := jsonUnmarshal(body, &payload); err != nil {
		msg = unparsableErrorBody
	} else {
		msg = payload.Error
	}
	if msg == "" {
		msg = fmt.Sprintf(statusErrorFormat, status)
	}
	return &HTTPError{StatusCode: status, Message: msg}
}
