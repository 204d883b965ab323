package registry

import "errors"

var (
	// ErrUnexpectedResponse is returned by the client when the server's
	// response kind doesn't match the request that was sent.
	ErrUnexpectedResponse = errors.New("registry: unexpected response kind")

	// ErrMalformedRequest is returned by the server when an incoming
	// request's kind doesn't carry the fields it requires.
	ErrMalformedRequest = errors.New("registry: malformed request")
)
