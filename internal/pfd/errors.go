package pfd

import "errors"

// ErrMalformedHeartbeat is logged (not propagated) when a heartbeat
// connection yields undecodable data; the listener keeps accepting.
var ErrMalformedHeartbeat = errors.New("pfd: malformed heartbeat frame")
