// file: internal/lastfm/errors.go
// version: 1.0.0
// guid: e94cb2ab-dfc0-4599-a034-2297220ce5e0

package lastfm

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the service has no album for the queried pair.
	ErrNotFound = errors.New("lastfm: album not found")
	// ErrTransport marks network, timeout, HTTP status and decoding failures.
	ErrTransport = errors.New("lastfm: transport failure")
)

// errCodeInvalidParameters is what album.getInfo returns for unknown albums.
const errCodeInvalidParameters = 6

// APIError is an error envelope returned by the Last.fm API. It matches
// ErrTransport.
type APIError struct {
	Code       int
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lastfm: api error %d (http %d): %s", e.Code, e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrTransport
}
