// Package httputil holds bounded body readers shared by the backend client
// and the HTTP surface.
package httputil

import (
	"errors"
	"io"
)

const (
	// MaxResponseBodyBytes caps a non-streaming chat response.
	MaxResponseBodyBytes int64 = 10 << 20
	// MaxErrorBodyBytes caps the part of an error response kept for the message.
	MaxErrorBodyBytes int64 = 64 << 10
)

var ErrBodyTooLarge = errors.New("body too large")

// ReadLimited reads at most max bytes from r. When r holds more, the first
// max bytes are returned together with ErrBodyTooLarge. A non-positive max
// reads everything.
func ReadLimited(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		return io.ReadAll(r)
	}

	body, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return body, err
	}
	if int64(len(body)) > max {
		return body[:max], ErrBodyTooLarge
	}
	return body, nil
}

// Truncate reads up to max bytes and drops the rest. Read errors are ignored;
// it is meant for diagnostic bodies.
func Truncate(r io.Reader, max int64) []byte {
	body, _ := io.ReadAll(io.LimitReader(r, max))
	return body
}
