package retrieval

import (
	"strings"

	"github.com/rotisserie/eris"
)

var (
	// ErrNoCredential means the fallback channels were needed but no places
	// API key was supplied.
	ErrNoCredential = eris.New("retrieval: no places api key configured")

	// ErrConnectivity means the primary channel was unavailable and every
	// fallback channel failed. Returned errors match it via errors.Is.
	ErrConnectivity = eris.New("retrieval: all channels failed")
)

// ChannelFailure records why one channel failed.
type ChannelFailure struct {
	Channel string
	Err     error
}

// ConnectivityError lists every failed attempt of one search.
type ConnectivityError struct {
	Failures []ChannelFailure
}

func (e *ConnectivityError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Channel + ": " + f.Err.Error()
	}
	return ErrConnectivity.Error() + ": " + strings.Join(parts, "; ")
}

// Is reports ErrConnectivity equality for errors.Is.
func (e *ConnectivityError) Is(target error) bool {
	return target == ErrConnectivity
}

// unavailableError marks a primary-channel failure that should fall through
// to the fallback channels: backend not deployed or not reachable.
type unavailableError struct {
	reason string
	err    error
}

func (e *unavailableError) Error() string {
	if e.err != nil {
		return "retrieval: backend unavailable (" + e.reason + "): " + e.err.Error()
	}
	return "retrieval: backend unavailable (" + e.reason + ")"
}

func (e *unavailableError) Unwrap() error { return e.err }
