package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
)

var (
	// ErrSuperseded means a restart was dropped because the guild moved on
	// (stopped, replaced or released) since it was scheduled.
	ErrSuperseded = errors.New("session superseded")
	// ErrUnauthorized rejects a stop from someone who is neither the
	// requester nor an administrator.
	ErrUnauthorized = errors.New("only the requester or an administrator can stop this session")
	// ErrNoSession is returned when the guild has nothing playing.
	ErrNoSession = errors.New("nothing is playing in this server")
	// ErrRetriesExhausted ends a session whose reconnect budget ran out.
	ErrRetriesExhausted = errors.New("reconnect attempts exhausted")
	// ErrClosed is returned by Start after the registry was closed.
	ErrClosed = errors.New("session registry is closed")
)

// InputError is a bad request: invalid URL, unknown station, bad scheme.
// Nothing is touched when it is returned.
type InputError struct {
	Msg string
	Err error
}

func (e *InputError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// ConnectError means a session could not be built. No entry is left behind.
type ConnectError struct {
	Op  string
	Err error
}

func (e *ConnectError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *ConnectError) Unwrap() error { return e.Err }

// FatalPlayerError is a playback failure that is not worth retrying.
type FatalPlayerError struct {
	Err error
}

func (e *FatalPlayerError) Error() string { return fmt.Sprintf("fatal player error: %v", e.Err) }

func (e *FatalPlayerError) Unwrap() error { return e.Err }

var transientSignatures = []string{"ETIMEDOUT", "ECONNRESET", "connection reset", "timed out", "timeout"}

// IsTransient reports whether err is a network hiccup worth a reconnect:
// timeouts, resets and deadline errors.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ETIMEDOUT) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	msg := err.Error()
	for _, sig := range transientSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
