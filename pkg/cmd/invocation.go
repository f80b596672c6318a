// Package cmd is a transport-agnostic command core: a command has a name, a
// description and Run(ctx, invocation). Adapters decide how commands are
// registered and dispatched (Discord slash commands, buttons).
package cmd

import (
	"context"
	"errors"
)

// ErrUnsupportedInvocation is returned by commands that got an invocation
// payload they do not understand.
var ErrUnsupportedInvocation = errors.New("unsupported invocation")

// Invocation carries the input an adapter passes to a command. Data holds the
// adapter's own context.
type Invocation struct {
	Args []string
	Data any
}

// Command is identity plus execution. Permissions and transport-specific
// registration stay in adapters.
type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}
