package cmd

import "context"

// RunFunc is the body of a command run.
type RunFunc func(ctx context.Context, inv *Invocation) error

// layer is one middleware around a command. Name and Description come from
// the inner command so registries key wrapped commands the same way.
type layer struct {
	inner Command
	run   RunFunc
}

func (l *layer) Name() string        { return l.inner.Name() }
func (l *layer) Description() string { return l.inner.Description() }

func (l *layer) Run(ctx context.Context, inv *Invocation) error { return l.run(ctx, inv) }

func (l *layer) Unwrap() Command { return l.inner }

// Wrap puts run in front of c. A nil run returns c unchanged.
func Wrap(c Command, run RunFunc) Command {
	if run == nil {
		return c
	}
	return &layer{inner: c, run: run}
}

// Root strips every layer added by Wrap and returns the command underneath,
// where optional interfaces such as slash definitions live.
func Root(c Command) Command {
	for {
		l, ok := c.(interface{ Unwrap() Command })
		if !ok {
			return c
		}
		c = l.Unwrap()
	}
}
