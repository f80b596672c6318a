// Package command adapts Discord interactions to the pkg/cmd core.
package command

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/radio-domme/pkg/cmd"
)

// Command is what individual Discord commands implement. Slash commands and
// buttons alike; a button command is named after its custom id.
type Command interface {
	Name() string
	Description() string
	Execute(ctx context.Context, c *Context) error
}

// SlashProvider is implemented by commands registered as slash commands.
type SlashProvider interface {
	SlashDefinition() *discordgo.ApplicationCommand
}

// Adapter turns a Command into a cmd.Command for the registry.
type Adapter struct {
	Cmd Command
}

func (a *Adapter) Name() string        { return a.Cmd.Name() }
func (a *Adapter) Description() string { return a.Cmd.Description() }

func (a *Adapter) Run(ctx context.Context, inv *cmd.Invocation) error {
	c, ok := FromInvocation(inv)
	if !ok {
		return cmd.ErrUnsupportedInvocation
	}
	return a.Cmd.Execute(ctx, c)
}

func (a *Adapter) SlashDefinition() *discordgo.ApplicationCommand {
	if sp, ok := a.Cmd.(SlashProvider); ok {
		return sp.SlashDefinition()
	}
	return nil
}

// Register wraps c with mws and adds it to reg.
func Register(reg *cmd.Registry, c Command, mws ...cmd.Middleware) error {
	return reg.Register(cmd.Apply(&Adapter{Cmd: c}, mws...))
}

// Definition returns the slash definition behind c, or nil for commands that
// are not slash commands (buttons).
func Definition(c cmd.Command) *discordgo.ApplicationCommand {
	sp, ok := cmd.Root(c).(SlashProvider)
	if !ok {
		return nil
	}
	def := sp.SlashDefinition()
	if def != nil && def.Type == 0 {
		def.Type = discordgo.ChatApplicationCommand
	}
	return def
}
