package command

import "github.com/bwmarrin/discordgo"

// Reply is the content of an interaction response.
type Reply struct {
	Content    string
	Embeds     []*discordgo.MessageEmbed
	Components []discordgo.MessageComponent
	Ephemeral  bool
}

// Responder answers interactions. The Discord implementation lives in the
// discord package so commands never import it.
type Responder interface {
	// Respond sends the initial response.
	Respond(i *discordgo.InteractionCreate, r Reply) error
	// Defer acknowledges now and answers later with Edit.
	Defer(i *discordgo.InteractionCreate, ephemeral bool) error
	// Edit replaces the deferred (or initial) response.
	Edit(i *discordgo.InteractionCreate, r Reply) error
	// Update rewrites the message a component belongs to.
	Update(i *discordgo.InteractionCreate, r Reply) error
}

func (c *Context) Respond(r Reply) error { return c.Responder.Respond(c.Event, r) }

func (c *Context) Defer(ephemeral bool) error { return c.Responder.Defer(c.Event, ephemeral) }

func (c *Context) Edit(r Reply) error { return c.Responder.Edit(c.Event, r) }

func (c *Context) Update(r Reply) error { return c.Responder.Update(c.Event, r) }

// Ephemeral answers with a private plain message.
func (c *Context) Ephemeral(content string) error {
	return c.Respond(Reply{Content: content, Ephemeral: true})
}
