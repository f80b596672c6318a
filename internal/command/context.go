package command

import (
	"github.com/bwmarrin/discordgo"

	"github.com/keshon/radio-domme/pkg/cmd"
)

// Context is the payload the Discord adapter puts in cmd.Invocation.Data.
type Context struct {
	Event     *discordgo.InteractionCreate
	Responder Responder
}

// Invocation wraps c for cmd.Command.Run.
func (c *Context) Invocation() *cmd.Invocation {
	return &cmd.Invocation{Data: c}
}

func FromInvocation(inv *cmd.Invocation) (*Context, bool) {
	if inv == nil {
		return nil, false
	}
	c, ok := inv.Data.(*Context)
	return c, ok && c != nil && c.Event != nil
}

func (c *Context) GuildID() string   { return c.Event.GuildID }
func (c *Context) ChannelID() string { return c.Event.ChannelID }

// User is the invoking user, from the member in guilds or the user in DMs.
func (c *Context) User() *discordgo.User {
	if m := c.Event.Member; m != nil && m.User != nil {
		return m.User
	}
	if c.Event.User != nil {
		return c.Event.User
	}
	return &discordgo.User{ID: "unknown", Username: "Unknown"}
}

// DisplayName prefers the guild nickname over the global name.
func (c *Context) DisplayName() string {
	if m := c.Event.Member; m != nil && m.Nick != "" {
		return m.Nick
	}
	u := c.User()
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// IsAdmin reports whether the member holds the Administrator permission in
// the channel of the interaction.
func (c *Context) IsAdmin() bool {
	m := c.Event.Member
	return m != nil && m.Permissions&discordgo.PermissionAdministrator != 0
}

func (c *Context) IsComponent() bool {
	return c.Event.Type == discordgo.InteractionMessageComponent
}

func (c *Context) options() []*discordgo.ApplicationCommandInteractionDataOption {
	if c.Event.Type != discordgo.InteractionApplicationCommand {
		return nil
	}
	return c.Event.ApplicationCommandData().Options
}

// StringOption returns the named string option, or "".
func (c *Context) StringOption(name string) string {
	for _, o := range c.options() {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionString {
			return o.StringValue()
		}
	}
	return ""
}

// IntOption returns the named integer option.
func (c *Context) IntOption(name string) (int64, bool) {
	for _, o := range c.options() {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionInteger {
			return o.IntValue(), true
		}
	}
	return 0, false
}
