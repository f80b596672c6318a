package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/keshon/radio-domme/internal/command"
)

// EmbedColor is used for bot-level notices (errors, session end).
const EmbedColor = 0xb01e66

// responder implements command.Responder on a discordgo session.
type responder struct {
	s *discordgo.Session
}

// NewResponder returns the Responder commands reply through.
func NewResponder(s *discordgo.Session) command.Responder {
	return responder{s: s}
}

func responseData(r command.Reply) *discordgo.InteractionResponseData {
	d := &discordgo.InteractionResponseData{
		Content:    r.Content,
		Embeds:     r.Embeds,
		Components: r.Components,
	}
	if r.Ephemeral {
		d.Flags = discordgo.MessageFlagsEphemeral
	}
	return d
}

func (r responder) Respond(i *discordgo.InteractionCreate, rep command.Reply) error {
	return r.s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: responseData(rep),
	})
}

func (r responder) Defer(i *discordgo.InteractionCreate, ephemeral bool) error {
	resp := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
	if ephemeral {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	return r.s.InteractionRespond(i.Interaction, resp)
}

func (r responder) Edit(i *discordgo.InteractionCreate, rep command.Reply) error {
	edit := &discordgo.WebhookEdit{}
	if rep.Embeds != nil {
		edit.Embeds = &rep.Embeds
	}
	if rep.Content != "" {
		edit.Content = &rep.Content
	}
	if rep.Components != nil {
		edit.Components = &rep.Components
	}
	_, err := r.s.InteractionResponseEdit(i.Interaction, edit)
	return err
}

func (r responder) Update(i *discordgo.InteractionCreate, rep command.Reply) error {
	return r.s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: responseData(rep),
	})
}

// replyError tells the user a command failed, whether or not the interaction
// was already acknowledged.
func replyError(r command.Responder, i *discordgo.InteractionCreate, text string) error {
	embed := &discordgo.MessageEmbed{Color: EmbedColor, Description: text}
	err := r.Respond(i, command.Reply{Embeds: []*discordgo.MessageEmbed{embed}, Ephemeral: true})
	if err == nil {
		return nil
	}
	return r.Edit(i, command.Reply{Embeds: []*discordgo.MessageEmbed{embed}})
}
