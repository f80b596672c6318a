package discord

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/bwmarrin/discordgo"
)

type hashedOption struct {
	Name        string                                  `json:"name"`
	Description string                                  `json:"description"`
	Type        discordgo.ApplicationCommandOptionType `json:"type"`
	Required    bool                                    `json:"required"`
	Choices     [][2]any                                `json:"choices,omitempty"`
	Min         *float64                                `json:"min,omitempty"`
	Max         float64                                 `json:"max,omitempty"`
	Options     []hashedOption                          `json:"options,omitempty"`
}

type hashedCommand struct {
	Name        string                           `json:"name"`
	Description string                           `json:"description"`
	Type        discordgo.ApplicationCommandType `json:"type"`
	Options     []hashedOption                   `json:"options,omitempty"`
}

// hashCommand fingerprints the user-visible part of a definition, so local
// definitions compare equal to what Discord returns for them.
func hashCommand(c *discordgo.ApplicationCommand) string {
	typ := c.Type
	if typ == 0 {
		typ = discordgo.ChatApplicationCommand
	}
	data, _ := json.Marshal(hashedCommand{
		Name:        c.Name,
		Description: c.Description,
		Type:        typ,
		Options:     hashOptions(c.Options),
	})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func hashOptions(opts []*discordgo.ApplicationCommandOption) []hashedOption {
	if len(opts) == 0 {
		return nil
	}
	out := make([]hashedOption, len(opts))
	for i, o := range opts {
		h := hashedOption{
			Name:        o.Name,
			Description: o.Description,
			Type:        o.Type,
			Required:    o.Required,
			Min:         o.MinValue,
			Max:         o.MaxValue,
			Options:     hashOptions(o.Options),
		}
		for _, c := range o.Choices {
			h.Choices = append(h.Choices, [2]any{c.Name, c.Value})
		}
		out[i] = h
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
