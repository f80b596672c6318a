package music

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/radio-domme/internal/music/media"
	"github.com/keshon/radio-domme/internal/radio"
)

const (
	ColorRadio   = 0x2f3136
	ColorYouTube = 0xff0000

	radioThumbnail = "https://cdn-icons-png.flaticon.com/512/2995/2995099.png"
)

// Button custom ids. The button commands are registered under these names.
const (
	RadioStopID   = "radio_stop"
	YouTubeStopID = "youtube_stop"
)

func statusEmbed(color int, text string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color:  color,
		Author: &discordgo.MessageEmbedAuthor{Name: text},
	}
}

func radioEmbed(st radio.Station, volume int, requester string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color:       ColorRadio,
		Title:       "📻 " + st.Name,
		Description: "**Now Playing:** Live Stream",
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Volume", Value: fmt.Sprintf("%d%%", volume), Inline: true},
		},
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: radioThumbnail},
		Footer:    &discordgo.MessageEmbedFooter{Text: "Requested by " + requester},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func trackEmbed(t media.Track, volume int, requester string) *discordgo.MessageEmbed {
	title := t.Title
	if title == "" {
		title = "YouTube Audio"
	}
	author := t.Author
	if author == "" {
		author = "YouTube Channel"
	}
	e := &discordgo.MessageEmbed{
		Color:       ColorYouTube,
		Title:       "🎵 " + title,
		URL:         t.URL,
		Description: "**Channel:** " + author,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Duration", Value: t.FormatDuration(), Inline: true},
			{Name: "Volume", Value: fmt.Sprintf("%d%%", volume), Inline: true},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "Requested by " + requester},
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if t.Thumbnail != "" {
		e.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: t.Thumbnail}
	}
	return e
}

func stopButtonRow(customID, label string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				CustomID: customID,
				Label:    label,
				Style:    discordgo.DangerButton,
				Emoji:    &discordgo.ComponentEmoji{Name: "⏹️"},
			},
		}},
	}
}

func embeds(e ...*discordgo.MessageEmbed) []*discordgo.MessageEmbed { return e }
