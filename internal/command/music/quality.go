package music

import "github.com/bwmarrin/discordgo"

// Quality trades loudness for headroom. Each tier caps the configured volume.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// ParseQuality maps an option value to a tier. Unknown or empty is high.
func ParseQuality(s string) Quality {
	switch Quality(s) {
	case QualityLow, QualityMedium:
		return Quality(s)
	}
	return QualityHigh
}

// Volume is the playback volume of the tier for a configured volume.
func (q Quality) Volume(configured int) int {
	switch q {
	case QualityLow:
		return min(configured, 70)
	case QualityMedium:
		return min(configured, 80)
	}
	return configured
}

func qualityOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "quality",
		Description: "Audio quality (higher uses more bandwidth)",
		Choices: []*discordgo.ApplicationCommandOptionChoice{
			{Name: "Low", Value: string(QualityLow)},
			{Name: "Medium", Value: string(QualityMedium)},
			{Name: "High", Value: string(QualityHigh)},
		},
	}
}
