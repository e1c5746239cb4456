package notification

import (
	"fmt"
	"os"
	"time"

	"github.com/bwmarrin/discordgo"
)

type DiscordNotifier struct {
	sg *discordgo.Session
}

func NewDiscordNotifier() (*DiscordNotifier, error) {
	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN environment variable not set")
	}

	sg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	if err := sg.Open(); err != nil {
		return nil, err
	}

	return &DiscordNotifier{sg: sg}, nil
}

func (c *DiscordNotifier) getSeverityColor(severity string) int {
	switch severity {
	case SeverityCritical:
		return 0x8B0000
	case SeverityHigh:
		return 0xFF0000
	case SeverityMedium:
		return 0xFF8C00
	case SeverityLow:
		return 0xFFD700
	case SeverityInfo:
		return 0x00BFFF
	default:
		return 0x808080
	}
}

func (c *DiscordNotifier) Send(event Event) error {
	if c.sg == nil {
		return fmt.Errorf("Discord client not initialized")
	}

	channelID := os.Getenv("DISCORD_CHANNEL_ID")
	if channelID == "" {
		return fmt.Errorf("DISCORD_CHANNEL_ID not set")
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	embed := &discordgo.MessageEmbed{
		Title:     event.Message,
		Color:     c.getSeverityColor(event.Severity),
		Timestamp: event.Timestamp.Format(time.RFC3339),
	}

	if len(event.Details) > 0 {
		fields := make([]*discordgo.MessageEmbedField, 0, len(event.Details))
		for key, value := range event.Details {
			fields = append(fields, &discordgo.MessageEmbedField{
				Name:   key,
				Value:  value,
				Inline: true,
			})
		}
		embed.Fields = fields
	}

	_, err := c.sg.ChannelMessageSendEmbed(channelID, embed)
	return err
}

func (c *DiscordNotifier) Close() error {
	if c.sg != nil {
		return c.sg.Close()
	}
	return nil
}
