package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/bryanwahyu/sentinelai/internal/domain/analysis"
	domain "github.com/bryanwahyu/sentinelai/internal/domain/scans"
)

// sender is the part of discordgo.Session the alerter needs.
type sender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordAlerter posts MALICIOUS verdicts to a Discord channel.
type DiscordAlerter struct {
	sg        sender
	session   *discordgo.Session
	channelID string
}

// NewDiscordAlerter opens a bot session.
func NewDiscordAlerter(token, channelID string) (*DiscordAlerter, error) {
	if token == "" || channelID == "" {
		return nil, fmt.Errorf("discord token and channel id are required")
	}
	sg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	if err := sg.Open(); err != nil {
		return nil, err
	}
	return &DiscordAlerter{sg: sg, session: sg, channelID: channelID}, nil
}

// batas ukuran embed Discord
const (
	maxTitle       = 256
	maxDescription = 4096
	maxFieldValue  = 1024
)

func riskColor(level analysis.RiskLevel) int {
	switch level {
	case analysis.RiskMalicious:
		return 0xFF0000
	case analysis.RiskSuspicious:
		return 0xFF8C00
	case analysis.RiskSafe:
		return 0x2ECC71
	default:
		return 0x808080
	}
}

// Embed builds the alert message for item.
func Embed(item *domain.HistoryItem) *discordgo.MessageEmbed {
	findings := append(append(append([]string{}, item.Result.Threats.NLP...), item.Result.Threats.URL...), item.Result.Threats.Visual...)
	fields := []*discordgo.MessageEmbedField{
		{Name: "Type", Value: string(item.Type), Inline: true},
		{Name: "Score", Value: strconv.Itoa(item.Result.RiskScore) + "/100", Inline: true},
		{Name: "Sender", Value: clip(orDash(item.Sender), maxFieldValue), Inline: true},
	}
	if len(findings) > 0 {
		if len(findings) > 5 {
			findings = findings[:5]
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Findings", Value: clip("- "+strings.Join(findings, "\n- "), maxFieldValue)})
	}
	ts := item.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return &discordgo.MessageEmbed{
		Title:       clip(fmt.Sprintf("%s: %s", item.Result.RiskLevel, orDash(item.Subject)), maxTitle),
		Description: clip(item.Result.Summary, maxDescription),
		Color:       riskColor(item.Result.RiskLevel),
		Timestamp:   ts.Format(time.RFC3339),
		Fields:      fields,
	}
}

func (d *DiscordAlerter) Alert(ctx context.Context, item *domain.HistoryItem) error {
	if d.sg == nil {
		return fmt.Errorf("discord client not initialized")
	}
	_, err := d.sg.ChannelMessageSendEmbed(d.channelID, Embed(item), discordgo.WithContext(ctx))
	return err
}

func (d *DiscordAlerter) Close() error {
	if d.session != nil {
		return d.session.Close()
	}
	return nil
}

// clip cuts s to at most n runes, marking the cut with an ellipsis.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
