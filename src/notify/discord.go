// Package notify posts sync events to a Discord channel.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/stake-plus/simd-tracker/src/config"
	"github.com/stake-plus/simd-tracker/src/logging"
	"github.com/stake-plus/simd-tracker/src/shared/simd"
)

const (
	colorCreated = 0x14F195
	colorFailed  = 0xE74C3C

	// Discord rejects embed descriptions beyond 4096 characters.
	maxDescription = 4000
)

type embedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord implements syncer.Notifier over the Discord REST API. Send failures
// are logged and never reach the engines.
type Discord struct {
	session   embedSender
	channelID string
	repoURL   string
	log       *zap.Logger
}

// NewDiscord returns nil when the bot token or channel is not configured.
func NewDiscord(cfg config.Discord, owner, repo string, log *zap.Logger) (*Discord, error) {
	if cfg.Token == "" || cfg.ChannelID == "" {
		return nil, nil
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	return newDiscord(session, cfg.ChannelID, owner, repo, log), nil
}

func newDiscord(s embedSender, channelID, owner, repo string, log *zap.Logger) *Discord {
	return &Discord{
		session:   s,
		channelID: channelID,
		repoURL:   "https://github.com/" + owner + "/" + repo,
		log:       logging.OrNop(log).Named("notify"),
	}
}

func (d *Discord) SIMDCreated(ctx context.Context, rec simd.SIMD) {
	desc := rec.Summary
	if desc == "" {
		desc = "No summary yet."
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Status", Value: string(rec.Status), Inline: true},
		{Name: "Stage", Value: string(rec.SourceStage), Inline: true},
	}
	url := d.repoURL
	switch {
	case rec.MainProposalPath != "":
		url += "/blob/main/" + rec.MainProposalPath
	case rec.PRProposalPath != "":
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Path", Value: rec.PRProposalPath})
	}
	d.send(ctx, &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("New SIMD-%s: %s", rec.ID, rec.Title),
		URL:         url,
		Description: truncate(desc),
		Color:       colorCreated,
		Fields:      fields,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}

func (d *Discord) RunFailed(ctx context.Context, jobType string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	d.send(ctx, &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Sync job %q failed", jobType),
		Description: truncate("```\n" + msg + "\n```"),
		Color:       colorFailed,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}

func (d *Discord) send(ctx context.Context, embed *discordgo.MessageEmbed) {
	if _, err := d.session.ChannelMessageSendEmbed(d.channelID, embed, discordgo.WithContext(ctx)); err != nil {
		d.log.Warn("discord send failed", zap.String("title", embed.Title), zap.Error(err))
	}
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxDescription {
		return s
	}
	return string(r[:maxDescription-3]) + "..."
}
