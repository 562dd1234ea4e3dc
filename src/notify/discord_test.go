package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stake-plus/simd-tracker/src/config"
	"github.com/stake-plus/simd-tracker/src/shared/simd"
	"github.com/stake-plus/simd-tracker/src/syncer"
)

var _ syncer.Notifier = (*Discord)(nil)

type fakeSender struct {
	channel string
	embeds  []*discordgo.MessageEmbed
	err     error
}

func (f *fakeSender) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.channel = channelID
	f.embeds = append(f.embeds, embed)
	return &discordgo.Message{}, f.err
}

func TestNewDiscordDisabledWithoutToken(t *testing.T) {
	d, err := NewDiscord(config.Discord{ChannelID: "123"}, "o", "r", nil)
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestSIMDCreated(t *testing.T) {
	f := &fakeSender{}
	d := newDiscord(f, "chan", "o", "r", nil)

	d.SIMDCreated(context.Background(), simd.SIMD{
		ID: "0042", Title: "Fee markets", Status: simd.StatusAccepted, SourceStage: simd.StageMain,
		MainProposalPath: "proposals/0042-fee-markets.md",
	})

	require.Len(t, f.embeds, 1)
	e := f.embeds[0]
	assert.Equal(t, "chan", f.channel)
	assert.Equal(t, "New SIMD-0042: Fee markets", e.Title)
	assert.Equal(t, "https://github.com/o/r/blob/main/proposals/0042-fee-markets.md", e.URL)
	assert.Equal(t, "No summary yet.", e.Description)
	assert.Equal(t, "Accepted", e.Fields[0].Value)
}

func TestRunFailedTruncatesAndSwallowsErrors(t *testing.T) {
	f := &fakeSender{err: errors.New("discord down")}
	d := newDiscord(f, "chan", "o", "r", nil)

	d.RunFailed(context.Background(), simd.JobPRs, errors.New(strings.Repeat("e", 5000)))

	require.Len(t, f.embeds, 1)
	assert.Equal(t, `Sync job "prs" failed`, f.embeds[0].Title)
	assert.Len(t, []rune(f.embeds[0].Description), maxDescription)
	assert.True(t, strings.HasSuffix(f.embeds[0].Description, "..."))
}
