package commands

import (
	"errors"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"

	"github.com/fuad-daoud/warden/platform"
)

func TestKick(t *testing.T) {
	hs := newHarness(t)
	r := hs.run(hs.mod, "kick", hs.user.Mention(), "spamming", "links")

	assert.Equal(t, "👢 Member Kicked", r.Title())
	assert.Equal(t, "spamming links", fieldValue(t, r.Last(), "Reason"))
	assert.Equal(t, hs.mod.Mention(), fieldValue(t, r.Last(), "Moderator"))
	kicks := hs.fake.Mutations("Kick")
	require.Len(t, kicks, 1)
	assert.Equal(t, hs.user.ID.String(), kicks[0].Target)
	assert.Equal(t, "spamming links", kicks[0].Reason)
}

func TestHierarchyRefusal(t *testing.T) {
	hs := newHarness(t)
	peer := hs.fake.AddMember(hs.guild, platform.Member{User: platform.User{Username: "erin"}, RoleIDs: []snowflake.ID{hs.modRole.ID}})

	for _, tc := range []struct {
		command string
		target  *platform.Member
		args    []string
		verb    string
	}{
		{"kick", hs.admin, nil, "kick"},
		{"ban", hs.admin, nil, "ban"},
		{"timeout", peer, []string{"5"}, "timeout"},
		{"warn", peer, []string{"rude"}, "warn"},
	} {
		t.Run(tc.command, func(t *testing.T) {
			r := hs.run(hs.mod, tc.command, append([]string{tc.target.Mention()}, tc.args...)...)
			assert.Equal(t, "❌ Error", r.Title())
			assert.Equal(t, "You cannot "+tc.verb+" someone with a higher or equal role!", r.Last().Embeds[0].Description)
		})
	}
	assert.Empty(t, hs.fake.Mutations("Kick", "Ban", "Timeout", "AddMemberRole", "CreateRole"))
}

func TestTimeout(t *testing.T) {
	hs := newHarness(t)
	before := time.Now()
	r := hs.slash(hs.mod, "timeout", map[string]string{"member": hs.user.ID.String(), "minutes": "10"})

	assert.Equal(t, "⏰ Member Timed Out", r.Title())
	assert.Equal(t, "10 minutes", fieldValue(t, r.Last(), "Duration"))
	assert.Equal(t, "No reason provided", fieldValue(t, r.Last(), "Reason"))
	until := hs.member(t, hs.user).TimedOutUntil
	require.NotNil(t, until)
	assert.WithinDuration(t, before.Add(10*time.Minute), *until, 5*time.Second)

	r = hs.run(hs.mod, "timeout", hs.user.Mention(), "0")
	assert.Equal(t, "❌ Invalid Argument", r.Title())
	assert.Equal(t, "minutes must be between 1 and 40320.", r.Last().Embeds[0].Description)
}

func TestUnmute(t *testing.T) {
	hs := newHarness(t)
	r := hs.run(hs.mod, "unmute", hs.user.Mention())
	assert.Equal(t, "❌ Error", r.Title())
	assert.Equal(t, hs.user.Mention()+" is not muted!", r.Last().Embeds[0].Description)

	hs.run(hs.mod, "timeout", hs.user.Mention(), "5")
	r = hs.run(hs.mod, "unmute", hs.user.Mention())
	assert.Equal(t, "🔊 Member Unmuted", r.Title())
	assert.Nil(t, hs.member(t, hs.user).TimedOutUntil)
}

func TestClear(t *testing.T) {
	hs := newHarness(t)
	for i := 0; i < 10; i++ {
		hs.fake.AddMessage(hs.channel, platform.Message{Content: "hi"})
	}

	r := hs.run(hs.mod, "clear", "3")
	assert.Equal(t, "🧹 Messages Cleared", r.Title())
	assert.Equal(t, "Cleared 3 messages", r.Last().Embeds[0].Description)
	assert.True(t, r.Last().Ephemeral)

	r = hs.slash(hs.mod, "clear", map[string]string{"amount": "2"})
	assert.Equal(t, "Cleared 2 messages", r.Last().Embeds[0].Description)

	left, err := hs.fake.Messages(context.Background(), hs.channel, platform.MessageQuery{})
	require.NoError(t, err)
	assert.Len(t, left, 4)

	r = hs.run(hs.mod, "clear", "101")
	assert.Equal(t, "❌ Invalid Argument", r.Title())

	t.Run("a full hundred spans two pages", func(t *testing.T) {
		hs := newHarness(t)
		for i := 0; i < 150; i++ {
			hs.fake.AddMessage(hs.channel, platform.Message{Content: "spam"})
		}
		r := hs.run(hs.mod, "clear", "100")
		assert.Equal(t, "Cleared 100 messages", r.Last().Embeds[0].Description)

		left, err := platform.RecentMessages(context.Background(), hs.fake, hs.channel, 200)
		require.NoError(t, err)
		assert.Len(t, left, 49)
	})
}

func TestSlowmode(t *testing.T) {
	hs := newHarness(t)
	r := hs.run(hs.mod, "slowmode", "30")
	assert.Equal(t, "Slowmode set to 30 seconds", r.Last().Embeds[0].Description)

	channel, err := hs.fake.Channel(context.Background(), hs.channel)
	require.NoError(t, err)
	assert.Equal(t, 30, channel.Slowmode)
}

func TestNickname(t *testing.T) {
	hs := newHarness(t)
	r := hs.run(hs.mod, "nickname", hs.user.Mention(), "Captain", "Carol")
	assert.Equal(t, "✅ Changed carol's nickname to: Captain Carol", r.Title())
	assert.Equal(t, "Captain Carol", hs.member(t, hs.user).Nick)

	r = hs.run(hs.mod, "nickname", "Davey")
	assert.Equal(t, "✅ Changed dave's nickname to: Reset to default", r.Title())
	assert.Empty(t, hs.member(t, hs.other).Nick)
}

func TestReport(t *testing.T) {
	hs := newHarness(t)
	modLog := hs.fake.AddChannel(hs.guild, platform.Channel{Name: "mod-log", Position: 1})

	r := hs.run(hs.user, "report", hs.other.Mention(), "being", "mean")
	assert.Equal(t, "✅ Report submitted to moderators", r.Title())
	assert.True(t, r.Last().Ephemeral)

	sent := hs.fake.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, modLog.ID, sent[0].ChannelID)
	assert.Equal(t, "⚠️ User Report", sent[0].Message.Embeds[0].Title)
	assert.Equal(t, "being mean", fieldValue(t, sent[0].Message, "Reason"))
}

func TestServerIcon(t *testing.T) {
	hs := newHarness(t)
	hs.fetcher.bodies["https://img.example/icon.png"] = []byte("png-bytes")

	r := hs.run(hs.mod, "servericon")
	assert.Equal(t, "Please provide a URL or attach an image!", r.Title())

	r = hs.run(hs.mod, "servericon", "https://img.example/icon.png")
	assert.Equal(t, "✅ Server icon updated successfully!", r.Title())
	guild, err := hs.fake.Guild(context.Background(), hs.guild)
	require.NoError(t, err)
	assert.Equal(t, "icon:9", guild.IconURL)

	r = hs.dispatch(platform.CommandEvent{Author: *hs.mod, Name: "servericon",
		Attachments: []platform.Attachment{{ID: 77, URL: "https://img.example/missing.png"}}})
	assert.Contains(t, r.Title(), "❌ Failed to update server icon:")

	hs.fake.Fail("UpdateGuild", errors.New("missing access"))
	r = hs.run(hs.mod, "servericon", "https://img.example/icon.png")
	assert.Equal(t, "❌ Failed to update server icon: missing access", r.Title())
}
