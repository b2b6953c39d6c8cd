package commands

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"

	"github.com/fuad-daoud/warden/platform"
)

func TestPingAndBotStats(t *testing.T) {
	hs := newHarness(t)
	r := hs.run(hs.user, "ping")
	assert.Equal(t, "🏓 Pong!", r.Title())
	assert.Equal(t, "Latency: 42ms", r.Last().Embeds[0].Description)

	r = hs.run(hs.user, "botstats")
	assert.Equal(t, "1", fieldValue(t, r.Last(), "Servers"))
	assert.Equal(t, "5", fieldValue(t, r.Last(), "Users"))
	assert.Equal(t, fmt.Sprint(len(hs.h.Registry().All())), fieldValue(t, r.Last(), "Commands"))
	assert.Equal(t, "fake", fieldValue(t, r.Last(), "Library Version"))
}

func TestAvatarAndIcon(t *testing.T) {
	hs := newHarness(t)
	r := hs.run(hs.user, "avatar")
	assert.Equal(t, "carol's Avatar", r.Title())

	r = hs.run(hs.user, "avatar", "Davey")
	assert.Equal(t, "Davey's Avatar", r.Title())

	r = hs.run(hs.user, "showicon")
	assert.Equal(t, "This server has no icon!", r.Title())

	require.NoError(t, hs.fake.UpdateGuild(context.Background(), hs.guild, platform.GuildUpdate{Icon: []byte("x")}))
	r = hs.run(hs.user, "showicon")
	assert.Equal(t, "Test Guild's Icon", r.Title())
	assert.Equal(t, "icon:1", r.Last().Embeds[0].Image)
}

func TestRoles(t *testing.T) {
	hs := newHarness(t)
	r := hs.run(hs.user, "roles")
	assert.Equal(t, hs.adminRole.Mention()+"\n"+hs.modRole.Mention(), r.Last().Embeds[0].Description)
}

func TestChannelInfo(t *testing.T) {
	hs := newHarness(t)
	r := hs.run(hs.user, "channelinfo")
	assert.Equal(t, "general", fieldValue(t, r.Last(), "Name"))
	assert.Equal(t, "None", fieldValue(t, r.Last(), "Category"))
	assert.Equal(t, "false", fieldValue(t, r.Last(), "NSFW"))
	assert.Equal(t, "0s", fieldValue(t, r.Last(), "Slowmode"))

	category := hs.fake.AddChannel(hs.guild, platform.Channel{Name: "Text", Kind: platform.ChannelKindCategory, Position: 1})
	hs.fake.AddChannel(hs.guild, platform.Channel{Name: "chat", ParentID: category.ID, Position: 2, Slowmode: 10})
	r = hs.run(hs.user, "channelinfo", "#chat")
	assert.Equal(t, "chat", fieldValue(t, r.Last(), "Name"))
	assert.Equal(t, "Text", fieldValue(t, r.Last(), "Category"))
	assert.Equal(t, "10s", fieldValue(t, r.Last(), "Slowmode"))

	r = hs.run(hs.user, "channelinfo", "#nowhere")
	assert.Equal(t, "❌ Invalid Argument", r.Title())
}

func TestInvites(t *testing.T) {
	hs := newHarness(t)
	hs.fake.AddInvite(hs.guild, platform.Invite{Code: "a", InviterID: hs.user.ID, Uses: 3})
	hs.fake.AddInvite(hs.guild, platform.Invite{Code: "b", InviterID: hs.user.ID, Uses: 2})
	hs.fake.AddInvite(hs.guild, platform.Invite{Code: "c", InviterID: hs.other.ID, Uses: 9})

	r := hs.run(hs.user, "invites")
	assert.Equal(t, "5", fieldValue(t, r.Last(), "Total Invites"))
	r = hs.run(hs.user, "invites", hs.other.Mention())
	assert.Equal(t, "9", fieldValue(t, r.Last(), "Total Invites"))
}

func TestHelp(t *testing.T) {
	hs := newHarness(t)
	r := hs.run(hs.user, "commands")
	require.Equal(t, "📚 Command List", r.Title())
	embed := r.Last().Embeds[0]
	assert.Len(t, embed.Fields, len(Categories))
	assert.Contains(t, embed.Fields[0].Value, "`+ban` - Ban a member")
	assert.True(t, strings.HasPrefix(embed.Footer, "Total Commands: "+fmt.Sprint(len(hs.h.Registry().All()))+" |"))

	r = hs.run(hs.user, "commands", "timeout")
	assert.Equal(t, "📚 Command Help: timeout", r.Title())
	assert.Equal(t, "`+timeout <member> <minutes> [reason=No reason provided]`", fieldValue(t, r.Last(), "Usage"))

	r = hs.run(hs.user, "commands", "nope")
	assert.Equal(t, "❌ Unknown Command", r.Title())
}

func TestServerInfoAndStats(t *testing.T) {
	hs := newHarness(t)
	hs.fake.AddChannel(hs.guild, platform.Channel{Name: "Voice", Kind: platform.ChannelKindVoice, Position: 1})
	hs.fake.AddChannel(hs.guild, platform.Channel{Name: "Stuff", Kind: platform.ChannelKindCategory, Position: 2})

	r := hs.run(hs.user, "serverinfo")
	assert.Equal(t, "Test Guild Info", r.Title())
	assert.Equal(t, "<@999>", fieldValue(t, r.Last(), "Owner"))
	assert.Equal(t, "5", fieldValue(t, r.Last(), "Member Count"))
	assert.Equal(t, "3", fieldValue(t, r.Last(), "Roles"))
	assert.Equal(t, "3", fieldValue(t, r.Last(), "Channels"))

	r = hs.run(hs.user, "serverstats")
	assert.Equal(t, "📊 Test Guild Statistics", r.Title())
	assert.Equal(t, "1", fieldValue(t, r.Last(), "💬 Text Channels"))
	assert.Equal(t, "1", fieldValue(t, r.Last(), "🔊 Voice Channels"))
	assert.Equal(t, "1", fieldValue(t, r.Last(), "📁 Categories"))
	assert.Equal(t, "2", fieldValue(t, r.Last(), "😀 Emojis"))

	r = hs.run(hs.user, "membercount")
	assert.Equal(t, "Total Members: 5", r.Last().Embeds[0].Description)
	assert.Equal(t, "4", fieldValue(t, r.Last(), "Humans"))
	assert.Equal(t, "1", fieldValue(t, r.Last(), "Bots"))
}

func TestUserInfo(t *testing.T) {
	hs := newHarness(t)
	r := hs.run(hs.user, "userinfo", hs.mod.Mention())
	assert.Equal(t, "User Information", r.Title())
	assert.Equal(t, "bob", fieldValue(t, r.Last(), "Username"))
	assert.Equal(t, hs.modRole.Mention(), fieldValue(t, r.Last(), "Roles"))
	assert.Equal(t, hs.modRole.Color, r.Last().Embeds[0].Color)

	r = hs.run(hs.user, "userinfo")
	assert.Equal(t, "No roles", fieldValue(t, r.Last(), "Roles"))
}

func TestTopAuthors(t *testing.T) {
	msg := func(name string) platform.Message { return platform.Message{Author: platform.User{Username: name}} }
	top := TopAuthors([]platform.Message{msg("b"), msg("a"), msg("b"), msg("c"), msg("a"), msg("b")}, 2)
	assert.Equal(t, []AuthorCount{{Name: "b", Count: 3}, {Name: "a", Count: 2}}, top)
}

func TestChannelStats(t *testing.T) {
	hs := newHarness(t)
	for _, author := range []*platform.Member{hs.user, hs.other, hs.user, hs.user} {
		hs.fake.AddMessage(hs.channel, platform.Message{Author: author.User, Content: "hey"})
	}
	r := hs.run(hs.user, "channelstats")
	assert.Equal(t, "📊 Channel Statistics: #general", r.Title())
	assert.Equal(t, "text", fieldValue(t, r.Last(), "Channel Type"))
	assert.Equal(t, "No", fieldValue(t, r.Last(), "NSFW"))
	assert.Equal(t, "carol: 3 messages\ndave: 1 messages", fieldValue(t, r.Last(), "Most Active Users (Last 100 msgs)"))
}

func TestRoleInfo(t *testing.T) {
	hs := newHarness(t)
	r := hs.run(hs.user, "roleinfo", "moderator")
	assert.Equal(t, "Role Information: Moderator", r.Title())
	assert.Equal(t, "#00ff00", fieldValue(t, r.Last(), "Color"))
	assert.Equal(t, "1", fieldValue(t, r.Last(), "Members"))
	assert.Equal(t, "Yes", fieldValue(t, r.Last(), "Mentionable"))
	assert.NotContains(t, fieldValue(t, r.Last(), "Key Permissions"), "more")

	everything := hs.fake.AddRole(hs.guild, platform.Role{Name: "Everything", Position: 1, Permissions: platform.PermissionsAll})
	r = hs.run(hs.user, "roleinfo", everything.Mention())
	assert.Contains(t, fieldValue(t, r.Last(), "Key Permissions"), "\n...and ")
}

func TestEmojis(t *testing.T) {
	hs := newHarness(t)
	r := hs.run(hs.user, "serveremojis")
	assert.Equal(t, "<:pog:501> <a:dance:502>", r.Last().Embeds[0].Description)

	r = hs.run(hs.user, "serveremotes")
	assert.Equal(t, "<:pog:501> - `501`\n<a:dance:502> - `502`", fieldValue(t, r.Last(), "Page 1"))
}

func TestFirstMessage(t *testing.T) {
	hs := newHarness(t)
	r := hs.run(hs.user, "firstmessage")
	assert.Equal(t, "Error", r.Title())
	assert.Equal(t, "No messages found!", r.Last().Embeds[0].Description)

	first := hs.fake.AddMessage(hs.channel, platform.Message{Author: hs.other.User, Content: "hello world"})
	hs.fake.AddMessage(hs.channel, platform.Message{Author: hs.user.User, Content: "second"})

	r = hs.run(hs.user, "firstmessage")
	assert.Equal(t, "First Message", r.Title())
	assert.Equal(t, "hello world", fieldValue(t, r.Last(), "Content"))
	assert.Equal(t, hs.other.Mention(), fieldValue(t, r.Last(), "Author"))
	assert.Contains(t, fieldValue(t, r.Last(), "Jump to Message"), "/"+hs.guild.String()+"/"+hs.channel.String()+"/"+first.ID.String()+")")
}
