package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"

	"github.com/fuad-daoud/warden/platform"
	"github.com/fuad-daoud/warden/platform/platformtest"
)

func TestDispatchUnknownCommand(t *testing.T) {
	hs := newHarness(t)
	r := hs.run(hs.user, "bann")

	assert.Equal(t, "❌ Unknown Command", r.Title())
	assert.Contains(t, fieldValue(t, r.Last(), "Did you mean?"), "`+ban`")
	assert.False(t, r.Deferred)
}

func TestDispatchMissingPermissions(t *testing.T) {
	hs := newHarness(t)
	r := hs.run(hs.user, "ban", hs.other.Mention())

	assert.Equal(t, "❌ Missing Permissions", r.Title())
	assert.Empty(t, hs.fake.Mutations("Ban"))
}

func TestDispatchMissingArgument(t *testing.T) {
	hs := newHarness(t)
	r := hs.run(hs.mod, "kick")

	assert.Equal(t, "❌ Missing Argument", r.Title())
	assert.Equal(t, "The command `kick` is missing the argument: `member`", r.Last().Embeds[0].Description)
	assert.Equal(t, "`+kick <member> [reason=No reason provided]`", fieldValue(t, r.Last(), "Correct Usage"))
}

func TestDispatchBadArgument(t *testing.T) {
	hs := newHarness(t)
	r := hs.run(hs.mod, "kick", "nobody")

	assert.Equal(t, "❌ Invalid Argument", r.Title())
	assert.Equal(t, `Member "nobody" not found.`, r.Last().Embeds[0].Description)
}

func TestDispatchPanicIsReported(t *testing.T) {
	hs := newHarness(t)
	registry, err := NewRegistry(&Descriptor{Name: "boom", Handler: func(context.Context, *Invocation) error {
		panic("kaboom")
	}})
	require.NoError(t, err)
	d := NewDispatcher(registry, hs.fake, DispatcherConfig{})

	r := &platformtest.Responder{}
	d.Dispatch(context.Background(), platform.CommandEvent{GuildID: hs.guild, ChannelID: hs.channel, Author: *hs.user, Name: "boom", Responder: r})

	assert.Equal(t, "❌ Error", r.Title())
	assert.Contains(t, r.Last().Embeds[0].Description, "incident")
}

func TestDispatchEphemeral(t *testing.T) {
	hs := newHarness(t)
	r := hs.slash(hs.user, "reminders", nil)

	assert.True(t, r.Deferred)
	assert.True(t, r.Last().Ephemeral)
}

func TestDispatchOwnerBypassesPermissions(t *testing.T) {
	hs := newHarness(t)
	owner := hs.fake.AddMember(hs.guild, platform.Member{User: platform.User{ID: 999, Username: "owner"}})
	r := hs.run(owner, "slowmode", "5")

	assert.Equal(t, "⏱️ Slowmode Set", r.Title())
}
