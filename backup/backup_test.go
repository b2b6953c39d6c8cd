package backup

import (
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"

	"github.com/fuad-daoud/warden/platform"
	"github.com/fuad-daoud/warden/platform/platformtest"
)

func sourceGuild(t *testing.T, fake *platformtest.Fake) snowflake.ID {
	t.Helper()
	guild := fake.AddGuild(platform.Guild{Name: "Source", Description: "the original"})
	fake.AddRole(guild.ID, platform.Role{Name: "Admin", Position: 3, Color: 0xe74c3c, Permissions: platform.PermissionAdministrator})
	fake.AddRole(guild.ID, platform.Role{Name: "Mod", Position: 2, Color: 0x3498db, Permissions: platform.PermissionKickMembers})
	fake.AddRole(guild.ID, platform.Role{Name: "Member", Position: 1})
	general := fake.AddChannel(guild.ID, platform.Channel{Name: "General", Kind: platform.ChannelKindCategory, Position: 0})
	fake.AddChannel(guild.ID, platform.Channel{Name: "chat", ParentID: general.ID, Position: 1})
	fake.AddChannel(guild.ID, platform.Channel{Name: "Lounge", Kind: platform.ChannelKindVoice, ParentID: general.ID, Position: 2})
	fake.AddChannel(guild.ID, platform.Channel{Name: "announcements", Kind: platform.ChannelKindNews, Position: 3})
	fake.AddChannel(guild.ID, platform.Channel{Name: "rules", Position: 4})
	return guild.ID
}

type channelKey struct {
	Name, Type, Category string
}

func restorable(snap *Snapshot) []channelKey {
	var out []channelKey
	for _, c := range snap.Channels {
		if c.Reconstructible() {
			out = append(out, channelKey{c.Name, c.Type, c.CategoryName()})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func roleNames(snap *Snapshot) []string {
	var out []string
	for _, r := range snap.Roles {
		out = append(out, r.Name)
	}
	return out
}

func TestProduce(t *testing.T) {
	fake := platformtest.New()
	guildID := sourceGuild(t, fake)

	snap, err := Produce(context.Background(), fake, guildID)
	require.NoError(t, err)
	assert.Equal(t, "Source", snap.Name)
	require.NotNil(t, snap.Description)
	assert.Equal(t, "the original", *snap.Description)
	assert.Nil(t, snap.IconURL)
	assert.Equal(t, []string{"Member", "Mod", "Admin"}, roleNames(snap))
	assert.Equal(t, "#e74c3c", snap.Roles[2].Color)
	require.Len(t, snap.Channels, 5)
	assert.Equal(t, "General", snap.Channels[1].CategoryName())
	assert.Empty(t, snap.Channels[4].CategoryName())
	assert.Empty(t, fake.Mutations(), "producing a snapshot must not mutate")
}

func TestSnapshotEncodeParse(t *testing.T) {
	fake := platformtest.New()
	snap, err := Produce(context.Background(), fake, sourceGuild(t, fake))
	require.NoError(t, err)

	data, err := snap.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"icon_url": null`)

	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, snap, parsed)
}

func TestParseRejects(t *testing.T) {
	for name, input := range map[string]string{
		"not json":     `roles: []`,
		"no roles":     `{"name": "x", "channels": []}`,
		"no channels":  `{"name": "x", "roles": []}`,
		"empty name":   `{"name": " ", "roles": [], "channels": []}`,
		"wrong shapes": `{"name": "x", "roles": {}, "channels": []}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(input))
			assert.ErrorIs(t, err, ErrInvalidSnapshot)
		})
	}
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#f1c40f")
	require.NoError(t, err)
	assert.Equal(t, 0xf1c40f, c)
	c, err = ParseColor("000000")
	require.NoError(t, err)
	assert.Zero(t, c)
	_, err = ParseColor("#zzzzzz")
	assert.Error(t, err)
	_, err = ParseColor("#1234567")
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	assert.Equal(t, "backup_42_20240309_140507.txt", FileName(42, at))
}

func noSleep(e *Executor) *Executor {
	e.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return e
}

func TestRestoreIntoEmptyGuild(t *testing.T) {
	fake := platformtest.New()
	ctx := context.Background()
	snap, err := Produce(ctx, fake, sourceGuild(t, fake))
	require.NoError(t, err)

	target := fake.AddGuild(platform.Guild{Name: "Fresh"})
	command := fake.AddChannel(target.ID, platform.Channel{Name: "command"})

	var slept int
	executor := NewExecutor(fake, 500*time.Millisecond, nil)
	executor.sleep = func(_ context.Context, d time.Duration) error {
		assert.Equal(t, 500*time.Millisecond, d)
		slept++
		return nil
	}
	result, err := executor.Restore(ctx, target.ID, command.ID, snap)
	require.NoError(t, err)
	assert.Empty(t, result.Failures())
	assert.Equal(t, 6, slept, "one delay per created role and channel")

	rebuilt, err := Produce(ctx, fake, target.ID)
	require.NoError(t, err)
	assert.Equal(t, "Source", rebuilt.Name)
	assert.Equal(t, "the original", *rebuilt.Description)
	assert.Equal(t, roleNames(snap), roleNames(rebuilt))

	var kept []channelKey
	for _, c := range restorable(rebuilt) {
		if c.Name != "command" {
			kept = append(kept, c)
		}
	}
	assert.Equal(t, restorable(snap), kept)

	assert.Equal(t, Counts{Succeeded: 3}, result.Counts(StepCreateRole))
	assert.Equal(t, Counts{Succeeded: 3, Skipped: 2}, result.Counts(StepCreateChannel))
	assert.Equal(t, Counts{Succeeded: 1}, result.Counts(StepCreateCategory))
	assert.Zero(t, result.Counts(StepDeleteChannel).Succeeded)
}

func TestRestoreCollision(t *testing.T) {
	fake := platformtest.New()
	ctx := context.Background()
	snap, err := Produce(ctx, fake, sourceGuild(t, fake))
	require.NoError(t, err)

	target := fake.AddGuild(platform.Guild{Name: "Busy"})
	fake.AddRole(target.ID, platform.Role{Name: "Admin", Position: 5})
	botRole := fake.AddRole(target.ID, platform.Role{Name: "Warden", Position: 4, Managed: true})
	fake.AddRole(target.ID, platform.Role{Name: "Old", Position: 2})
	fake.GiveBotRole(target.ID, botRole.ID)
	command := fake.AddChannel(target.ID, platform.Channel{Name: "command"})
	fake.AddChannel(target.ID, platform.Channel{Name: "stuck"})
	fake.AddChannel(target.ID, platform.Channel{Name: "old-chat"})
	fake.Fail("DeleteChannel:stuck", platform.ErrForbidden)
	fake.Fail("CreateRole:Admin", errors.New("role name already in use"))

	result, err := noSleep(NewExecutor(fake, 0, nil)).Restore(ctx, target.ID, command.ID, snap)
	require.NoError(t, err)

	failures := result.Failures()
	require.Len(t, failures, 2)
	assert.Equal(t, ItemResult{Step: StepDeleteChannel, Name: "stuck", Outcome: Failed, Reason: platform.ErrForbidden.Error()}, failures[0])
	assert.Equal(t, StepCreateRole, failures[1].Step)
	assert.Equal(t, "Admin", failures[1].Name)

	assert.Equal(t, Counts{Succeeded: 1, Failed: 1}, result.Counts(StepDeleteChannel))
	assert.Equal(t, Counts{Succeeded: 1, Skipped: 2}, result.Counts(StepDeleteRole))
	assert.Equal(t, Counts{Succeeded: 2, Failed: 1}, result.Counts(StepCreateRole))
	assert.Equal(t, Counts{Succeeded: 3, Skipped: 2}, result.Counts(StepCreateChannel))
	assert.Equal(t, Counts{Succeeded: 1}, result.Counts(StepUpdateGuild))

	roles, err := fake.Roles(ctx, target.ID)
	require.NoError(t, err)
	var names []string
	for _, r := range roles {
		names = append(names, r.Name)
	}
	assert.Contains(t, names, "Admin")
	assert.Contains(t, names, "Mod")
	assert.Contains(t, names, "Member")
	assert.NotContains(t, names, "Old")
}

func TestRestoreBadColor(t *testing.T) {
	fake := platformtest.New()
	target := fake.AddGuild(platform.Guild{Name: "t"})
	snap := &Snapshot{Name: "t", Roles: []Role{{Name: "ok", Color: "#000000"}, {Name: "broken", Color: "blue"}}}

	result, err := noSleep(NewExecutor(fake, 0, nil)).Restore(context.Background(), target.ID, 0, snap)
	require.NoError(t, err)
	assert.Equal(t, Counts{Succeeded: 1, Failed: 1}, result.Counts(StepCreateRole))
	assert.Len(t, fake.Mutations("CreateRole"), 1)
}

func TestRestoreCancelled(t *testing.T) {
	fake := platformtest.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	snap, err := Produce(ctx, fake, sourceGuild(t, fake))
	require.NoError(t, err)
	target := fake.AddGuild(platform.Guild{Name: "t"})

	executor := NewExecutor(fake, time.Second, nil)
	executor.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}
	result, err := executor.Restore(ctx, target.ID, 0, snap)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Counts{Succeeded: 1}, result.Counts(StepCreateRole))
	assert.Len(t, fake.Mutations("CreateRole"), 1)
	assert.Empty(t, fake.Mutations("UpdateGuild"))
}
