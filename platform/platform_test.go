package platform

import (
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

const guildID = snowflake.ID(100)

func testRoles() []Role {
	return []Role{
		{ID: guildID, Name: "@everyone", Position: 0, Permissions: PermissionSendMessages},
		{ID: 10, Name: "Admin", Position: 5, Permissions: PermissionAdministrator},
		{ID: 11, Name: "Mod", Position: 3, Permissions: PermissionKickMembers | PermissionManageMessages},
		{ID: 12, Name: "Helper", Position: 3, Permissions: PermissionManageNicknames},
		{ID: 13, Name: "Member", Position: 1},
	}
}

func TestRank(t *testing.T) {
	roles := testRoles()

	t.Run("highest position wins", func(t *testing.T) {
		m := Member{User: User{ID: 1}, RoleIDs: []snowflake.ID{13, 11}}
		assert.Equal(t, "Mod", TopRole(guildID, m, roles).Name)
	})

	t.Run("lower id wins ties", func(t *testing.T) {
		m := Member{User: User{ID: 1}, RoleIDs: []snowflake.ID{12, 11}}
		assert.Equal(t, snowflake.ID(11), TopRole(guildID, m, roles).ID)
		assert.True(t, RankOf(roles[2]).Above(RankOf(roles[3])))
		assert.False(t, RankOf(roles[3]).Above(RankOf(roles[2])))
	})

	t.Run("no roles ranks as everyone", func(t *testing.T) {
		m := Member{User: User{ID: 1}}
		assert.Equal(t, Rank{Position: 0, RoleID: guildID}, MemberRank(guildID, m, roles))
	})

	t.Run("equal rank is not above", func(t *testing.T) {
		r := Rank{Position: 2, RoleID: 5}
		assert.False(t, r.Above(r))
	})
}

func TestEffectivePermissions(t *testing.T) {
	roles := testRoles()
	guild := Guild{ID: guildID, OwnerID: 99}

	t.Run("union includes everyone", func(t *testing.T) {
		m := Member{User: User{ID: 1}, RoleIDs: []snowflake.ID{11}}
		perms := EffectivePermissions(guild, m, roles)
		assert.True(t, perms.Has(PermissionKickMembers|PermissionSendMessages))
		assert.False(t, perms.Has(PermissionBanMembers))
	})

	t.Run("administrator holds everything", func(t *testing.T) {
		m := Member{User: User{ID: 1}, RoleIDs: []snowflake.ID{10}}
		assert.True(t, EffectivePermissions(guild, m, roles).Has(PermissionBanMembers|PermissionManageGuild))
	})

	t.Run("owner holds everything", func(t *testing.T) {
		m := Member{User: User{ID: 99}}
		assert.Equal(t, PermissionsAll, EffectivePermissions(guild, m, roles))
	})
}

func TestPermissionTitles(t *testing.T) {
	p := PermissionManageMessages | PermissionKickMembers
	assert.Equal(t, []string{"Kick Members", "Manage Messages"}, PermissionTitles(p))
	assert.Empty(t, PermissionTitles(PermissionsNone))

	t.Run("bits without a display name are left out", func(t *testing.T) {
		p := PermissionManageGuild | discord.PermissionCreateEvents | Permissions(1)<<47
		assert.Equal(t, []string{"Manage Server"}, PermissionTitles(p))
	})

	t.Run("every permission", func(t *testing.T) {
		titles := PermissionTitles(PermissionsAll)
		assert.Equal(t, "Create Instant Invite", titles[0])
		assert.Contains(t, titles, "Moderate Members")
		assert.NotContains(t, titles, "")
	})
}

func TestSortRoles(t *testing.T) {
	roles := testRoles()
	SortRoles(roles)
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"Admin", "Mod", "Helper", "Member", "@everyone"}, names)
}

func TestMemberHelpers(t *testing.T) {
	now := time.Now()
	later := now.Add(time.Minute)
	m := Member{User: User{ID: 1, Username: "alice"}, TimedOutUntil: &later}
	assert.True(t, m.TimedOut(now))
	assert.False(t, m.TimedOut(later.Add(time.Second)))
	assert.Equal(t, "alice", m.EffectiveName())
	m.Nick = "al"
	assert.Equal(t, "al", m.EffectiveName())
	assert.Equal(t, "#ff0000", Role{Color: 0xff0000}.ColorHex())
}

type pagedHistory struct {
	ids     []snowflake.ID // newest first
	queries []MessageQuery
}

func (h *pagedHistory) Messages(_ context.Context, _ snowflake.ID, query MessageQuery) ([]Message, error) {
	h.queries = append(h.queries, query)
	var out []Message
	for _, id := range h.ids {
		if (query.Before == 0 || id < query.Before) && len(out) < min(query.Limit, MaxMessagePage) {
			out = append(out, Message{ID: id})
		}
	}
	return out, nil
}

func TestRecentMessages(t *testing.T) {
	history := &pagedHistory{}
	for id := snowflake.ID(250); id > 0; id-- {
		history.ids = append(history.ids, id)
	}

	messages, err := RecentMessages(context.Background(), history, 1, 101)
	require.NoError(t, err)
	require.Len(t, messages, 101)
	assert.Equal(t, snowflake.ID(250), messages[0].ID)
	assert.Equal(t, snowflake.ID(150), messages[100].ID)
	assert.Equal(t, []MessageQuery{{Limit: 100}, {Before: 151, Limit: 1}}, history.queries)

	history.queries = nil
	messages, err = RecentMessages(context.Background(), history, 1, 1000)
	require.NoError(t, err)
	assert.Len(t, messages, 250)
	assert.Len(t, history.queries, 3)
}
