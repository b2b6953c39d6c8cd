// Package platform is the bot's view of Discord: the object models the
// commands work with, the Client they call, and the disgo-backed
// implementation used in production.
package platform

import (
	"errors"
	"sort"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/net/context"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("missing access")
)

// Client is every call the commands make against Discord.
type Client interface {
	Guild(ctx context.Context, guildID snowflake.ID) (*Guild, error)
	Roles(ctx context.Context, guildID snowflake.ID) ([]Role, error)
	Channels(ctx context.Context, guildID snowflake.ID) ([]Channel, error)
	Channel(ctx context.Context, channelID snowflake.ID) (*Channel, error)
	Member(ctx context.Context, guildID, userID snowflake.ID) (*Member, error)
	Members(ctx context.Context, guildID snowflake.ID) ([]Member, error)
	SelfMember(ctx context.Context, guildID snowflake.ID) (*Member, error)
	Invites(ctx context.Context, guildID snowflake.ID) ([]Invite, error)

	CreateRole(ctx context.Context, guildID snowflake.ID, create RoleCreate) (*Role, error)
	DeleteRole(ctx context.Context, guildID, roleID snowflake.ID) error
	CreateChannel(ctx context.Context, guildID snowflake.ID, create ChannelCreate) (*Channel, error)
	DeleteChannel(ctx context.Context, channelID snowflake.ID) error
	SetSlowmode(ctx context.Context, channelID snowflake.ID, seconds int) error
	UpdateGuild(ctx context.Context, guildID snowflake.ID, update GuildUpdate) error

	AddMemberRole(ctx context.Context, guildID, userID, roleID snowflake.ID, reason string) error
	RemoveMemberRole(ctx context.Context, guildID, userID, roleID snowflake.ID, reason string) error
	Kick(ctx context.Context, guildID, userID snowflake.ID, reason string) error
	Ban(ctx context.Context, guildID, userID snowflake.ID, reason string) error
	// Timeout disables communication until the given time; nil lifts it.
	Timeout(ctx context.Context, guildID, userID snowflake.ID, until *time.Time, reason string) error
	SetNickname(ctx context.Context, guildID, userID snowflake.ID, nick string) error

	SendMessage(ctx context.Context, channelID snowflake.ID, create MessageCreate) (*Message, error)
	EditMessage(ctx context.Context, channelID, messageID snowflake.ID, update MessageCreate) (*Message, error)
	DeleteMessage(ctx context.Context, channelID, messageID snowflake.ID) error
	Messages(ctx context.Context, channelID snowflake.ID, query MessageQuery) ([]Message, error)
	PurgeMessages(ctx context.Context, channelID snowflake.ID, limit int) (int, error)
	AddReaction(ctx context.Context, channelID, messageID snowflake.ID, emoji string) error
	Reactors(ctx context.Context, channelID, messageID snowflake.ID, emoji string) ([]User, error)
	SendDirect(ctx context.Context, userID snowflake.ID, create MessageCreate) (*Message, error)

	Stats(ctx context.Context) Stats
}

// MaxMessagePage is the most messages one history request returns and one
// bulk delete removes.
const MaxMessagePage = 100

type MessageReader interface {
	Messages(ctx context.Context, channelID snowflake.ID, query MessageQuery) ([]Message, error)
}

// RecentMessages reads up to limit messages, newest first, paging back
// through the history MaxMessagePage at a time.
func RecentMessages(ctx context.Context, r MessageReader, channelID snowflake.ID, limit int) ([]Message, error) {
	var (
		out    []Message
		before snowflake.ID
	)
	for len(out) < limit {
		want := min(limit-len(out), MaxMessagePage)
		page, err := r.Messages(ctx, channelID, MessageQuery{Before: before, Limit: want})
		if err != nil {
			return out, err
		}
		out = append(out, page...)
		if len(page) < want {
			break
		}
		before = page[len(page)-1].ID
	}
	return out, nil
}

// Rank is a member's position in the guild role hierarchy.
type Rank struct {
	Position int
	RoleID   snowflake.ID
}

// Above reports whether r strictly outranks other. At equal positions the
// older (lower ID) role wins.
func (r Rank) Above(other Rank) bool {
	if r.Position != other.Position {
		return r.Position > other.Position
	}
	return r.RoleID < other.RoleID
}

// TopRole returns the highest role the member holds, falling back to the
// @everyone role.
func TopRole(guildID snowflake.ID, member Member, roles []Role) Role {
	top := Role{ID: guildID, Name: "@everyone"}
	found := false
	for _, role := range roles {
		if role.IsDefault(guildID) {
			if !found {
				top = role
			}
			continue
		}
		if !member.HasRole(role.ID) {
			continue
		}
		if !found || RankOf(role).Above(RankOf(top)) {
			top = role
			found = true
		}
	}
	return top
}

func RankOf(role Role) Rank {
	return Rank{Position: role.Position, RoleID: role.ID}
}

// MemberRank is the rank of the member's top role.
func MemberRank(guildID snowflake.ID, member Member, roles []Role) Rank {
	return RankOf(TopRole(guildID, member, roles))
}

// EffectivePermissions unions the @everyone bitmask with every role the
// member holds. Guild owners hold everything.
func EffectivePermissions(guild Guild, member Member, roles []Role) Permissions {
	if member.ID == guild.OwnerID {
		return PermissionsAll
	}
	var perms Permissions
	for _, role := range roles {
		if role.IsDefault(guild.ID) || member.HasRole(role.ID) {
			perms |= role.Permissions
		}
	}
	if perms&PermissionAdministrator != 0 {
		return PermissionsAll
	}
	return perms
}

// SortRoles orders roles top to bottom.
func SortRoles(roles []Role) {
	sort.SliceStable(roles, func(i, j int) bool {
		return RankOf(roles[i]).Above(RankOf(roles[j]))
	})
}

// SortChannels orders channels by position, oldest first on ties.
func SortChannels(channels []Channel) {
	sort.SliceStable(channels, func(i, j int) bool {
		if channels[i].Position != channels[j].Position {
			return channels[i].Position < channels[j].Position
		}
		return channels[i].ID < channels[j].ID
	})
}
