package platform

import (
	"fmt"
	"io"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

type ChannelKind string

const (
	ChannelKindText     ChannelKind = "text"
	ChannelKindVoice    ChannelKind = "voice"
	ChannelKindCategory ChannelKind = "category"
	ChannelKindNews     ChannelKind = "news"
	ChannelKindStage    ChannelKind = "stage_voice"
	ChannelKindForum    ChannelKind = "forum"
	ChannelKindOther    ChannelKind = "other"
)

type Guild struct {
	ID                       snowflake.ID
	Name                     string
	Description              string
	IconURL                  string
	OwnerID                  snowflake.ID
	MemberCount              int
	PremiumTier              int
	PremiumSubscriptionCount int
	Emojis                   []Emoji
}

func (g Guild) CreatedAt() time.Time {
	return g.ID.Time()
}

type Emoji struct {
	ID       snowflake.ID
	Name     string
	Animated bool
}

func (e Emoji) String() string {
	if e.Animated {
		return fmt.Sprintf("<a:%s:%s>", e.Name, e.ID)
	}
	return fmt.Sprintf("<:%s:%s>", e.Name, e.ID)
}

type Role struct {
	ID          snowflake.ID
	Name        string
	Color       int
	Position    int
	Permissions Permissions
	Hoist       bool
	Managed     bool
	Mentionable bool
}

func (r Role) Mention() string {
	return "<@&" + r.ID.String() + ">"
}

// ColorHex renders the role color the way snapshots store it.
func (r Role) ColorHex() string {
	return fmt.Sprintf("#%06x", r.Color)
}

// IsDefault reports whether r is the implicit @everyone role, which shares
// its ID with the guild.
func (r Role) IsDefault(guildID snowflake.ID) bool {
	return r.ID == guildID
}

type Channel struct {
	ID       snowflake.ID
	GuildID  snowflake.ID
	Name     string
	Kind     ChannelKind
	Position int
	ParentID snowflake.ID
	NSFW     bool
	Slowmode int
	Topic    string
}

func (c Channel) Mention() string {
	return "<#" + c.ID.String() + ">"
}

func (c Channel) CreatedAt() time.Time {
	return c.ID.Time()
}

type User struct {
	ID        snowflake.ID
	Username  string
	Bot       bool
	AvatarURL string
}

func (u User) Mention() string {
	return "<@" + u.ID.String() + ">"
}

func (u User) CreatedAt() time.Time {
	return u.ID.Time()
}

type Member struct {
	User
	GuildID       snowflake.ID
	Nick          string
	RoleIDs       []snowflake.ID
	JoinedAt      time.Time
	TimedOutUntil *time.Time
}

func (m Member) HasRole(roleID snowflake.ID) bool {
	for _, id := range m.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// TimedOut reports whether the member is currently communication-disabled.
func (m Member) TimedOut(now time.Time) bool {
	return m.TimedOutUntil != nil && m.TimedOutUntil.After(now)
}

func (m Member) EffectiveName() string {
	if m.Nick != "" {
		return m.Nick
	}
	return m.Username
}

type Attachment struct {
	ID       snowflake.ID
	Filename string
	URL      string
	Size     int
}

type Message struct {
	ID        snowflake.ID
	ChannelID snowflake.ID
	GuildID   snowflake.ID
	Author    User
	Content   string
	CreatedAt time.Time
}

func (m Message) JumpURL() string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", m.GuildID, m.ChannelID, m.ID)
}

type Invite struct {
	Code      string
	InviterID snowflake.ID
	Uses      int
}

type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
	Thumbnail   string
	Image       string
	Footer      string
}

type File struct {
	Name   string
	Reader io.Reader
}

type MessageCreate struct {
	Content   string
	Embeds    []Embed
	Files     []File
	Ephemeral bool
}

type RoleCreate struct {
	Name        string
	Color       int
	Permissions Permissions
}

type ChannelCreate struct {
	Name     string
	Kind     ChannelKind
	ParentID snowflake.ID
}

type GuildUpdate struct {
	Name        *string
	Description *string
	Icon        []byte
}

type MessageQuery struct {
	Before snowflake.ID
	After  snowflake.ID
	Limit  int
}

// Stats is a process-wide view of the connection.
type Stats struct {
	Guilds         int
	Users          int
	Latency        time.Duration
	LibraryVersion string
}
