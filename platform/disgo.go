package platform

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/json"
	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/net/context"
)

const (
	bulkDeleteWindow = 14 * 24 * time.Hour
	membersPageSize  = 1000
)

// Discord implements Client over a disgo bot client.
type Discord struct {
	client bot.Client
	stats  *Counters
}

func NewDiscord(client bot.Client, stats *Counters) *Discord {
	if stats == nil {
		stats = &Counters{}
	}
	return &Discord{client: client, stats: stats}
}

func (d *Discord) rest() rest.Rest {
	return d.client.Rest()
}

func opts(ctx context.Context, reason string) []rest.RequestOpt {
	o := []rest.RequestOpt{rest.WithCtx(ctx)}
	if reason != "" {
		o = append(o, rest.WithReason(reason))
	}
	return o
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	var restErr *rest.Error
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, restErr.Message)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrForbidden, restErr.Message)
		}
	}
	return err
}

func (d *Discord) Guild(ctx context.Context, guildID snowflake.ID) (*Guild, error) {
	g, err := d.rest().GetGuild(guildID, true, opts(ctx, "")...)
	if err != nil {
		return nil, wrap(err)
	}
	guild := &Guild{
		ID:                       g.ID,
		Name:                     g.Name,
		OwnerID:                  g.OwnerID,
		MemberCount:              g.ApproximateMemberCount,
		PremiumTier:              int(g.PremiumTier),
		PremiumSubscriptionCount: g.PremiumSubscriptionCount,
	}
	if g.Description != nil {
		guild.Description = *g.Description
	}
	if url := g.IconURL(); url != nil {
		guild.IconURL = *url
	}
	for _, e := range g.Emojis {
		guild.Emojis = append(guild.Emojis, Emoji{ID: e.ID, Name: e.Name, Animated: e.Animated})
	}
	return guild, nil
}

func roleFrom(r discord.Role) Role {
	return Role{
		ID:          r.ID,
		Name:        r.Name,
		Color:       r.Color,
		Position:    r.Position,
		Permissions: Permissions(r.Permissions),
		Hoist:       r.Hoist,
		Managed:     r.Managed,
		Mentionable: r.Mentionable,
	}
}

func (d *Discord) Roles(ctx context.Context, guildID snowflake.ID) ([]Role, error) {
	rs, err := d.rest().GetRoles(guildID, opts(ctx, "")...)
	if err != nil {
		return nil, wrap(err)
	}
	roles := make([]Role, 0, len(rs))
	for _, r := range rs {
		roles = append(roles, roleFrom(r))
	}
	SortRoles(roles)
	return roles, nil
}

func channelFrom(ch discord.GuildChannel) Channel {
	c := Channel{
		ID:       ch.ID(),
		GuildID:  ch.GuildID(),
		Name:     ch.Name(),
		Position: ch.Position(),
		Kind:     ChannelKindOther,
	}
	if parent := ch.ParentID(); parent != nil {
		c.ParentID = *parent
	}
	switch t := ch.(type) {
	case discord.GuildTextChannel:
		c.Kind = ChannelKindText
		c.NSFW = t.NSFW()
		c.Slowmode = t.RateLimitPerUser()
		if topic := t.Topic(); topic != nil {
			c.Topic = *topic
		}
	case discord.GuildNewsChannel:
		c.Kind = ChannelKindNews
		c.NSFW = t.NSFW()
		c.Slowmode = t.RateLimitPerUser()
		if topic := t.Topic(); topic != nil {
			c.Topic = *topic
		}
	case discord.GuildVoiceChannel:
		c.Kind = ChannelKindVoice
	case discord.GuildStageVoiceChannel:
		c.Kind = ChannelKindStage
	case discord.GuildCategoryChannel:
		c.Kind = ChannelKindCategory
	case discord.GuildForumChannel:
		c.Kind = ChannelKindForum
	}
	return c
}

func (d *Discord) Channels(ctx context.Context, guildID snowflake.ID) ([]Channel, error) {
	chs, err := d.rest().GetGuildChannels(guildID, opts(ctx, "")...)
	if err != nil {
		return nil, wrap(err)
	}
	channels := make([]Channel, 0, len(chs))
	for _, ch := range chs {
		channels = append(channels, channelFrom(ch))
	}
	SortChannels(channels)
	return channels, nil
}

func (d *Discord) Channel(ctx context.Context, channelID snowflake.ID) (*Channel, error) {
	ch, err := d.rest().GetChannel(channelID, opts(ctx, "")...)
	if err != nil {
		return nil, wrap(err)
	}
	gc, ok := ch.(discord.GuildChannel)
	if !ok {
		return nil, fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}
	c := channelFrom(gc)
	return &c, nil
}

func memberFrom(m discord.Member) Member {
	member := Member{
		User:          userFrom(m.User),
		GuildID:       m.GuildID,
		RoleIDs:       m.RoleIDs,
		JoinedAt:      m.JoinedAt,
		TimedOutUntil: m.CommunicationDisabledUntil,
	}
	if m.Nick != nil {
		member.Nick = *m.Nick
	}
	return member
}

func userFrom(u discord.User) User {
	return User{
		ID:        u.ID,
		Username:  u.Username,
		Bot:       u.Bot,
		AvatarURL: u.EffectiveAvatarURL(),
	}
}

func (d *Discord) Member(ctx context.Context, guildID, userID snowflake.ID) (*Member, error) {
	m, err := d.rest().GetMember(guildID, userID, opts(ctx, "")...)
	if err != nil {
		return nil, wrap(err)
	}
	member := memberFrom(*m)
	member.GuildID = guildID
	return &member, nil
}

func (d *Discord) Members(ctx context.Context, guildID snowflake.ID) ([]Member, error) {
	var (
		members []Member
		after   snowflake.ID
	)
	for {
		page, err := d.rest().GetMembers(guildID, membersPageSize, after, opts(ctx, "")...)
		if err != nil {
			return nil, wrap(err)
		}
		for _, m := range page {
			member := memberFrom(m)
			member.GuildID = guildID
			members = append(members, member)
			after = m.User.ID
		}
		if len(page) < membersPageSize {
			return members, nil
		}
	}
}

func (d *Discord) SelfMember(ctx context.Context, guildID snowflake.ID) (*Member, error) {
	return d.Member(ctx, guildID, d.client.ID())
}

func (d *Discord) Invites(ctx context.Context, guildID snowflake.ID) ([]Invite, error) {
	// GetGuildInvites decodes into discord.Invite, which drops the uses count
	var is []discord.ExtendedInvite
	err := d.rest().Do(rest.GetGuildInvites.Compile(nil, guildID), nil, &is, opts(ctx, "")...)
	if err != nil {
		return nil, wrap(err)
	}
	invites := make([]Invite, 0, len(is))
	for _, i := range is {
		invites = append(invites, inviteFrom(i))
	}
	return invites, nil
}

func inviteFrom(i discord.ExtendedInvite) Invite {
	invite := Invite{Code: i.Code, Uses: i.Uses}
	if i.Inviter != nil {
		invite.InviterID = i.Inviter.ID
	}
	return invite
}

func (d *Discord) CreateRole(ctx context.Context, guildID snowflake.ID, create RoleCreate) (*Role, error) {
	perms := discord.Permissions(create.Permissions)
	r, err := d.rest().CreateRole(guildID, discord.RoleCreate{
		Name:        create.Name,
		Color:       create.Color,
		Permissions: &perms,
	}, opts(ctx, "")...)
	if err != nil {
		return nil, wrap(err)
	}
	role := roleFrom(*r)
	return &role, nil
}

func (d *Discord) DeleteRole(ctx context.Context, guildID, roleID snowflake.ID) error {
	return wrap(d.rest().DeleteRole(guildID, roleID, opts(ctx, "")...))
}

func (d *Discord) CreateChannel(ctx context.Context, guildID snowflake.ID, create ChannelCreate) (*Channel, error) {
	var body discord.GuildChannelCreate
	switch create.Kind {
	case ChannelKindText:
		body = discord.GuildTextChannelCreate{Name: create.Name, ParentID: create.ParentID}
	case ChannelKindVoice:
		body = discord.GuildVoiceChannelCreate{Name: create.Name, ParentID: create.ParentID}
	case ChannelKindCategory:
		body = discord.GuildCategoryChannelCreate{Name: create.Name}
	default:
		return nil, fmt.Errorf("cannot create %s channel %q", create.Kind, create.Name)
	}
	ch, err := d.rest().CreateGuildChannel(guildID, body, opts(ctx, "")...)
	if err != nil {
		return nil, wrap(err)
	}
	c := channelFrom(ch)
	return &c, nil
}

func (d *Discord) DeleteChannel(ctx context.Context, channelID snowflake.ID) error {
	return wrap(d.rest().DeleteChannel(channelID, opts(ctx, "")...))
}

func (d *Discord) SetSlowmode(ctx context.Context, channelID snowflake.ID, seconds int) error {
	_, err := d.rest().UpdateChannel(channelID, discord.GuildTextChannelUpdate{
		RateLimitPerUser: &seconds,
	}, opts(ctx, "")...)
	return wrap(err)
}

func (d *Discord) UpdateGuild(ctx context.Context, guildID snowflake.ID, update GuildUpdate) error {
	body := discord.GuildUpdate{
		Name:        update.Name,
		Description: update.Description,
	}
	if update.Icon != nil {
		icon := discord.NewIconRaw(iconType(update.Icon), update.Icon)
		body.Icon = json.NewNullablePtr(*icon)
	}
	_, err := d.rest().UpdateGuild(guildID, body, opts(ctx, "")...)
	return wrap(err)
}

func iconType(data []byte) discord.IconType {
	switch http.DetectContentType(data) {
	case "image/png":
		return discord.IconTypePNG
	case "image/gif":
		return discord.IconTypeGIF
	case "image/webp":
		return discord.IconTypeWEBP
	default:
		return discord.IconTypeJPEG
	}
}

func (d *Discord) AddMemberRole(ctx context.Context, guildID, userID, roleID snowflake.ID, reason string) error {
	return wrap(d.rest().AddMemberRole(guildID, userID, roleID, opts(ctx, reason)...))
}

func (d *Discord) RemoveMemberRole(ctx context.Context, guildID, userID, roleID snowflake.ID, reason string) error {
	return wrap(d.rest().RemoveMemberRole(guildID, userID, roleID, opts(ctx, reason)...))
}

func (d *Discord) Kick(ctx context.Context, guildID, userID snowflake.ID, reason string) error {
	return wrap(d.rest().RemoveMember(guildID, userID, opts(ctx, reason)...))
}

func (d *Discord) Ban(ctx context.Context, guildID, userID snowflake.ID, reason string) error {
	return wrap(d.rest().AddBan(guildID, userID, 0, opts(ctx, reason)...))
}

func (d *Discord) Timeout(ctx context.Context, guildID, userID snowflake.ID, until *time.Time, reason string) error {
	update := discord.MemberUpdate{CommunicationDisabledUntil: json.NullPtr[time.Time]()}
	if until != nil {
		update.CommunicationDisabledUntil = json.NewNullablePtr(*until)
	}
	_, err := d.rest().UpdateMember(guildID, userID, update, opts(ctx, reason)...)
	return wrap(err)
}

func (d *Discord) SetNickname(ctx context.Context, guildID, userID snowflake.ID, nick string) error {
	_, err := d.rest().UpdateMember(guildID, userID, discord.MemberUpdate{Nick: &nick}, opts(ctx, "")...)
	return wrap(err)
}

func boolPtr(b bool) *bool {
	return &b
}

func embedsTo(embeds []Embed) []discord.Embed {
	out := make([]discord.Embed, 0, len(embeds))
	for _, e := range embeds {
		embed := discord.Embed{
			Title:       e.Title,
			Description: e.Description,
			Color:       e.Color,
		}
		for _, f := range e.Fields {
			embed.Fields = append(embed.Fields, discord.EmbedField{Name: f.Name, Value: f.Value, Inline: boolPtr(f.Inline)})
		}
		if e.Thumbnail != "" {
			embed.Thumbnail = &discord.EmbedResource{URL: e.Thumbnail}
		}
		if e.Image != "" {
			embed.Image = &discord.EmbedResource{URL: e.Image}
		}
		if e.Footer != "" {
			embed.Footer = &discord.EmbedFooter{Text: e.Footer}
		}
		out = append(out, embed)
	}
	return out
}

// MessageCreateTo converts a neutral message into the disgo request body.
func MessageCreateTo(create MessageCreate) discord.MessageCreate {
	msg := discord.MessageCreate{
		Content: create.Content,
		Embeds:  embedsTo(create.Embeds),
	}
	for _, f := range create.Files {
		msg.Files = append(msg.Files, discord.NewFile(f.Name, "", f.Reader))
	}
	if create.Ephemeral {
		msg.Flags = discord.MessageFlagEphemeral
	}
	return msg
}

// MessageUpdateTo converts a neutral message into an edit body.
func MessageUpdateTo(update MessageCreate) discord.MessageUpdate {
	embeds := embedsTo(update.Embeds)
	content := update.Content
	return discord.MessageUpdate{Content: &content, Embeds: &embeds}
}

// MessageFrom converts a disgo message.
func MessageFrom(m discord.Message) Message {
	msg := Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Author:    userFrom(m.Author),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
	if m.GuildID != nil {
		msg.GuildID = *m.GuildID
	}
	return msg
}

func (d *Discord) SendMessage(ctx context.Context, channelID snowflake.ID, create MessageCreate) (*Message, error) {
	create.Ephemeral = false
	m, err := d.rest().CreateMessage(channelID, MessageCreateTo(create), opts(ctx, "")...)
	if err != nil {
		return nil, wrap(err)
	}
	msg := MessageFrom(*m)
	return &msg, nil
}

func (d *Discord) EditMessage(ctx context.Context, channelID, messageID snowflake.ID, update MessageCreate) (*Message, error) {
	m, err := d.rest().UpdateMessage(channelID, messageID, MessageUpdateTo(update), opts(ctx, "")...)
	if err != nil {
		return nil, wrap(err)
	}
	msg := MessageFrom(*m)
	return &msg, nil
}

func (d *Discord) DeleteMessage(ctx context.Context, channelID, messageID snowflake.ID) error {
	return wrap(d.rest().DeleteMessage(channelID, messageID, opts(ctx, "")...))
}

func (d *Discord) Messages(ctx context.Context, channelID snowflake.ID, query MessageQuery) ([]Message, error) {
	limit := query.Limit
	if limit <= 0 || limit > MaxMessagePage {
		limit = MaxMessagePage
	}
	ms, err := d.rest().GetMessages(channelID, 0, query.Before, query.After, limit, opts(ctx, "")...)
	if err != nil {
		return nil, wrap(err)
	}
	messages := make([]Message, 0, len(ms))
	for _, m := range ms {
		messages = append(messages, MessageFrom(m))
	}
	return messages, nil
}

func (d *Discord) PurgeMessages(ctx context.Context, channelID snowflake.ID, limit int) (int, error) {
	messages, err := RecentMessages(ctx, d, channelID, limit)
	if err != nil {
		return 0, err
	}
	var recent, old []snowflake.ID
	cutoff := time.Now().Add(-bulkDeleteWindow)
	for _, m := range messages {
		if m.ID.Time().After(cutoff) {
			recent = append(recent, m.ID)
		} else {
			old = append(old, m.ID)
		}
	}

	deleted := 0
	for len(recent) > 0 {
		batch := recent[:min(len(recent), MaxMessagePage)]
		recent = recent[len(batch):]
		// bulk delete wants at least two messages
		if len(batch) == 1 {
			old = append(old, batch...)
			break
		}
		if err = d.rest().BulkDeleteMessages(channelID, batch, opts(ctx, "")...); err != nil {
			return deleted, wrap(err)
		}
		deleted += len(batch)
	}
	for _, id := range old {
		if err = d.DeleteMessage(ctx, channelID, id); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func (d *Discord) AddReaction(ctx context.Context, channelID, messageID snowflake.ID, emoji string) error {
	return wrap(d.rest().AddReaction(channelID, messageID, emoji, opts(ctx, "")...))
}

func (d *Discord) Reactors(ctx context.Context, channelID, messageID snowflake.ID, emoji string) ([]User, error) {
	var (
		users []User
		after int
	)
	for {
		page, err := d.rest().GetReactions(channelID, messageID, emoji, discord.MessageReactionTypeNormal, after, 100, opts(ctx, "")...)
		if err != nil {
			return nil, wrap(err)
		}
		for _, u := range page {
			users = append(users, userFrom(u))
			after = int(u.ID)
		}
		if len(page) < 100 {
			return users, nil
		}
	}
}

func (d *Discord) SendDirect(ctx context.Context, userID snowflake.ID, create MessageCreate) (*Message, error) {
	dm, err := d.rest().CreateDMChannel(userID, opts(ctx, "")...)
	if err != nil {
		return nil, wrap(err)
	}
	return d.SendMessage(ctx, dm.ID(), create)
}

func (d *Discord) Stats(_ context.Context) Stats {
	guilds, users := d.stats.Snapshot()
	return Stats{
		Guilds:         guilds,
		Users:          users,
		Latency:        d.client.Gateway().Latency(),
		LibraryVersion: "disgo " + disgo.Version,
	}
}
