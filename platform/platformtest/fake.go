// Package platformtest provides an in-memory platform.Client for tests.
package platformtest

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/net/context"

	"github.com/fuad-daoud/warden/platform"
)

// Call is one mutating request the fake received.
type Call struct {
	Op     string
	Target string
	Reason string
}

type Sent struct {
	ChannelID snowflake.ID
	UserID    snowflake.ID
	Message   platform.MessageCreate
	Files     map[string][]byte
}

// Fake is a single-process stand-in for Discord. The zero value is not
// usable; construct with New.
type Fake struct {
	mu sync.Mutex

	nextID   snowflake.ID
	BotID    snowflake.ID
	guilds   map[snowflake.ID]*platform.Guild
	roles    map[snowflake.ID][]platform.Role
	channels map[snowflake.ID][]platform.Channel
	members  map[snowflake.ID]map[snowflake.ID]*platform.Member
	invites  map[snowflake.ID][]platform.Invite
	messages map[snowflake.ID][]platform.Message
	reacts   map[snowflake.ID]map[string][]platform.User

	// failures maps "op" or "op:target" to the error returned.
	failures map[string]error

	Calls []Call
	Sent  []Sent
}

func New() *Fake {
	return &Fake{
		nextID:   1000,
		BotID:    1,
		guilds:   map[snowflake.ID]*platform.Guild{},
		roles:    map[snowflake.ID][]platform.Role{},
		channels: map[snowflake.ID][]platform.Channel{},
		members:  map[snowflake.ID]map[snowflake.ID]*platform.Member{},
		invites:  map[snowflake.ID][]platform.Invite{},
		messages: map[snowflake.ID][]platform.Message{},
		reacts:   map[snowflake.ID]map[string][]platform.User{},
		failures: map[string]error{},
	}
}

func (f *Fake) id() snowflake.ID {
	f.nextID++
	return f.nextID
}

// AddGuild registers a guild with its @everyone role and the bot as a member.
func (f *Fake) AddGuild(guild platform.Guild) *platform.Guild {
	f.mu.Lock()
	defer f.mu.Unlock()
	if guild.ID == 0 {
		guild.ID = f.id()
	}
	g := guild
	f.guilds[g.ID] = &g
	f.roles[g.ID] = []platform.Role{{ID: g.ID, Name: "@everyone", Permissions: platform.PermissionSendMessages | platform.PermissionViewChannel}}
	f.members[g.ID] = map[snowflake.ID]*platform.Member{
		f.BotID: {User: platform.User{ID: f.BotID, Username: "warden", Bot: true}, GuildID: g.ID},
	}
	return &g
}

func (f *Fake) AddRole(guildID snowflake.ID, role platform.Role) platform.Role {
	f.mu.Lock()
	defer f.mu.Unlock()
	if role.ID == 0 {
		role.ID = f.id()
	}
	f.roles[guildID] = append(f.roles[guildID], role)
	return role
}

func (f *Fake) AddChannel(guildID snowflake.ID, channel platform.Channel) platform.Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	if channel.ID == 0 {
		channel.ID = f.id()
	}
	channel.GuildID = guildID
	if channel.Kind == "" {
		channel.Kind = platform.ChannelKindText
	}
	f.channels[guildID] = append(f.channels[guildID], channel)
	return channel
}

func (f *Fake) AddMember(guildID snowflake.ID, member platform.Member) *platform.Member {
	f.mu.Lock()
	defer f.mu.Unlock()
	if member.ID == 0 {
		member.ID = f.id()
	}
	member.GuildID = guildID
	m := member
	f.members[guildID][m.ID] = &m
	return &m
}

// GiveBotRole makes the bot hold roleID.
func (f *Fake) GiveBotRole(guildID, roleID snowflake.ID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bot := f.members[guildID][f.BotID]
	bot.RoleIDs = append(bot.RoleIDs, roleID)
}

func (f *Fake) AddInvite(guildID snowflake.ID, invite platform.Invite) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invites[guildID] = append(f.invites[guildID], invite)
}

func (f *Fake) AddMessage(channelID snowflake.ID, message platform.Message) platform.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if message.ID == 0 {
		message.ID = f.id()
	}
	message.ChannelID = channelID
	f.messages[channelID] = append(f.messages[channelID], message)
	return message
}

func (f *Fake) React(messageID snowflake.ID, emoji string, user platform.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reacts[messageID] == nil {
		f.reacts[messageID] = map[string][]platform.User{}
	}
	f.reacts[messageID][emoji] = append(f.reacts[messageID][emoji], user)
}

// Fail makes op fail with err. key is either an op name such as
// "DeleteRole" or "op:target" where target is an ID or a name.
func (f *Fake) Fail(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[key] = err
}

func (f *Fake) failure(op string, targets ...string) error {
	if err, ok := f.failures[op]; ok {
		return err
	}
	for _, t := range targets {
		if err, ok := f.failures[op+":"+t]; ok {
			return err
		}
	}
	return nil
}

func (f *Fake) record(op, target, reason string) {
	f.Calls = append(f.Calls, Call{Op: op, Target: target, Reason: reason})
}

// Mutations returns the recorded calls of the given ops, or all calls when
// none are given.
func (f *Fake) Mutations(ops ...string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(ops) == 0 {
		return append([]Call(nil), f.Calls...)
	}
	var out []Call
	for _, c := range f.Calls {
		for _, op := range ops {
			if c.Op == op {
				out = append(out, c)
			}
		}
	}
	return out
}

func (f *Fake) SentMessages() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Sent(nil), f.Sent...)
}

func (f *Fake) Guild(_ context.Context, guildID snowflake.ID) (*platform.Guild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.guilds[guildID]
	if !ok {
		return nil, fmt.Errorf("guild %s: %w", guildID, platform.ErrNotFound)
	}
	out := *g
	out.MemberCount = len(f.members[guildID])
	return &out, nil
}

func (f *Fake) Roles(_ context.Context, guildID snowflake.ID) ([]platform.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("Roles"); err != nil {
		return nil, err
	}
	roles := append([]platform.Role(nil), f.roles[guildID]...)
	platform.SortRoles(roles)
	return roles, nil
}

func (f *Fake) Channels(_ context.Context, guildID snowflake.ID) ([]platform.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("Channels"); err != nil {
		return nil, err
	}
	channels := append([]platform.Channel(nil), f.channels[guildID]...)
	platform.SortChannels(channels)
	return channels, nil
}

func (f *Fake) Channel(_ context.Context, channelID snowflake.ID) (*platform.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, channels := range f.channels {
		for _, c := range channels {
			if c.ID == channelID {
				out := c
				return &out, nil
			}
		}
	}
	return nil, fmt.Errorf("channel %s: %w", channelID, platform.ErrNotFound)
}

func (f *Fake) Member(_ context.Context, guildID, userID snowflake.ID) (*platform.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[guildID][userID]
	if !ok {
		return nil, fmt.Errorf("member %s: %w", userID, platform.ErrNotFound)
	}
	out := *m
	out.RoleIDs = append([]snowflake.ID(nil), m.RoleIDs...)
	return &out, nil
}

func (f *Fake) Members(_ context.Context, guildID snowflake.ID) ([]platform.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	members := make([]platform.Member, 0, len(f.members[guildID]))
	for _, m := range f.members[guildID] {
		members = append(members, *m)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members, nil
}

func (f *Fake) SelfMember(ctx context.Context, guildID snowflake.ID) (*platform.Member, error) {
	return f.Member(ctx, guildID, f.BotID)
}

func (f *Fake) Invites(_ context.Context, guildID snowflake.ID) ([]platform.Invite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.Invite(nil), f.invites[guildID]...), nil
}

func (f *Fake) CreateRole(_ context.Context, guildID snowflake.ID, create platform.RoleCreate) (*platform.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("CreateRole", create.Name); err != nil {
		return nil, err
	}
	f.record("CreateRole", create.Name, "")
	// new roles land directly above @everyone
	for i := range f.roles[guildID] {
		if !f.roles[guildID][i].IsDefault(guildID) {
			f.roles[guildID][i].Position++
		}
	}
	role := platform.Role{ID: f.id(), Name: create.Name, Color: create.Color, Permissions: create.Permissions, Position: 1}
	f.roles[guildID] = append(f.roles[guildID], role)
	return &role, nil
}

func (f *Fake) DeleteRole(_ context.Context, guildID, roleID snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := ""
	idx := -1
	for i, r := range f.roles[guildID] {
		if r.ID == roleID {
			idx, name = i, r.Name
		}
	}
	if err := f.failure("DeleteRole", roleID.String(), name); err != nil {
		return err
	}
	if idx < 0 {
		return fmt.Errorf("role %s: %w", roleID, platform.ErrNotFound)
	}
	f.record("DeleteRole", name, "")
	f.roles[guildID] = append(f.roles[guildID][:idx], f.roles[guildID][idx+1:]...)
	for _, m := range f.members[guildID] {
		m.RoleIDs = without(m.RoleIDs, roleID)
	}
	return nil
}

func without(ids []snowflake.ID, id snowflake.ID) []snowflake.ID {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func (f *Fake) CreateChannel(_ context.Context, guildID snowflake.ID, create platform.ChannelCreate) (*platform.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("CreateChannel", create.Name); err != nil {
		return nil, err
	}
	f.record("CreateChannel", create.Name, "")
	c := platform.Channel{
		ID:       f.id(),
		GuildID:  guildID,
		Name:     create.Name,
		Kind:     create.Kind,
		ParentID: create.ParentID,
		Position: len(f.channels[guildID]),
	}
	f.channels[guildID] = append(f.channels[guildID], c)
	return &c, nil
}

func (f *Fake) DeleteChannel(_ context.Context, channelID snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for guildID, channels := range f.channels {
		for i, c := range channels {
			if c.ID != channelID {
				continue
			}
			if err := f.failure("DeleteChannel", c.ID.String(), c.Name); err != nil {
				return err
			}
			f.record("DeleteChannel", c.Name, "")
			f.channels[guildID] = append(channels[:i], channels[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("channel %s: %w", channelID, platform.ErrNotFound)
}

func (f *Fake) SetSlowmode(_ context.Context, channelID snowflake.ID, seconds int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("SetSlowmode"); err != nil {
		return err
	}
	for _, channels := range f.channels {
		for i := range channels {
			if channels[i].ID == channelID {
				channels[i].Slowmode = seconds
				f.record("SetSlowmode", channelID.String(), "")
				return nil
			}
		}
	}
	return fmt.Errorf("channel %s: %w", channelID, platform.ErrNotFound)
}

func (f *Fake) UpdateGuild(_ context.Context, guildID snowflake.ID, update platform.GuildUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("UpdateGuild"); err != nil {
		return err
	}
	g, ok := f.guilds[guildID]
	if !ok {
		return fmt.Errorf("guild %s: %w", guildID, platform.ErrNotFound)
	}
	if update.Name != nil {
		g.Name = *update.Name
	}
	if update.Description != nil {
		g.Description = *update.Description
	}
	if update.Icon != nil {
		g.IconURL = fmt.Sprintf("icon:%d", len(update.Icon))
	}
	f.record("UpdateGuild", guildID.String(), "")
	return nil
}

func (f *Fake) member(guildID, userID snowflake.ID) (*platform.Member, error) {
	m, ok := f.members[guildID][userID]
	if !ok {
		return nil, fmt.Errorf("member %s: %w", userID, platform.ErrNotFound)
	}
	return m, nil
}

func (f *Fake) AddMemberRole(_ context.Context, guildID, userID, roleID snowflake.ID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("AddMemberRole"); err != nil {
		return err
	}
	m, err := f.member(guildID, userID)
	if err != nil {
		return err
	}
	if !m.HasRole(roleID) {
		m.RoleIDs = append(m.RoleIDs, roleID)
	}
	f.record("AddMemberRole", roleID.String(), reason)
	return nil
}

func (f *Fake) RemoveMemberRole(_ context.Context, guildID, userID, roleID snowflake.ID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.member(guildID, userID)
	if err != nil {
		return err
	}
	m.RoleIDs = without(m.RoleIDs, roleID)
	f.record("RemoveMemberRole", roleID.String(), reason)
	return nil
}

func (f *Fake) Kick(_ context.Context, guildID, userID snowflake.ID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("Kick"); err != nil {
		return err
	}
	if _, err := f.member(guildID, userID); err != nil {
		return err
	}
	delete(f.members[guildID], userID)
	f.record("Kick", userID.String(), reason)
	return nil
}

func (f *Fake) Ban(_ context.Context, guildID, userID snowflake.ID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("Ban"); err != nil {
		return err
	}
	delete(f.members[guildID], userID)
	f.record("Ban", userID.String(), reason)
	return nil
}

func (f *Fake) Timeout(_ context.Context, guildID, userID snowflake.ID, until *time.Time, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("Timeout"); err != nil {
		return err
	}
	m, err := f.member(guildID, userID)
	if err != nil {
		return err
	}
	m.TimedOutUntil = until
	f.record("Timeout", userID.String(), reason)
	return nil
}

func (f *Fake) SetNickname(_ context.Context, guildID, userID snowflake.ID, nick string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.member(guildID, userID)
	if err != nil {
		return err
	}
	m.Nick = nick
	f.record("SetNickname", userID.String(), "")
	return nil
}

func (f *Fake) send(channelID, userID snowflake.ID, create platform.MessageCreate) *platform.Message {
	files := map[string][]byte{}
	for _, file := range create.Files {
		data, _ := io.ReadAll(file.Reader)
		files[file.Name] = data
	}
	f.Sent = append(f.Sent, Sent{ChannelID: channelID, UserID: userID, Message: create, Files: files})
	msg := platform.Message{
		ID:        f.id(),
		ChannelID: channelID,
		Author:    platform.User{ID: f.BotID, Username: "warden", Bot: true},
		Content:   create.Content,
		CreatedAt: time.Now(),
	}
	f.messages[channelID] = append(f.messages[channelID], msg)
	return &msg
}

func (f *Fake) SendMessage(_ context.Context, channelID snowflake.ID, create platform.MessageCreate) (*platform.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("SendMessage", channelID.String()); err != nil {
		return nil, err
	}
	return f.send(channelID, 0, create), nil
}

func (f *Fake) EditMessage(_ context.Context, channelID, messageID snowflake.ID, update platform.MessageCreate) (*platform.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, m := range f.messages[channelID] {
		if m.ID == messageID {
			f.messages[channelID][i].Content = update.Content
			f.Sent = append(f.Sent, Sent{ChannelID: channelID, Message: update})
			out := f.messages[channelID][i]
			return &out, nil
		}
	}
	return nil, fmt.Errorf("message %s: %w", messageID, platform.ErrNotFound)
}

func (f *Fake) DeleteMessage(_ context.Context, channelID, messageID snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, m := range f.messages[channelID] {
		if m.ID == messageID {
			f.messages[channelID] = append(f.messages[channelID][:i], f.messages[channelID][i+1:]...)
			f.record("DeleteMessage", messageID.String(), "")
			return nil
		}
	}
	return fmt.Errorf("message %s: %w", messageID, platform.ErrNotFound)
}

// Messages returns the channel history newest first.
func (f *Fake) Messages(_ context.Context, channelID snowflake.ID, query platform.MessageQuery) ([]platform.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.messages[channelID]
	var out []platform.Message
	if query.After != 0 {
		for _, m := range all {
			if m.ID > query.After {
				out = append(out, m)
			}
		}
	} else {
		for i := len(all) - 1; i >= 0; i-- {
			if query.Before == 0 || all[i].ID < query.Before {
				out = append(out, all[i])
			}
		}
	}
	limit := query.Limit
	if limit <= 0 || limit > platform.MaxMessagePage {
		limit = platform.MaxMessagePage
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PurgeMessages reads the history through Messages, so it sees the same
// page cap as Discord.
func (f *Fake) PurgeMessages(ctx context.Context, channelID snowflake.ID, limit int) (int, error) {
	f.mu.Lock()
	err := f.failure("PurgeMessages")
	f.mu.Unlock()
	if err != nil {
		return 0, err
	}
	messages, err := platform.RecentMessages(ctx, f, channelID, limit)
	if err != nil {
		return 0, err
	}
	doomed := make(map[snowflake.ID]bool, len(messages))
	for _, m := range messages {
		doomed[m.ID] = true
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.messages[channelID][:0]
	for _, m := range f.messages[channelID] {
		if !doomed[m.ID] {
			kept = append(kept, m)
		}
	}
	f.messages[channelID] = kept
	f.record("PurgeMessages", channelID.String(), "")
	return len(messages), nil
}

func (f *Fake) AddReaction(_ context.Context, _, messageID snowflake.ID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reacts[messageID] == nil {
		f.reacts[messageID] = map[string][]platform.User{}
	}
	f.reacts[messageID][emoji] = append(f.reacts[messageID][emoji], platform.User{ID: f.BotID, Username: "warden", Bot: true})
	f.record("AddReaction", emoji, "")
	return nil
}

func (f *Fake) Reactors(_ context.Context, _, messageID snowflake.ID, emoji string) ([]platform.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.User(nil), f.reacts[messageID][emoji]...), nil
}

func (f *Fake) SendDirect(_ context.Context, userID snowflake.ID, create platform.MessageCreate) (*platform.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("SendDirect", userID.String()); err != nil {
		return nil, err
	}
	return f.send(0, userID, create), nil
}

func (f *Fake) Stats(_ context.Context) platform.Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := 0
	for _, members := range f.members {
		users += len(members)
	}
	return platform.Stats{Guilds: len(f.guilds), Users: users, Latency: 42 * time.Millisecond, LibraryVersion: "fake"}
}

var _ platform.Client = (*Fake)(nil)

// Responder records replies in memory.
type Responder struct {
	mu       sync.Mutex
	nextID   snowflake.ID
	Deferred bool
	Replies  []platform.MessageCreate
	Edits    map[snowflake.ID][]platform.MessageCreate
}

func (r *Responder) Defer(context.Context, bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Deferred = true
	return nil
}

func (r *Responder) Reply(_ context.Context, create platform.MessageCreate) (*platform.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.Replies = append(r.Replies, create)
	return &platform.Message{ID: r.nextID, Content: create.Content}, nil
}

func (r *Responder) Edit(_ context.Context, messageID snowflake.ID, update platform.MessageCreate) (*platform.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Edits == nil {
		r.Edits = map[snowflake.ID][]platform.MessageCreate{}
	}
	r.Edits[messageID] = append(r.Edits[messageID], update)
	return &platform.Message{ID: messageID, Content: update.Content}, nil
}

// Last returns the most recent reply, or the zero value.
func (r *Responder) Last() platform.MessageCreate {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Replies) == 0 {
		return platform.MessageCreate{}
	}
	return r.Replies[len(r.Replies)-1]
}

// Title is the first embed title of the last reply, falling back to its content.
func (r *Responder) Title() string {
	last := r.Last()
	if len(last.Embeds) > 0 {
		return last.Embeds[0].Title
	}
	return last.Content
}
