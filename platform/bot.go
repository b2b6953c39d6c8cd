package platform

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/json"
	"github.com/disgoorg/snowflake/v2"
	"github.com/mattn/go-shellwords"
	"golang.org/x/net/context"
)

// Counters tracks the guilds the gateway reported and their member counts.
type Counters struct {
	mu     sync.Mutex
	guilds map[snowflake.ID]int
}

func (c *Counters) Set(guildID snowflake.ID, members int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.guilds == nil {
		c.guilds = map[snowflake.ID]int{}
	}
	c.guilds[guildID] = members
}

func (c *Counters) Remove(guildID snowflake.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.guilds, guildID)
}

func (c *Counters) Snapshot() (guilds, users int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, members := range c.guilds {
		users += members
	}
	return len(c.guilds), users
}

type BotConfig struct {
	Token  string
	Prefix string
	Logger *slog.Logger
}

// Bot owns the gateway connection and turns interactions and prefixed
// messages into CommandEvents.
type Bot struct {
	client     bot.Client
	discord    *Discord
	counters   *Counters
	prefix     string
	log        *slog.Logger
	ready      atomic.Bool
	dispatcher atomic.Value
	// status reads the live gateway state; the Ready event alone does not
	// see a dropped connection that disgo is still reconnecting.
	status func() gateway.Status
}

func NewBot(cfg BotConfig) (*Bot, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	b := &Bot{
		counters: &Counters{},
		prefix:   cfg.Prefix,
		log:      cfg.Logger,
	}
	client, err := disgo.New(cfg.Token,
		bot.WithLogger(cfg.Logger),
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMembers,
				gateway.IntentGuildMessages,
				gateway.IntentGuildMessageReactions,
				gateway.IntentMessageContent,
				gateway.IntentDirectMessages,
			),
		),
		bot.WithCacheConfigOpts(
			cache.WithCaches(cache.FlagGuilds, cache.FlagChannels, cache.FlagRoles),
		),
		bot.WithEventListenerFunc(b.onReady),
		bot.WithEventListenerFunc(b.onResumed),
		bot.WithEventListenerFunc(b.onGuildReady),
		bot.WithEventListenerFunc(b.onGuildJoin),
		bot.WithEventListenerFunc(b.onGuildLeave),
		bot.WithEventListenerFunc(func(e *events.ApplicationCommandInteractionCreate) {
			go b.onSlash(e)
		}),
		bot.WithEventListenerFunc(func(e *events.GuildMessageCreate) {
			go b.onMessage(e)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("creating disgo client: %w", err)
	}
	b.client = client
	b.discord = NewDiscord(client, b.counters)
	b.status = b.gatewayStatus
	return b, nil
}

// Platform is the Client the handlers talk to.
func (b *Bot) Platform() *Discord {
	return b.discord
}

func (b *Bot) Handle(d Dispatcher) {
	b.dispatcher.Store(d)
}

func (b *Bot) gatewayStatus() gateway.Status {
	if !b.client.HasGateway() {
		return gateway.StatusUnconnected
	}
	return b.client.Gateway().Status()
}

// Ready reports whether the Ready event arrived and the gateway is still
// connected.
func (b *Bot) Ready() bool {
	return b.ready.Load() && b.status() == gateway.StatusReady
}

func (b *Bot) Open(ctx context.Context) error {
	if err := b.client.OpenGateway(ctx); err != nil {
		return fmt.Errorf("opening gateway: %w", err)
	}
	return nil
}

func (b *Bot) Close(ctx context.Context) {
	b.ready.Store(false)
	b.client.Close(ctx)
	b.log.Info("disgo closed successfully")
}

// SyncCommands publishes specs as application commands, to one guild when
// guildID is non-zero, otherwise globally.
func (b *Bot) SyncCommands(ctx context.Context, specs []CommandSpec, guildID snowflake.ID) error {
	creates := make([]discord.ApplicationCommandCreate, 0, len(specs))
	for _, spec := range specs {
		creates = append(creates, slashCommandCreate(spec))
	}
	var err error
	if guildID != 0 {
		_, err = b.client.Rest().SetGuildCommands(b.client.ApplicationID(), guildID, creates, opts(ctx, "")...)
	} else {
		_, err = b.client.Rest().SetGlobalCommands(b.client.ApplicationID(), creates, opts(ctx, "")...)
	}
	if err != nil {
		return fmt.Errorf("syncing %d commands: %w", len(creates), err)
	}
	b.log.Info("synced application commands", "count", len(creates), "guild", guildID)
	return nil
}

func slashCommandCreate(spec CommandSpec) discord.SlashCommandCreate {
	create := discord.SlashCommandCreate{
		Name:         spec.Name,
		Description:  spec.Description,
		DMPermission: boolPtr(false),
	}
	if spec.Permission != PermissionsNone {
		create.DefaultMemberPermissions = json.NewNullablePtr(discord.Permissions(spec.Permission))
	}
	for _, o := range spec.Options {
		create.Options = append(create.Options, commandOption(o))
	}
	return create
}

func commandOption(o OptionSpec) discord.ApplicationCommandOption {
	switch o.Kind {
	case OptionInteger:
		return discord.ApplicationCommandOptionInt{Name: o.Name, Description: o.Description, Required: o.Required}
	case OptionMember:
		return discord.ApplicationCommandOptionUser{Name: o.Name, Description: o.Description, Required: o.Required}
	case OptionChannel:
		return discord.ApplicationCommandOptionChannel{Name: o.Name, Description: o.Description, Required: o.Required}
	case OptionRole:
		return discord.ApplicationCommandOptionRole{Name: o.Name, Description: o.Description, Required: o.Required}
	case OptionAttachment:
		return discord.ApplicationCommandOptionAttachment{Name: o.Name, Description: o.Description, Required: o.Required}
	default:
		return discord.ApplicationCommandOptionString{Name: o.Name, Description: o.Description, Required: o.Required}
	}
}

func (b *Bot) onReady(e *events.Ready) {
	b.ready.Store(true)
	b.log.Info("Bot is up!", "username", e.User.Username, "guilds", len(e.Guilds))
}

func (b *Bot) onResumed(_ *events.Resumed) {
	b.ready.Store(true)
	b.log.Info("gateway resumed")
}

func (b *Bot) onGuildReady(e *events.GuildReady) {
	b.counters.Set(e.GuildID, e.Guild.MemberCount)
}

func (b *Bot) onGuildJoin(e *events.GuildJoin) {
	b.counters.Set(e.GuildID, e.Guild.MemberCount)
	b.log.Info("joined guild", "guild", e.GuildID, "name", e.Guild.Name)
}

func (b *Bot) onGuildLeave(e *events.GuildLeave) {
	b.counters.Remove(e.GuildID)
	b.log.Info("left guild", "guild", e.GuildID)
}

func (b *Bot) dispatch(event CommandEvent) {
	d, ok := b.dispatcher.Load().(Dispatcher)
	if !ok {
		b.log.Warn("no dispatcher registered, dropping command", "command", event.Name)
		return
	}
	d.Dispatch(context.Background(), event)
}

func (b *Bot) onSlash(e *events.ApplicationCommandInteractionCreate) {
	guildID := e.GuildID()
	if guildID == nil || e.Member() == nil {
		return
	}
	data := e.SlashCommandInteractionData()
	event := CommandEvent{
		GuildID:   *guildID,
		ChannelID: e.ChannelID(),
		Author:    memberFrom(e.Member().Member),
		Name:      data.CommandName(),
		Slash:     true,
		Options:   map[string]string{},
		Responder: &interactionResponder{event: e},
	}
	event.Author.GuildID = *guildID
	for name, option := range data.Options {
		value := optionValue(option.Value)
		event.Options[name] = value
		if option.Type != discord.ApplicationCommandOptionTypeAttachment {
			continue
		}
		id, err := snowflake.Parse(value)
		if err != nil {
			continue
		}
		if a, ok := data.Resolved.Attachments[id]; ok {
			event.Attachments = append(event.Attachments, attachmentFrom(a))
		}
	}
	b.log.Debug("slash command", "command", event.Name, "guild", event.GuildID, "user", event.Author.ID)
	b.dispatch(event)
}

// optionValue renders a raw option value: JSON strings are unquoted, numbers
// and booleans kept as written.
func optionValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func attachmentFrom(a discord.Attachment) Attachment {
	return Attachment{ID: a.ID, Filename: a.Filename, URL: a.URL, Size: a.Size}
}

func (b *Bot) onMessage(e *events.GuildMessageCreate) {
	if e.Message.Author.Bot || b.prefix == "" || !strings.HasPrefix(e.Message.Content, b.prefix) {
		return
	}
	words, err := shellwords.Parse(strings.TrimPrefix(e.Message.Content, b.prefix))
	if err != nil {
		// unbalanced quotes fall back to plain whitespace splitting
		words = strings.Fields(strings.TrimPrefix(e.Message.Content, b.prefix))
	}
	if len(words) == 0 {
		return
	}
	author := Member{User: userFrom(e.Message.Author), GuildID: e.GuildID}
	if m := e.Message.Member; m != nil {
		author.RoleIDs = m.RoleIDs
		author.JoinedAt = m.JoinedAt
		author.TimedOutUntil = m.CommunicationDisabledUntil
		if m.Nick != nil {
			author.Nick = *m.Nick
		}
	}
	event := CommandEvent{
		GuildID:   e.GuildID,
		ChannelID: e.ChannelID,
		MessageID: e.MessageID,
		Author:    author,
		Name:      strings.ToLower(words[0]),
		Tokens:    words[1:],
		Responder: &messageResponder{client: b.discord, channelID: e.ChannelID},
	}
	for _, a := range e.Message.Attachments {
		event.Attachments = append(event.Attachments, attachmentFrom(a))
	}
	b.log.Debug("prefix command", "command", event.Name, "guild", event.GuildID, "user", event.Author.ID)
	b.dispatch(event)
}

type interactionResponder struct {
	event    *events.ApplicationCommandInteractionCreate
	mu       sync.Mutex
	deferred bool
	answered bool
	original snowflake.ID
}

func (r *interactionResponder) Defer(ctx context.Context, ephemeral bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deferred {
		return nil
	}
	if err := r.event.DeferCreateMessage(ephemeral, opts(ctx, "")...); err != nil {
		return wrap(err)
	}
	r.deferred = true
	return nil
}

func (r *interactionResponder) Reply(ctx context.Context, create MessageCreate) (*Message, error) {
	if err := r.Defer(ctx, create.Ephemeral); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	client := r.event.Client()
	var (
		m   *discord.Message
		err error
	)
	if !r.answered && len(create.Files) == 0 {
		m, err = client.Rest().UpdateInteractionResponse(client.ApplicationID(), r.event.Token(), MessageUpdateTo(create), opts(ctx, "")...)
		if err == nil {
			r.original = m.ID
		}
	} else {
		m, err = client.Rest().CreateFollowupMessage(client.ApplicationID(), r.event.Token(), MessageCreateTo(create), opts(ctx, "")...)
	}
	if err != nil {
		return nil, wrap(err)
	}
	r.answered = true
	msg := MessageFrom(*m)
	return &msg, nil
}

func (r *interactionResponder) Edit(ctx context.Context, messageID snowflake.ID, update MessageCreate) (*Message, error) {
	r.mu.Lock()
	original := r.original
	r.mu.Unlock()
	client := r.event.Client()
	var (
		m   *discord.Message
		err error
	)
	if messageID == original {
		m, err = client.Rest().UpdateInteractionResponse(client.ApplicationID(), r.event.Token(), MessageUpdateTo(update), opts(ctx, "")...)
	} else {
		m, err = client.Rest().UpdateFollowupMessage(client.ApplicationID(), r.event.Token(), messageID, MessageUpdateTo(update), opts(ctx, "")...)
	}
	if err != nil {
		return nil, wrap(err)
	}
	msg := MessageFrom(*m)
	return &msg, nil
}

type messageResponder struct {
	client    Client
	channelID snowflake.ID
}

func (r *messageResponder) Defer(context.Context, bool) error {
	return nil
}

func (r *messageResponder) Reply(ctx context.Context, create MessageCreate) (*Message, error) {
	return r.client.SendMessage(ctx, r.channelID, create)
}

func (r *messageResponder) Edit(ctx context.Context, messageID snowflake.ID, update MessageCreate) (*Message, error) {
	return r.client.EditMessage(ctx, r.channelID, messageID, update)
}

// NewChannelResponder answers in a channel through client, the way prefix
// invocations are answered.
func NewChannelResponder(client Client, channelID snowflake.ID) Responder {
	return &messageResponder{client: client, channelID: channelID}
}
