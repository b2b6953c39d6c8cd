package commands

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/net/context"

	"github.com/fuad-daoud/warden/platform"
	"github.com/fuad-daoud/warden/tasks"
)

// Archive stores snapshot files outside Discord.
type Archive interface {
	Key(guildID snowflake.ID, name string) string
	Upload(ctx context.Context, key string, body []byte, tags map[string]string) error
	Download(ctx context.Context, key string, max int64) ([]byte, error)
}

// Fetcher downloads attachments and image URLs.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

type Deps struct {
	Client    platform.Client
	Scheduler *tasks.Scheduler
	Fetcher   Fetcher
	// Archive is nil when snapshots are only handed out by DM.
	Archive          Archive
	RestoreDelay     time.Duration
	RestoreTimeout   time.Duration
	MaxSnapshotBytes int64
	Prefix           string
	Rand             *rand.Rand
	Now              func() time.Time
	Logger           *slog.Logger
}

// Handlers implements every command over Deps.
type Handlers struct {
	Deps
	registry   *Registry
	markers    *markerCache
	confirmTTL time.Duration

	randMu sync.Mutex
}

func New(deps Deps) (*Handlers, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	}
	if deps.Prefix == "" {
		deps.Prefix = "+"
	}
	if deps.Scheduler == nil {
		deps.Scheduler = tasks.NewScheduler(nil, deps.Logger)
	}
	if deps.RestoreTimeout == 0 {
		deps.RestoreTimeout = 30 * time.Minute
	}
	h := &Handlers{
		Deps:       deps,
		markers:    newMarkerCache(),
		confirmTTL: 5 * time.Second,
	}
	registry, err := NewRegistry(h.descriptors()...)
	if err != nil {
		return nil, err
	}
	h.registry = registry
	h.Scheduler.Register(tasks.KindReminder, h.runReminder)
	h.Scheduler.Register(tasks.KindGiveaway, h.runGiveaway)
	return h, nil
}

func (h *Handlers) Registry() *Registry {
	return h.registry
}

func (h *Handlers) intN(n int) int {
	h.randMu.Lock()
	defer h.randMu.Unlock()
	return h.Rand.IntN(n)
}

// uint64N returns a value in [0, max].
func (h *Handlers) uint64N(max uint64) uint64 {
	h.randMu.Lock()
	defer h.randMu.Unlock()
	if max == math.MaxUint64 {
		return h.Rand.Uint64()
	}
	return h.Rand.Uint64N(max + 1)
}

func memberOpt(name, description string, required bool) Option {
	return Option{Name: name, Description: description, Kind: platform.OptionMember, Required: required}
}

func textOpt(name, description string, required bool) Option {
	return Option{Name: name, Description: description, Kind: platform.OptionString, Required: required}
}

func restOpt(name, description string, required bool) Option {
	return Option{Name: name, Description: description, Kind: platform.OptionString, Required: required, Greedy: true}
}

func intOpt(name, description string, required bool) Option {
	return Option{Name: name, Description: description, Kind: platform.OptionInteger, Required: required}
}

func channelOpt(name, description string) Option {
	return Option{Name: name, Description: description, Kind: platform.OptionChannel}
}

func (h *Handlers) descriptors() []*Descriptor {
	reason := Option{Name: "reason", Description: "Why", Kind: platform.OptionString, Greedy: true, Default: "No reason provided"}
	return []*Descriptor{
		// moderation
		{Name: "ban", Description: "Ban a member", Category: CategoryModeration, Permission: platform.PermissionBanMembers,
			Options: []Option{memberOpt("member", "Member to ban", true), reason}, Handler: h.ban},
		{Name: "kick", Description: "Kick a member", Category: CategoryModeration, Permission: platform.PermissionKickMembers,
			Options: []Option{memberOpt("member", "Member to kick", true), reason}, Handler: h.kick},
		{Name: "timeout", Description: "Timeout a member", Category: CategoryModeration, Permission: platform.PermissionModerateMembers,
			Options: []Option{memberOpt("member", "Member to time out", true), intOpt("minutes", "Length in minutes", true), reason}, Handler: h.timeout},
		{Name: "warn", Description: "Warn a member", Category: CategoryModeration, Permission: platform.PermissionKickMembers,
			Options: []Option{memberOpt("member", "Member to warn", true), restOpt("reason", "Why", true)}, Handler: h.warn},
		{Name: "unwarn", Description: "Remove a warning from a member", Category: CategoryModeration, Permission: platform.PermissionKickMembers,
			Options: []Option{memberOpt("member", "Member to unwarn", true)}, Handler: h.unwarn},
		{Name: "clear", Description: "Clear messages in a channel", Category: CategoryModeration, Permission: platform.PermissionManageMessages, Ephemeral: true,
			Options: []Option{intOpt("amount", "How many messages (1-100)", true)}, Handler: h.clear},
		{Name: "slowmode", Description: "Set slowmode in the channel", Category: CategoryModeration, Permission: platform.PermissionManageChannels,
			Options: []Option{intOpt("seconds", "Delay between messages (0-21600)", true)}, Handler: h.slowmode},
		{Name: "unmute", Description: "Unmute a member", Category: CategoryModeration, Permission: platform.PermissionModerateMembers,
			Options: []Option{memberOpt("member", "Member to unmute", true)}, Handler: h.unmute},
		{Name: "nickname", Description: "Change a member's nickname", Category: CategoryModeration, Permission: platform.PermissionManageNicknames,
			Options: []Option{memberOpt("member", "Member to rename", true), restOpt("new_nickname", "Leave empty to reset", false)}, Handler: h.nickname},
		{Name: "report", Description: "Report a user", Category: CategoryModeration, Ephemeral: true,
			Options: []Option{memberOpt("member", "Member to report", true), restOpt("reason", "What happened", true)}, Handler: h.report},

		// fun
		{Name: "8ball", Description: "Ask the magic 8ball a question", Category: CategoryFun,
			Options: []Option{restOpt("question", "Your question", true)}, Handler: h.eightBall},
		{Name: "coinflip", Description: "Flip a coin", Category: CategoryFun, Handler: h.coinflip},
		{Name: "roll", Description: "Roll a dice (format: NdN, e.g., 2d6)", Category: CategoryFun,
			Options: []Option{textOpt("dice", "Dice in NdN format", true)}, Handler: h.roll},
		{Name: "random", Description: "Generate a random number", Category: CategoryFun,
			Options: []Option{
				{Name: "start", Description: "Lowest value", Kind: platform.OptionInteger, Default: "1"},
				{Name: "end", Description: "Highest value", Kind: platform.OptionInteger, Default: "100"},
			}, Handler: h.random},
		{Name: "joke", Description: "Tells a random joke", Category: CategoryFun, Handler: h.joke},
		{Name: "say", Description: "Make the bot say something", Category: CategoryFun, Permission: platform.PermissionManageMessages,
			Options: []Option{restOpt("message", "What to say", true)}, Handler: h.say},
		{Name: "giveaway", Description: "Start a giveaway", Category: CategoryFun, Permission: platform.PermissionManageGuild,
			Options: []Option{intOpt("duration", "Minutes until a winner is drawn", true), restOpt("prize", "What the winner gets", true)}, Handler: h.giveaway},
		{Name: "quickpoll", Description: "Create a quick yes/no poll", Category: CategoryFun,
			Options: []Option{restOpt("question", "Yes/no question", true)}, Handler: h.quickpoll},

		// utility
		{Name: "ping", Description: "Shows the bot's latency", Category: CategoryUtility, Handler: h.ping},
		{Name: "avatar", Description: "Shows a user's avatar", Category: CategoryUtility,
			Options: []Option{memberOpt("member", "Whose avatar", false)}, Handler: h.avatar},
		{Name: "remind", Description: "Sets a reminder", Category: CategoryUtility,
			Options: []Option{intOpt("time", "Minutes from now", true), restOpt("reminder", "What to remind you of", true)}, Handler: h.remind},
		{Name: "poll", Description: "Create a simple poll", Category: CategoryUtility,
			Options: []Option{textOpt("question", "The question", true), restOpt("options", "Comma separated options", true)}, Handler: h.poll},
		{Name: "servericon", Description: "Change the server icon", Category: CategoryUtility, Permission: platform.PermissionManageGuild,
			Options: []Option{textOpt("url", "Image URL", false), {Name: "image", Description: "Image file", Kind: platform.OptionAttachment}}, Handler: h.serverIcon},
		{Name: "roles", Description: "Lists all server roles", Category: CategoryUtility, Handler: h.roles},
		{Name: "channelinfo", Description: "Get information about a channel", Category: CategoryUtility,
			Options: []Option{channelOpt("channel", "Channel to inspect")}, Handler: h.channelInfo},
		{Name: "remindme", Description: "Set a reminder with a custom message", Category: CategoryUtility,
			Options: []Option{intOpt("time", "Minutes from now", true), restOpt("message", "The message", true)}, Handler: h.remindMe},
		{Name: "reminders", Description: "List your pending reminders", Category: CategoryUtility, Ephemeral: true, Handler: h.reminders},
		{Name: "cancelreminder", Description: "Cancel one of your reminders", Category: CategoryUtility, Ephemeral: true,
			Options: []Option{textOpt("id", "Reminder ID from the reminders list", true)}, Handler: h.cancelReminder},
		{Name: "embed", Description: "Create a custom embed message", Category: CategoryUtility, Permission: platform.PermissionManageMessages,
			Options: []Option{textOpt("title", "Embed title", true), restOpt("description", "Embed text", true)}, Handler: h.embed},
		{Name: "invites", Description: "Show your invite statistics", Category: CategoryUtility,
			Options: []Option{memberOpt("member", "Whose invites", false)}, Handler: h.invites},
		{Name: "showicon", Description: "Shows the server's icon", Category: CategoryUtility, Handler: h.showIcon},
		{Name: "commands", Description: "Shows all available commands", Category: CategoryUtility,
			Options: []Option{textOpt("command", "Command to explain", false)}, Handler: h.help},

		// statistics
		{Name: "serverinfo", Description: "Shows server information", Category: CategoryStatistics, Handler: h.serverInfo},
		{Name: "userinfo", Description: "Shows info about a user", Category: CategoryStatistics,
			Options: []Option{memberOpt("member", "Who", false)}, Handler: h.userInfo},
		{Name: "serverstats", Description: "Shows detailed server statistics", Category: CategoryStatistics, Handler: h.serverStats},
		{Name: "botstats", Description: "Shows bot statistics", Category: CategoryStatistics, Handler: h.botStats},
		{Name: "membercount", Description: "Shows server member count", Category: CategoryStatistics, Handler: h.memberCount},
		{Name: "channelstats", Description: "Show detailed statistics about a channel", Category: CategoryStatistics,
			Options: []Option{channelOpt("channel", "Channel to inspect")}, Handler: h.channelStats},
		{Name: "roleinfo", Description: "Get detailed information about a role", Category: CategoryStatistics,
			Options: []Option{{Name: "role", Description: "Role to inspect", Kind: platform.OptionRole, Required: true}}, Handler: h.roleInfo},

		// server
		{Name: "serveremojis", Description: "Shows all server emojis", Category: CategoryServer, Handler: h.serverEmojis},
		{Name: "serveremotes", Description: "List all available server emotes with IDs", Category: CategoryServer, Handler: h.serverEmotes},
		{Name: "firstmessage", Description: "Find the first message in the channel", Category: CategoryServer,
			Options: []Option{channelOpt("channel", "Channel to search")}, Handler: h.firstMessage},

		// backup
		{Name: "serverbackup", Description: "Create a backup of server settings", Category: CategoryBackup, Permission: platform.PermissionAdministrator,
			Handler: h.serverBackup},
		{Name: "restorebackup", Description: "Restore a server from a backup file", Category: CategoryBackup, Permission: platform.PermissionAdministrator,
			Timeout: h.RestoreTimeout,
			Options: []Option{
				{Name: "backup_file", Description: "Snapshot file from serverbackup", Kind: platform.OptionAttachment},
				textOpt("key", "Archive key of a stored snapshot", false),
			}, Handler: h.restoreBackup},
	}
}
