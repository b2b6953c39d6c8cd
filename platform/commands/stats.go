package commands

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/net/context"

	"github.com/fuad-daoud/warden/platform"
)

func (h *Handlers) serverInfo(ctx context.Context, inv *Invocation) error {
	g := inv.Guild
	channels, err := h.Client.Channels(ctx, inv.GuildID)
	if err != nil {
		return fmt.Errorf("listing channels: %w", err)
	}
	embed := newEmbed(g.Name+" Info", "", colorBlue,
		field("Owner", "<@"+g.OwnerID.String()+">"),
		field("Created At", g.CreatedAt().UTC().Format(dateLayout)),
		field("Member Count", fmt.Sprint(g.MemberCount)),
		field("Boost Level", fmt.Sprint(g.PremiumTier)),
		field("Roles", fmt.Sprint(len(inv.Roles))),
		field("Channels", fmt.Sprint(len(channels))),
	)
	embed.Thumbnail = g.IconURL
	_, err = inv.ReplyEmbed(ctx, embed)
	return err
}

func (h *Handlers) userInfo(ctx context.Context, inv *Invocation) error {
	member, err := inv.MemberOrAuthor(ctx, "member")
	if err != nil {
		return err
	}
	roles := append([]platform.Role(nil), inv.Roles...)
	platform.SortRoles(roles)
	var mentions []string
	for _, r := range roles {
		if !r.IsDefault(inv.GuildID) && member.HasRole(r.ID) {
			mentions = append(mentions, r.Mention())
		}
	}
	held := "No roles"
	if len(mentions) > 0 {
		held = strings.Join(mentions, " ")
	}
	joined := "Unknown"
	if !member.JoinedAt.IsZero() {
		joined = member.JoinedAt.UTC().Format(dateLayout)
	}
	embed := newEmbed("User Information", "", inv.TopRole(*member).Color,
		field("Username", member.Username),
		field("Joined Server", joined),
		field("Account Created", member.CreatedAt().UTC().Format(dateLayout)),
		wideField("Roles", held),
	)
	embed.Thumbnail = member.AvatarURL
	_, err = inv.ReplyEmbed(ctx, embed)
	return err
}

// ChannelCounts tallies channels by kind.
func ChannelCounts(channels []platform.Channel) map[platform.ChannelKind]int {
	counts := map[platform.ChannelKind]int{}
	for _, c := range channels {
		counts[c.Kind]++
	}
	return counts
}

func (h *Handlers) serverStats(ctx context.Context, inv *Invocation) error {
	g := inv.Guild
	channels, err := h.Client.Channels(ctx, inv.GuildID)
	if err != nil {
		return fmt.Errorf("listing channels: %w", err)
	}
	counts := ChannelCounts(channels)
	embed := newEmbed(fmt.Sprintf("📊 %s Statistics", g.Name), "", colorBlue,
		field("👥 Total Members", fmt.Sprint(g.MemberCount)),
		field("💬 Text Channels", fmt.Sprint(counts[platform.ChannelKindText])),
		field("🔊 Voice Channels", fmt.Sprint(counts[platform.ChannelKindVoice])),
		field("📁 Categories", fmt.Sprint(counts[platform.ChannelKindCategory])),
		field("👑 Roles", fmt.Sprint(len(inv.Roles))),
		field("😀 Emojis", fmt.Sprint(len(g.Emojis))),
		field("🚀 Boost Level", fmt.Sprint(g.PremiumTier)),
		field("💎 Boosts", fmt.Sprint(g.PremiumSubscriptionCount)),
	)
	embed.Thumbnail = g.IconURL
	_, err = inv.ReplyEmbed(ctx, embed)
	return err
}

func (h *Handlers) botStats(ctx context.Context, inv *Invocation) error {
	stats := h.Client.Stats(ctx)
	_, err := inv.ReplyEmbed(ctx, newEmbed("🤖 Bot Statistics", "", colorBlue,
		field("Servers", fmt.Sprint(stats.Guilds)),
		field("Users", fmt.Sprint(stats.Users)),
		field("Commands", fmt.Sprint(len(h.registry.All()))),
		field("Latency", fmt.Sprintf("%dms", stats.Latency.Milliseconds())),
		field("Go Version", runtime.Version()),
		field("Library Version", stats.LibraryVersion),
	))
	return err
}

func (h *Handlers) memberCount(ctx context.Context, inv *Invocation) error {
	members, err := h.Client.Members(ctx, inv.GuildID)
	if err != nil {
		return fmt.Errorf("listing members: %w", err)
	}
	bots := 0
	for _, m := range members {
		if m.Bot {
			bots++
		}
	}
	_, err = inv.ReplyEmbed(ctx, newEmbed("👥 Member Count", fmt.Sprintf("Total Members: %d", len(members)), colorBlue,
		field("Humans", fmt.Sprint(len(members)-bots)),
		field("Bots", fmt.Sprint(bots)),
	))
	return err
}

type AuthorCount struct {
	Name  string
	Count int
}

// TopAuthors counts messages per author and returns the n most active,
// ties broken by name.
func TopAuthors(messages []platform.Message, n int) []AuthorCount {
	counts := map[string]int{}
	for _, m := range messages {
		counts[m.Author.Username]++
	}
	out := make([]AuthorCount, 0, len(counts))
	for name, c := range counts {
		out = append(out, AuthorCount{Name: name, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func (h *Handlers) channelStats(ctx context.Context, inv *Invocation) error {
	channel, err := inv.ChannelOrCurrent(ctx, "channel")
	if err != nil {
		return err
	}
	embed := newEmbed("📊 Channel Statistics: #"+channel.Name, "", colorBlue,
		field("Channel Type", string(channel.Kind)),
		field("Created On", channel.CreatedAt().UTC().Format(dateLayout)),
		field("Category", h.categoryName(ctx, *channel)),
		field("Position", fmt.Sprint(channel.Position)),
		field("NSFW", yesNo(channel.NSFW)),
		field("Slowmode", fmt.Sprintf("%ds", channel.Slowmode)),
	)
	if channel.Kind == platform.ChannelKindText || channel.Kind == platform.ChannelKindNews {
		messages, err := h.Client.Messages(ctx, channel.ID, platform.MessageQuery{Limit: 100})
		if err != nil {
			return fmt.Errorf("reading history: %w", err)
		}
		if top := TopAuthors(messages, 5); len(top) > 0 {
			lines := make([]string, 0, len(top))
			for _, a := range top {
				lines = append(lines, fmt.Sprintf("%s: %d messages", a.Name, a.Count))
			}
			embed.Fields = append(embed.Fields, wideField("Most Active Users (Last 100 msgs)", strings.Join(lines, "\n")))
		}
	}
	_, err = inv.ReplyEmbed(ctx, embed)
	return err
}

const maxListedPermissions = 10

func (h *Handlers) roleInfo(ctx context.Context, inv *Invocation) error {
	role, err := inv.Role("role")
	if err != nil {
		return err
	}
	members, err := h.Client.Members(ctx, inv.GuildID)
	if err != nil {
		return fmt.Errorf("listing members: %w", err)
	}
	holders := 0
	for _, m := range members {
		if role.IsDefault(inv.GuildID) || m.HasRole(role.ID) {
			holders++
		}
	}
	perms := platform.PermissionTitles(role.Permissions)
	listed := "None"
	if len(perms) > 0 {
		shown := perms
		if len(shown) > maxListedPermissions {
			shown = shown[:maxListedPermissions]
		}
		listed = strings.Join(shown, ", ")
		if extra := len(perms) - len(shown); extra > 0 {
			listed += fmt.Sprintf("\n...and %d more", extra)
		}
	}
	_, err = inv.ReplyEmbed(ctx, newEmbed("Role Information: "+role.Name, "", role.Color,
		field("Role ID", role.ID.String()),
		field("Color", role.ColorHex()),
		field("Position", fmt.Sprint(role.Position)),
		field("Mentionable", yesNo(role.Mentionable)),
		field("Hoisted", yesNo(role.Hoist)),
		field("Members", fmt.Sprint(holders)),
		wideField("Key Permissions", listed),
	))
	return err
}
