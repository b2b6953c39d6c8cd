package commands

import (
	"fmt"
	"strings"

	"golang.org/x/net/context"

	"github.com/fuad-daoud/warden/platform"
)

func (h *Handlers) ping(ctx context.Context, inv *Invocation) error {
	latency := h.Client.Stats(ctx).Latency.Milliseconds()
	_, err := inv.ReplyEmbed(ctx, newEmbed("🏓 Pong!", fmt.Sprintf("Latency: %dms", latency), colorGreen))
	return err
}

func (h *Handlers) avatar(ctx context.Context, inv *Invocation) error {
	member, err := inv.MemberOrAuthor(ctx, "member")
	if err != nil {
		return err
	}
	embed := newEmbed(member.EffectiveName()+"'s Avatar", "", colorBlue)
	embed.Image = member.AvatarURL
	_, err = inv.ReplyEmbed(ctx, embed)
	return err
}

func (h *Handlers) showIcon(ctx context.Context, inv *Invocation) error {
	if inv.Guild.IconURL == "" {
		_, err := inv.ReplyText(ctx, "This server has no icon!")
		return err
	}
	embed := newEmbed(inv.Guild.Name+"'s Icon", "", colorBlue)
	embed.Image = inv.Guild.IconURL
	_, err := inv.ReplyEmbed(ctx, embed)
	return err
}

func (h *Handlers) roles(ctx context.Context, inv *Invocation) error {
	roles := append([]platform.Role(nil), inv.Roles...)
	platform.SortRoles(roles)
	mentions := make([]string, 0, len(roles))
	for _, r := range roles {
		if !r.IsDefault(inv.GuildID) {
			mentions = append(mentions, r.Mention())
		}
	}
	_, err := inv.ReplyEmbed(ctx, newEmbed("📋 Server Roles", strings.Join(mentions, "\n"), colorBlue))
	return err
}

// categoryName is the name of the channel's parent, or "None".
func (h *Handlers) categoryName(ctx context.Context, c platform.Channel) string {
	if c.ParentID == 0 {
		return "None"
	}
	parent, err := h.Client.Channel(ctx, c.ParentID)
	if err != nil {
		return "None"
	}
	return parent.Name
}

func (h *Handlers) channelInfo(ctx context.Context, inv *Invocation) error {
	channel, err := inv.ChannelOrCurrent(ctx, "channel")
	if err != nil {
		return err
	}
	_, err = inv.ReplyEmbed(ctx, newEmbed("📺 Channel Information", "", colorBlue,
		field("Name", channel.Name),
		field("Category", h.categoryName(ctx, *channel)),
		field("Created At", channel.CreatedAt().UTC().Format(dateLayout)),
		field("NSFW", fmt.Sprint(channel.NSFW)),
		field("News Channel", fmt.Sprint(channel.Kind == platform.ChannelKindNews)),
		field("Slowmode", fmt.Sprintf("%ds", channel.Slowmode)),
	))
	return err
}

func (h *Handlers) invites(ctx context.Context, inv *Invocation) error {
	member, err := inv.MemberOrAuthor(ctx, "member")
	if err != nil {
		return err
	}
	invites, err := h.Client.Invites(ctx, inv.GuildID)
	if err != nil {
		return fmt.Errorf("listing invites: %w", err)
	}
	total := 0
	for _, i := range invites {
		if i.InviterID == member.ID {
			total += i.Uses
		}
	}
	_, err = inv.ReplyEmbed(ctx, newEmbed("📨 Invite Statistics", "", colorBlue,
		field("Member", member.Mention()),
		field("Total Invites", fmt.Sprint(total)),
	))
	return err
}

func (h *Handlers) help(ctx context.Context, inv *Invocation) error {
	if name := strings.TrimPrefix(inv.String("command"), inv.Prefix); name != "" {
		d, ok := h.registry.Lookup(name)
		if !ok {
			return &UserError{Title: "❌ Unknown Command", Message: fmt.Sprintf("Command `%s` not found.", name)}
		}
		embed := newEmbed("📚 Command Help: "+d.Name, d.Description, colorBlue,
			wideField("Usage", d.Usage(inv.Prefix)),
		)
		embed.Footer = fmt.Sprintf("Tip: All commands work with both %s prefix and /", inv.Prefix)
		_, err := inv.ReplyEmbed(ctx, embed)
		return err
	}

	embed := newEmbed("📚 Command List",
		fmt.Sprintf("Use `%scommands <command>` for detailed information about a command", inv.Prefix),
		colorBlue)
	for _, category := range Categories {
		descriptors := h.registry.InCategory(category)
		if len(descriptors) == 0 {
			continue
		}
		lines := make([]string, 0, len(descriptors))
		for _, d := range descriptors {
			lines = append(lines, fmt.Sprintf("`%s%s` - %s", inv.Prefix, d.Name, d.Description))
		}
		embed.Fields = append(embed.Fields, wideField(string(category), strings.Join(lines, "\n")))
	}
	embed.Footer = fmt.Sprintf("Total Commands: %d | All commands work with both %s and /", len(h.registry.All()), inv.Prefix)
	_, err := inv.ReplyEmbed(ctx, embed)
	return err
}
