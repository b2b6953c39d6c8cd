package commands

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/context"

	"github.com/fuad-daoud/warden/platform"
)

// target resolves the member option and applies the hierarchy gate.
func (h *Handlers) target(ctx context.Context, inv *Invocation, verb string) (*platform.Member, error) {
	target, err := inv.Member(ctx, "member")
	if err != nil {
		return nil, err
	}
	if err = inv.checkHierarchy(*target, verb); err != nil {
		return nil, err
	}
	return target, nil
}

func (h *Handlers) kick(ctx context.Context, inv *Invocation) error {
	target, err := h.target(ctx, inv, "kick")
	if err != nil {
		return err
	}
	reason := inv.String("reason")
	if err = h.Client.Kick(ctx, inv.GuildID, target.ID, reason); err != nil {
		return fmt.Errorf("kicking %s: %w", target.Username, err)
	}
	_, err = inv.ReplyEmbed(ctx, newEmbed("👢 Member Kicked", "", colorRed,
		field("Member", target.Mention()),
		field("Reason", reason),
		field("Moderator", inv.Author.Mention()),
	))
	return err
}

func (h *Handlers) ban(ctx context.Context, inv *Invocation) error {
	target, err := h.target(ctx, inv, "ban")
	if err != nil {
		return err
	}
	reason := inv.String("reason")
	if err = h.Client.Ban(ctx, inv.GuildID, target.ID, reason); err != nil {
		return fmt.Errorf("banning %s: %w", target.Username, err)
	}
	_, err = inv.ReplyEmbed(ctx, newEmbed("🔨 Member Banned", "", colorRed,
		field("Member", target.Mention()),
		field("Reason", reason),
		field("Moderator", inv.Author.Mention()),
	))
	return err
}

// maxTimeoutMinutes is Discord's 28 day cap.
const maxTimeoutMinutes = 40320

func (h *Handlers) timeout(ctx context.Context, inv *Invocation) error {
	minutes, err := inv.IntRange("minutes", 1, maxTimeoutMinutes)
	if err != nil {
		return err
	}
	target, err := h.target(ctx, inv, "timeout")
	if err != nil {
		return err
	}
	reason := inv.String("reason")
	until := h.Now().Add(time.Duration(minutes) * time.Minute)
	if err = h.Client.Timeout(ctx, inv.GuildID, target.ID, &until, reason); err != nil {
		return fmt.Errorf("timing out %s: %w", target.Username, err)
	}
	_, err = inv.ReplyEmbed(ctx, newEmbed("⏰ Member Timed Out", "", colorOrange,
		field("Member", target.Mention()),
		field("Duration", fmt.Sprintf("%d minutes", minutes)),
		field("Reason", reason),
		field("Moderator", inv.Author.Mention()),
	))
	return err
}

func (h *Handlers) unmute(ctx context.Context, inv *Invocation) error {
	target, err := inv.Member(ctx, "member")
	if err != nil {
		return err
	}
	if !target.TimedOut(h.Now()) {
		return &UserError{Title: "❌ Error", Message: target.Mention() + " is not muted!"}
	}
	if err = h.Client.Timeout(ctx, inv.GuildID, target.ID, nil, ""); err != nil {
		return fmt.Errorf("unmuting %s: %w", target.Username, err)
	}
	_, err = inv.ReplyEmbed(ctx, newEmbed("🔊 Member Unmuted", "", colorGreen,
		field("Member", target.Mention()),
		field("Moderator", inv.Author.Mention()),
	))
	return err
}

func (h *Handlers) clear(ctx context.Context, inv *Invocation) error {
	amount, err := inv.IntRange("amount", 1, 100)
	if err != nil {
		return err
	}
	limit := amount
	if !inv.Slash {
		// the invoking message goes too
		limit++
	}
	deleted, err := h.Client.PurgeMessages(ctx, inv.ChannelID, limit)
	if err != nil {
		return fmt.Errorf("clearing messages: %w", err)
	}
	if !inv.Slash && deleted > 0 {
		deleted--
	}
	msg, err := inv.ReplyEmbed(ctx, newEmbed("🧹 Messages Cleared", fmt.Sprintf("Cleared %d messages", deleted), colorBlue))
	if err != nil || inv.Slash {
		return err
	}
	channelID := inv.ChannelID
	h.Scheduler.After(h.confirmTTL, func(ctx context.Context) {
		if err := h.Client.DeleteMessage(ctx, channelID, msg.ID); err != nil {
			h.Logger.Debug("could not delete clear confirmation", "channel", channelID, "err", err)
		}
	})
	return nil
}

func (h *Handlers) slowmode(ctx context.Context, inv *Invocation) error {
	seconds, err := inv.IntRange("seconds", 0, 21600)
	if err != nil {
		return err
	}
	if err = h.Client.SetSlowmode(ctx, inv.ChannelID, seconds); err != nil {
		return fmt.Errorf("setting slowmode: %w", err)
	}
	_, err = inv.ReplyEmbed(ctx, newEmbed("⏱️ Slowmode Set", fmt.Sprintf("Slowmode set to %d seconds", seconds), colorBlue))
	return err
}

func (h *Handlers) nickname(ctx context.Context, inv *Invocation) error {
	target, err := inv.Member(ctx, "member")
	if err != nil {
		return err
	}
	nick := strings.TrimSpace(inv.String("new_nickname"))
	if err = h.Client.SetNickname(ctx, inv.GuildID, target.ID, nick); err != nil {
		_, err = inv.ReplyText(ctx, "❌ Failed to change nickname: %v", err)
		return err
	}
	shown := nick
	if shown == "" {
		shown = "Reset to default"
	}
	_, err = inv.ReplyText(ctx, "✅ Changed %s's nickname to: %s", target.Username, shown)
	return err
}

const modLogChannel = "mod-log"

func (h *Handlers) report(ctx context.Context, inv *Invocation) error {
	target, err := inv.Member(ctx, "member")
	if err != nil {
		return err
	}
	channels, err := h.Client.Channels(ctx, inv.GuildID)
	if err != nil {
		return fmt.Errorf("listing channels: %w", err)
	}
	for _, c := range channels {
		if c.Name != modLogChannel {
			continue
		}
		embed := newEmbed("⚠️ User Report", "", colorOrange,
			field("Reported User", target.Mention()),
			field("Reported By", inv.Author.Mention()),
			field("Reason", inv.String("reason")),
			field("Channel", "<#"+inv.ChannelID.String()+">"),
		)
		if _, err = h.Client.SendMessage(ctx, c.ID, platform.MessageCreate{Embeds: []platform.Embed{embed}}); err != nil {
			h.Logger.Warn("could not post report to mod-log", "guild", inv.GuildID, "err", err)
		}
		break
	}
	_, err = inv.ReplyText(ctx, "✅ Report submitted to moderators")
	return err
}

func (h *Handlers) serverIcon(ctx context.Context, inv *Invocation) error {
	source := strings.TrimSpace(inv.String("url"))
	if source == "" {
		if a, ok := inv.Attachment("image"); ok {
			source = a.URL
		}
	}
	if source == "" {
		_, err := inv.ReplyText(ctx, "Please provide a URL or attach an image!")
		return err
	}
	image, err := h.Fetcher.Get(ctx, source)
	if err == nil {
		err = h.Client.UpdateGuild(ctx, inv.GuildID, platform.GuildUpdate{Icon: image})
	}
	if err != nil {
		_, err = inv.ReplyText(ctx, "❌ Failed to update server icon: %v", err)
		return err
	}
	_, err = inv.ReplyText(ctx, "✅ Server icon updated successfully!")
	return err
}
