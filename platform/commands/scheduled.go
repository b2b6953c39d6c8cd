package commands

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/context"

	"github.com/fuad-daoud/warden/platform"
	"github.com/fuad-daoud/warden/tasks"
)

const (
	maxReminderMinutes = 60 * 24 * 365
	maxGiveawayMinutes = 60 * 24 * 30
	giveawayEmoji      = "🎉"
)

func (h *Handlers) remind(ctx context.Context, inv *Invocation) error {
	return h.scheduleReminder(ctx, inv, "reminder", "Reminder")
}

func (h *Handlers) remindMe(ctx context.Context, inv *Invocation) error {
	return h.scheduleReminder(ctx, inv, "message", "Message")
}

func (h *Handlers) scheduleReminder(ctx context.Context, inv *Invocation, option, label string) error {
	minutes, err := inv.IntRange("time", 1, maxReminderMinutes)
	if err != nil {
		return err
	}
	text := inv.String(option)
	task, err := h.Scheduler.Schedule(ctx, tasks.Task{
		Kind:      tasks.KindReminder,
		GuildID:   inv.GuildID,
		ChannelID: inv.ChannelID,
		UserID:    inv.Author.ID,
		Payload:   map[string]string{"text": text},
		DueAt:     h.Now().Add(time.Duration(minutes) * time.Minute),
	})
	if err != nil {
		return fmt.Errorf("scheduling reminder: %w", err)
	}
	embed := newEmbed("⏰ Reminder Set", "", colorGreen,
		field(label, text),
		field("Time", fmt.Sprintf("%d minutes", minutes)),
	)
	embed.Footer = "ID: " + task.ID
	_, err = inv.ReplyEmbed(ctx, embed)
	return err
}

func (h *Handlers) runReminder(ctx context.Context, task tasks.Task) error {
	embed := newEmbed("⏰ Reminder!", task.Payload["text"], colorGreen)
	_, err := h.Client.SendDirect(ctx, task.UserID, platform.MessageCreate{Embeds: []platform.Embed{embed}})
	if err == nil || task.ChannelID == 0 {
		return err
	}
	// closed DMs: fall back to the channel the reminder was set in
	h.Logger.Debug("reminder DM failed, posting in channel", "task", task.ID, "err", err)
	_, err = h.Client.SendMessage(ctx, task.ChannelID, platform.MessageCreate{
		Content: "<@" + task.UserID.String() + ">",
		Embeds:  []platform.Embed{embed},
	})
	return err
}

func (h *Handlers) reminders(ctx context.Context, inv *Invocation) error {
	pending := h.Scheduler.Pending(tasks.Filter{Kind: tasks.KindReminder, GuildID: inv.GuildID, UserID: inv.Author.ID})
	if len(pending) == 0 {
		_, err := inv.ReplyText(ctx, "You have no pending reminders.")
		return err
	}
	lines := make([]string, 0, len(pending))
	for _, t := range pending {
		lines = append(lines, fmt.Sprintf("`%s` %s (%s)", t.ID, t.Payload["text"], t.DueAt.UTC().Format("2006-01-02 15:04 UTC")))
	}
	_, err := inv.ReplyEmbed(ctx, newEmbed("⏰ Your Reminders", strings.Join(lines, "\n"), colorBlue))
	return err
}

func (h *Handlers) cancelReminder(ctx context.Context, inv *Invocation) error {
	id := strings.TrimSpace(inv.String("id"))
	owned := false
	for _, t := range h.Scheduler.Pending(tasks.Filter{Kind: tasks.KindReminder, GuildID: inv.GuildID, UserID: inv.Author.ID}) {
		if t.ID == id {
			owned = true
			break
		}
	}
	if !owned {
		return &UserError{Title: "❌ Error", Message: fmt.Sprintf("You have no pending reminder `%s`.", id)}
	}
	err := h.Scheduler.Cancel(ctx, id)
	if errors.Is(err, tasks.ErrNotFound) {
		return &UserError{Title: "❌ Error", Message: fmt.Sprintf("Reminder `%s` already fired.", id)}
	}
	if err != nil {
		return err
	}
	_, err = inv.ReplyText(ctx, "✅ Reminder `%s` cancelled.", id)
	return err
}

func (h *Handlers) giveaway(ctx context.Context, inv *Invocation) error {
	minutes, err := inv.IntRange("duration", 1, maxGiveawayMinutes)
	if err != nil {
		return err
	}
	prize := inv.String("prize")
	ends := h.Now().Add(time.Duration(minutes) * time.Minute)
	embed := newEmbed("🎉 Giveaway!", "Prize: "+prize, colorGold,
		field("Duration", fmt.Sprintf("%d minutes", minutes)),
		field("Ends At", ends.UTC().Format("2006-01-02 15:04 UTC")),
	)
	embed.Footer = "React with 🎉 to enter!"
	msg, err := inv.ReplyEmbed(ctx, embed)
	if err != nil {
		return err
	}
	if err = h.Client.AddReaction(ctx, inv.ChannelID, msg.ID, giveawayEmoji); err != nil {
		return fmt.Errorf("adding giveaway reaction: %w", err)
	}
	_, err = h.Scheduler.Schedule(ctx, tasks.Task{
		Kind:      tasks.KindGiveaway,
		GuildID:   inv.GuildID,
		ChannelID: inv.ChannelID,
		UserID:    inv.Author.ID,
		MessageID: msg.ID,
		Payload:   map[string]string{"prize": prize},
		DueAt:     ends,
	})
	if err != nil {
		return fmt.Errorf("scheduling draw: %w", err)
	}
	return nil
}

func (h *Handlers) runGiveaway(ctx context.Context, task tasks.Task) error {
	reactors, err := h.Client.Reactors(ctx, task.ChannelID, task.MessageID, giveawayEmoji)
	if err != nil {
		return fmt.Errorf("reading entrants: %w", err)
	}
	self, err := h.Client.SelfMember(ctx, task.GuildID)
	if err != nil {
		return fmt.Errorf("reading bot member: %w", err)
	}
	entrants := reactors[:0:0]
	for _, u := range reactors {
		if u.ID != self.ID && !u.Bot {
			entrants = append(entrants, u)
		}
	}
	content := "No one entered the giveaway 😔"
	if len(entrants) > 0 {
		winner := entrants[h.intN(len(entrants))]
		content = fmt.Sprintf("🎉 Congratulations %s! You won: %s", winner.Mention(), task.Payload["prize"])
	}
	_, err = h.Client.SendMessage(ctx, task.ChannelID, platform.MessageCreate{Content: content})
	return err
}
