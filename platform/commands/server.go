package commands

import (
	"fmt"
	"strings"

	"golang.org/x/net/context"

	"github.com/fuad-daoud/warden/platform"
)

const emotesPerPage = 10

func (h *Handlers) serverEmojis(ctx context.Context, inv *Invocation) error {
	if len(inv.Guild.Emojis) == 0 {
		_, err := inv.ReplyText(ctx, "This server has no custom emojis!")
		return err
	}
	rendered := make([]string, 0, len(inv.Guild.Emojis))
	for _, e := range inv.Guild.Emojis {
		rendered = append(rendered, e.String())
	}
	_, err := inv.ReplyEmbed(ctx, newEmbed("😀 Server Emojis", strings.Join(rendered, " "), colorBlue))
	return err
}

func (h *Handlers) serverEmotes(ctx context.Context, inv *Invocation) error {
	emojis := inv.Guild.Emojis
	if len(emojis) == 0 {
		_, err := inv.ReplyText(ctx, "This server has no custom emotes!")
		return err
	}
	embed := newEmbed("Server Emotes", "", colorBlue)
	for page := 0; page*emotesPerPage < len(emojis); page++ {
		end := min((page+1)*emotesPerPage, len(emojis))
		lines := make([]string, 0, emotesPerPage)
		for _, e := range emojis[page*emotesPerPage : end] {
			lines = append(lines, fmt.Sprintf("%s - `%s`", e, e.ID))
		}
		embed.Fields = append(embed.Fields, wideField(fmt.Sprintf("Page %d", page+1), strings.Join(lines, "\n")))
	}
	_, err := inv.ReplyEmbed(ctx, embed)
	return err
}

func (h *Handlers) firstMessage(ctx context.Context, inv *Invocation) error {
	channel, err := inv.ChannelOrCurrent(ctx, "channel")
	if err != nil {
		return err
	}
	// After=1 walks the history oldest first
	messages, err := h.Client.Messages(ctx, channel.ID, platform.MessageQuery{After: 1, Limit: 1})
	if err != nil {
		return fmt.Errorf("reading history: %w", err)
	}
	if len(messages) == 0 {
		_, err = inv.ReplyEmbed(ctx, newEmbed("Error", "No messages found!", colorRed))
		return err
	}
	first := messages[0]
	if first.GuildID == 0 {
		first.GuildID = inv.GuildID
	}
	content := first.Content
	if content == "" {
		content = "[No content]"
	}
	_, err = inv.ReplyEmbed(ctx, newEmbed("First Message", "", colorGold,
		wideField("Content", content),
		field("Author", first.Author.Mention()),
		field("Date", first.CreatedAt.UTC().Format("2006-01-02 15:04:05")),
		field("Jump to Message", "[Click Here]("+first.JumpURL()+")"),
	))
	return err
}
