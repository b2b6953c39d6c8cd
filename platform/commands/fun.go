package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/net/context"
)

var eightBallAnswers = []string{
	"It is certain.", "Without a doubt.", "Yes definitely.",
	"You may rely on it.", "As I see it, yes.", "Most likely.",
	"Reply hazy, try again.", "Ask again later.", "Better not tell you now.",
	"Cannot predict now.", "Don't count on it.", "My sources say no.",
	"Very doubtful.",
}

var jokes = []string{
	"Why don't programmers like nature? It has too many bugs.",
	"What do you call a bear with no teeth? A gummy bear!",
	"Why don't scientists trust atoms? Because they make up everything!",
	"What did the grape say when it got stepped on? Nothing, it just let out a little wine!",
	"Why did the scarecrow win an award? Because he was outstanding in his field!",
}

var pollEmojis = []string{"1️⃣", "2️⃣", "3️⃣", "4️⃣", "5️⃣", "6️⃣", "7️⃣", "8️⃣", "9️⃣", "🔟"}

const (
	maxDiceRolls = 100
	maxDiceFaces = 1000
)

var ErrDiceFormat = errors.New("format must be NdN")

// ParseDice reads "NdL": N rolls of an L sided die.
func ParseDice(s string) (rolls, limit int, err error) {
	left, right, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "d")
	if !ok {
		return 0, 0, ErrDiceFormat
	}
	if rolls, err = strconv.Atoi(left); err != nil {
		return 0, 0, ErrDiceFormat
	}
	if limit, err = strconv.Atoi(right); err != nil {
		return 0, 0, ErrDiceFormat
	}
	if rolls < 1 || limit < 1 || rolls > maxDiceRolls || limit > maxDiceFaces {
		return 0, 0, ErrDiceFormat
	}
	return rolls, limit, nil
}

func (h *Handlers) eightBall(ctx context.Context, inv *Invocation) error {
	answer := eightBallAnswers[h.intN(len(eightBallAnswers))]
	_, err := inv.ReplyEmbed(ctx, newEmbed("🎱 Magic 8-Ball", "", colorPurple,
		wideField("Question", inv.String("question")),
		wideField("Answer", answer),
	))
	return err
}

func (h *Handlers) coinflip(ctx context.Context, inv *Invocation) error {
	side := "Heads"
	if h.intN(2) == 1 {
		side = "Tails"
	}
	_, err := inv.ReplyEmbed(ctx, newEmbed("🪙 Coin Flip", fmt.Sprintf("The coin landed on: **%s**", side), colorGold))
	return err
}

func (h *Handlers) roll(ctx context.Context, inv *Invocation) error {
	rolls, limit, err := ParseDice(inv.String("dice"))
	if err != nil {
		return &UserError{Title: "❌ Invalid Format", Message: "Format must be NdN (e.g., 2d6)"}
	}
	results := make([]string, rolls)
	total := 0
	for i := range results {
		n := h.intN(limit) + 1
		total += n
		results[i] = strconv.Itoa(n)
	}
	_, err = inv.ReplyEmbed(ctx, newEmbed("🎲 Dice Roll", fmt.Sprintf("Rolling %dd%d", rolls, limit), colorBlue,
		wideField("Results", strings.Join(results, ", ")),
		wideField("Total", strconv.Itoa(total)),
	))
	return err
}

func (h *Handlers) random(ctx context.Context, inv *Invocation) error {
	start, end := inv.Int("start"), inv.Int("end")
	if start > end {
		return badArgument("start", inv.String("start"), "start must not be greater than end.")
	}
	// the span is taken in uint64 so the full int range cannot overflow
	span := uint64(end) - uint64(start)
	n := start + int(h.uint64N(span))
	_, err := inv.ReplyEmbed(ctx, newEmbed("🎲 Random Number", fmt.Sprintf("Generated number between %d and %d:", start, end), colorBlue,
		field("Result", strconv.Itoa(n)),
	))
	return err
}

func (h *Handlers) joke(ctx context.Context, inv *Invocation) error {
	_, err := inv.ReplyEmbed(ctx, newEmbed("😄 Random Joke", jokes[h.intN(len(jokes))], colorGold))
	return err
}

func (h *Handlers) say(ctx context.Context, inv *Invocation) error {
	if !inv.Slash && inv.MessageID != 0 {
		if err := h.Client.DeleteMessage(ctx, inv.ChannelID, inv.MessageID); err != nil {
			h.Logger.Debug("could not delete say invocation", "err", err)
		}
	}
	_, err := inv.ReplyEmbed(ctx, newEmbed("", inv.String("message"), colorBlue))
	return err
}

func (h *Handlers) embed(ctx context.Context, inv *Invocation) error {
	_, err := inv.ReplyEmbed(ctx, newEmbed(inv.String("title"), inv.String("description"), colorBlue))
	return err
}

func (h *Handlers) quickpoll(ctx context.Context, inv *Invocation) error {
	embed := newEmbed("📊 Quick Poll", inv.String("question"), colorBlue)
	embed.Footer = "Poll by " + inv.Author.EffectiveName()
	msg, err := inv.ReplyEmbed(ctx, embed)
	if err != nil {
		return err
	}
	return h.react(ctx, inv.ChannelID, msg.ID, "👍", "👎")
}

// SplitPollOptions splits a comma separated list, dropping blanks.
func SplitPollOptions(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (h *Handlers) poll(ctx context.Context, inv *Invocation) error {
	options := SplitPollOptions(inv.String("options"))
	switch {
	case len(options) < 2:
		_, err := inv.ReplyText(ctx, "You need at least 2 options! Separate them with commas.")
		return err
	case len(options) > len(pollEmojis):
		_, err := inv.ReplyText(ctx, "You can only have up to 10 options!")
		return err
	}
	embed := newEmbed("📊 Poll", inv.String("question"), colorBlue)
	for i, o := range options {
		embed.Fields = append(embed.Fields, wideField(fmt.Sprintf("Option %d", i+1), pollEmojis[i]+" "+o))
	}
	msg, err := inv.ReplyEmbed(ctx, embed)
	if err != nil {
		return err
	}
	return h.react(ctx, inv.ChannelID, msg.ID, pollEmojis[:len(options)]...)
}

func (h *Handlers) react(ctx context.Context, channelID, messageID snowflake.ID, emojis ...string) error {
	for _, e := range emojis {
		if err := h.Client.AddReaction(ctx, channelID, messageID, e); err != nil {
			return fmt.Errorf("adding reaction %s: %w", e, err)
		}
	}
	return nil
}
