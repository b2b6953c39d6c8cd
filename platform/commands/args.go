package commands

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/net/context"

	"github.com/fuad-daoud/warden/platform"
)

// Invocation is one command run: the event, the resolved descriptor, the
// guild it happened in and the parsed arguments.
type Invocation struct {
	platform.CommandEvent
	Command *Descriptor
	Guild   *platform.Guild
	// Roles are the guild's roles, top to bottom, as read at dispatch.
	Roles  []platform.Role
	Client platform.Client
	Prefix string

	args map[string]string
}

var (
	memberMention  = regexp.MustCompile(`^<@!?(\d+)>$`)
	channelMention = regexp.MustCompile(`^<#(\d+)>$`)
	roleMention    = regexp.MustCompile(`^<@&(\d+)>$`)
)

// parseArgs maps the event onto the descriptor's options. Prefix tokens are
// positional; attachments never are.
func parseArgs(d *Descriptor, event platform.CommandEvent) (map[string]string, error) {
	args := map[string]string{}
	if event.Slash {
		for _, o := range d.Options {
			if v, ok := event.Options[o.Name]; ok {
				args[o.Name] = v
			}
		}
	} else {
		tokens := event.Tokens
		for _, o := range d.Options {
			if o.Kind == platform.OptionAttachment {
				continue
			}
			if len(tokens) == 0 {
				break
			}
			if o.Greedy {
				args[o.Name] = strings.Join(tokens, " ")
				tokens = nil
				break
			}
			args[o.Name] = tokens[0]
			tokens = tokens[1:]
		}
	}

	for _, o := range d.Options {
		v, ok := args[o.Name]
		if !ok || strings.TrimSpace(v) == "" {
			if o.Kind == platform.OptionAttachment && len(event.Attachments) > 0 {
				continue
			}
			if o.Required {
				return nil, &MissingArgumentError{Param: o.Name}
			}
			delete(args, o.Name)
			if o.Default != "" {
				args[o.Name] = o.Default
			}
			continue
		}
		if o.Kind == platform.OptionInteger {
			if _, err := strconv.Atoi(v); err != nil {
				return nil, badArgument(o.Name, v, "Converting to \"int\" failed for parameter \"%s\".", o.Name)
			}
		}
	}
	return args, nil
}

func (inv *Invocation) Has(name string) bool {
	_, ok := inv.args[name]
	return ok
}

func (inv *Invocation) String(name string) string {
	return inv.args[name]
}

// Int returns an integer option; parseArgs has already validated it.
func (inv *Invocation) Int(name string) int {
	n, _ := strconv.Atoi(inv.args[name])
	return n
}

// IntRange is Int with an inclusive bound check.
func (inv *Invocation) IntRange(name string, lo, hi int) (int, error) {
	n := inv.Int(name)
	if n < lo || n > hi {
		return 0, badArgument(name, inv.args[name], "%s must be between %d and %d.", name, lo, hi)
	}
	return n, nil
}

// Member resolves a mention, an ID or a user name / nickname.
func (inv *Invocation) Member(ctx context.Context, name string) (*platform.Member, error) {
	raw := inv.args[name]
	if id, ok := mentionID(memberMention, raw); ok {
		m, err := inv.Client.Member(ctx, inv.GuildID, id)
		if err != nil {
			return nil, badArgument(name, raw, "Member \"%s\" not found.", raw)
		}
		return m, nil
	}
	members, err := inv.Client.Members(ctx, inv.GuildID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	for _, m := range members {
		if strings.EqualFold(m.Username, raw) || (m.Nick != "" && strings.EqualFold(m.Nick, raw)) {
			out := m
			return &out, nil
		}
	}
	return nil, badArgument(name, raw, "Member \"%s\" not found.", raw)
}

// MemberOrAuthor is Member, defaulting to the caller when the option is
// absent.
func (inv *Invocation) MemberOrAuthor(ctx context.Context, name string) (*platform.Member, error) {
	if !inv.Has(name) {
		m, err := inv.Client.Member(ctx, inv.GuildID, inv.Author.ID)
		if err != nil {
			author := inv.Author
			return &author, nil
		}
		return m, nil
	}
	return inv.Member(ctx, name)
}

// Channel resolves a channel mention, an ID or a name.
func (inv *Invocation) Channel(ctx context.Context, name string) (*platform.Channel, error) {
	raw := inv.args[name]
	channels, err := inv.Client.Channels(ctx, inv.GuildID)
	if err != nil {
		return nil, fmt.Errorf("listing channels: %w", err)
	}
	id, byID := mentionID(channelMention, raw)
	for _, c := range channels {
		if (byID && c.ID == id) || (!byID && strings.EqualFold(c.Name, strings.TrimPrefix(raw, "#"))) {
			out := c
			return &out, nil
		}
	}
	return nil, badArgument(name, raw, "Channel \"%s\" not found.", raw)
}

// ChannelOrCurrent defaults to the channel the command was issued in.
func (inv *Invocation) ChannelOrCurrent(ctx context.Context, name string) (*platform.Channel, error) {
	if inv.Has(name) {
		return inv.Channel(ctx, name)
	}
	return inv.Client.Channel(ctx, inv.ChannelID)
}

// Role resolves a role mention, an ID or a name against Roles.
func (inv *Invocation) Role(name string) (*platform.Role, error) {
	raw := inv.args[name]
	id, byID := mentionID(roleMention, raw)
	for _, r := range inv.Roles {
		if (byID && r.ID == id) || (!byID && strings.EqualFold(r.Name, raw)) {
			out := r
			return &out, nil
		}
	}
	return nil, badArgument(name, raw, "Role \"%s\" not found.", raw)
}

// Attachment returns the file given for an attachment option. Prefix
// invocations use the message's first attachment.
func (inv *Invocation) Attachment(name string) (platform.Attachment, bool) {
	if inv.Slash {
		id, err := snowflake.Parse(inv.Options[name])
		if err != nil {
			return platform.Attachment{}, false
		}
		for _, a := range inv.Attachments {
			if a.ID == id {
				return a, true
			}
		}
		return platform.Attachment{}, false
	}
	if len(inv.Attachments) == 0 {
		return platform.Attachment{}, false
	}
	return inv.Attachments[0], true
}

func mentionID(pattern *regexp.Regexp, raw string) (snowflake.ID, bool) {
	raw = strings.TrimSpace(raw)
	if m := pattern.FindStringSubmatch(raw); m != nil {
		raw = m[1]
	}
	id, err := snowflake.Parse(raw)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// Reply answers the invocation, privately when the command is ephemeral.
func (inv *Invocation) Reply(ctx context.Context, create platform.MessageCreate) (*platform.Message, error) {
	create.Ephemeral = create.Ephemeral || inv.Command.Ephemeral
	return inv.Responder.Reply(ctx, create)
}

func (inv *Invocation) ReplyEmbed(ctx context.Context, embed platform.Embed) (*platform.Message, error) {
	return inv.Reply(ctx, platform.MessageCreate{Embeds: []platform.Embed{embed}})
}

func (inv *Invocation) ReplyText(ctx context.Context, format string, args ...any) (*platform.Message, error) {
	return inv.Reply(ctx, platform.MessageCreate{Content: fmt.Sprintf(format, args...)})
}

// TopRole is the member's highest role in Roles.
func (inv *Invocation) TopRole(member platform.Member) platform.Role {
	return platform.TopRole(inv.GuildID, member, inv.Roles)
}
