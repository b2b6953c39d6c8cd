package platform

import (
	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/net/context"
)

// Responder answers the invocation that produced a CommandEvent.
type Responder interface {
	// Defer acknowledges the invocation before a slow handler runs. It is a
	// no-op for prefix invocations.
	Defer(ctx context.Context, ephemeral bool) error
	Reply(ctx context.Context, create MessageCreate) (*Message, error)
	Edit(ctx context.Context, messageID snowflake.ID, update MessageCreate) (*Message, error)
}

// CommandEvent is one command invocation, from a slash interaction or a
// prefixed message.
type CommandEvent struct {
	GuildID   snowflake.ID
	ChannelID snowflake.ID
	// MessageID is the invoking message for prefix invocations, zero for slash.
	MessageID snowflake.ID
	Author    Member
	Name      string
	Slash     bool
	// Tokens are the shell-split words after the command name (prefix mode).
	Tokens []string
	// Options are the named slash options rendered as strings.
	Options     map[string]string
	Attachments []Attachment
	Responder   Responder
}

type Dispatcher interface {
	Dispatch(ctx context.Context, event CommandEvent)
}

type DispatcherFunc func(ctx context.Context, event CommandEvent)

func (f DispatcherFunc) Dispatch(ctx context.Context, event CommandEvent) {
	f(ctx, event)
}

type OptionKind int

const (
	OptionString OptionKind = iota
	OptionInteger
	OptionMember
	OptionChannel
	OptionRole
	OptionAttachment
)

type OptionSpec struct {
	Name        string
	Description string
	Kind        OptionKind
	Required    bool
}

// CommandSpec is the application command published for slash mode.
type CommandSpec struct {
	Name        string
	Description string
	Permission  Permissions
	Options     []OptionSpec
}
