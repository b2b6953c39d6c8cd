package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fuad-daoud/warden/platform"
)

type MissingArgumentError struct {
	Param string
}

func (e *MissingArgumentError) Error() string {
	return "missing argument " + e.Param
}

type BadArgumentError struct {
	Param string
	Value string
	Err   error
}

func (e *BadArgumentError) Error() string {
	return fmt.Sprintf("argument %s=%q: %v", e.Param, e.Value, e.Err)
}

func (e *BadArgumentError) Unwrap() error {
	return e.Err
}

func badArgument(param, value, format string, args ...any) *BadArgumentError {
	return &BadArgumentError{Param: param, Value: value, Err: fmt.Errorf(format, args...)}
}

// UserError is a refusal shown to the caller as a titled embed.
type UserError struct {
	Title   string
	Message string
}

func (e *UserError) Error() string {
	return e.Title + ": " + e.Message
}

// AuthError means the caller may not do what they asked. Nothing was
// changed.
type AuthError struct {
	Title   string
	Message string
}

func (e *AuthError) Error() string {
	return e.Title + ": " + e.Message
}

var errMissingPermissions = &AuthError{
	Title:   "❌ Missing Permissions",
	Message: "You don't have the required permissions to use this command!",
}

func hierarchyError(verb string) *AuthError {
	return &AuthError{
		Title:   "❌ Error",
		Message: fmt.Sprintf("You cannot %s someone with a higher or equal role!", verb),
	}
}

// errorEmbed renders err for the invocation that produced it.
func errorEmbed(inv *Invocation, err error) platform.Embed {
	embed := platform.Embed{Color: colorRed}
	var (
		missing *MissingArgumentError
		bad     *BadArgumentError
		auth    *AuthError
		user    *UserError
	)
	switch {
	case errors.As(err, &missing):
		embed.Title = "❌ Missing Argument"
		embed.Description = fmt.Sprintf("The command `%s` is missing the argument: `%s`", inv.Command.Name, missing.Param)
		embed.Fields = append(embed.Fields, field("Correct Usage", inv.Command.Usage(inv.Prefix)))
	case errors.As(err, &bad):
		embed.Title = "❌ Invalid Argument"
		embed.Description = bad.Err.Error()
		embed.Fields = append(embed.Fields, field("Correct Usage", inv.Command.Usage(inv.Prefix)))
	case errors.As(err, &auth):
		embed.Title = auth.Title
		embed.Description = auth.Message
	case errors.As(err, &user):
		embed.Title = user.Title
		embed.Description = user.Message
	default:
		embed.Title = "❌ Error"
		embed.Description = err.Error()
	}
	return embed
}

func unknownCommandEmbed(prefix string, suggestions []string) platform.Embed {
	embed := newEmbed("❌ Unknown Command",
		fmt.Sprintf("This command doesn't exist! Use `%scommands` to see all available commands.", prefix),
		colorRed)
	if len(suggestions) > 0 {
		lines := make([]string, 0, len(suggestions))
		for _, s := range suggestions {
			lines = append(lines, "`"+prefix+s+"`")
		}
		embed.Fields = append(embed.Fields, field("Did you mean?", strings.Join(lines, "\n")))
	}
	return embed
}
