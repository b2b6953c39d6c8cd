package commands

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/context"

	"github.com/fuad-daoud/warden/platform"
)

type DispatcherConfig struct {
	Prefix  string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Dispatcher runs CommandEvents through the registry: lookup, permission
// gate, argument parsing, handler, and error reporting.
type Dispatcher struct {
	registry *Registry
	client   platform.Client
	prefix   string
	timeout  time.Duration
	log      *slog.Logger
}

func NewDispatcher(registry *Registry, client platform.Client, cfg DispatcherConfig) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "+"
	}
	return &Dispatcher{
		registry: registry,
		client:   client,
		prefix:   cfg.Prefix,
		timeout:  cfg.Timeout,
		log:      cfg.Logger,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, event platform.CommandEvent) {
	log := d.log.With("command", event.Name, "guild", event.GuildID, "user", event.Author.ID, "slash", event.Slash)

	descriptor, ok := d.registry.Lookup(event.Name)
	if !ok {
		log.Debug("unknown command")
		embed := unknownCommandEmbed(d.prefix, d.registry.Suggest(event.Name, 3))
		if _, err := event.Responder.Reply(ctx, platform.MessageCreate{Embeds: []platform.Embed{embed}}); err != nil {
			log.Warn("could not answer unknown command", "err", err)
		}
		return
	}

	timeout := d.timeout
	if descriptor.Timeout > 0 {
		timeout = descriptor.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	inv := &Invocation{CommandEvent: event, Command: descriptor, Client: d.client, Prefix: d.prefix}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			incident := uuid.NewString()
			log.Error("command panicked", "incident", incident, "panic", r, "stack", string(debug.Stack()))
			d.report(inv, log, &UserError{
				Title:   "❌ Error",
				Message: fmt.Sprintf("Something went wrong on our side (incident `%s`).", incident),
			})
		}
	}()

	if err := d.run(ctx, inv); err != nil {
		log.Info("command failed", "err", err, "took", time.Since(start))
		d.report(inv, log, err)
		return
	}
	log.Debug("command finished", "took", time.Since(start))
}

func (d *Dispatcher) run(ctx context.Context, inv *Invocation) error {
	if err := inv.Responder.Defer(ctx, inv.Command.Ephemeral); err != nil {
		return fmt.Errorf("acknowledging interaction: %w", err)
	}
	guild, err := d.client.Guild(ctx, inv.GuildID)
	if err != nil {
		return fmt.Errorf("reading guild: %w", err)
	}
	roles, err := d.client.Roles(ctx, inv.GuildID)
	if err != nil {
		return fmt.Errorf("reading roles: %w", err)
	}
	inv.Guild, inv.Roles = guild, roles

	if !Permitted(*guild, inv.Author, roles, inv.Command.Permission) {
		return errMissingPermissions
	}
	if inv.args, err = parseArgs(inv.Command, inv.CommandEvent); err != nil {
		return err
	}
	return inv.Command.Handler(ctx, inv)
}

// report answers with the rendered error on a fresh context, since the
// invocation's own may be what expired.
func (d *Dispatcher) report(inv *Invocation, log *slog.Logger, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	create := platform.MessageCreate{Embeds: []platform.Embed{errorEmbed(inv, err)}, Ephemeral: inv.Command.Ephemeral}
	if _, rerr := inv.Responder.Reply(ctx, create); rerr != nil {
		log.Warn("could not report command error", "err", rerr, "cause", err)
	}
}
