package backup

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/net/context"

	"github.com/fuad-daoud/warden/platform"
)

type Step string

const (
	StepDeleteChannel  Step = "delete_channel"
	StepDeleteRole     Step = "delete_role"
	StepCreateRole     Step = "create_role"
	StepCreateCategory Step = "create_category"
	StepCreateChannel  Step = "create_channel"
	StepUpdateGuild    Step = "update_guild"
)

var Steps = []Step{StepDeleteChannel, StepDeleteRole, StepCreateRole, StepCreateCategory, StepCreateChannel, StepUpdateGuild}

type Outcome string

const (
	Succeeded Outcome = "succeeded"
	Failed    Outcome = "failed"
	Skipped   Outcome = "skipped"
)

type ItemResult struct {
	Step    Step
	Name    string
	Outcome Outcome
	Reason  string
}

type Counts struct {
	Succeeded int
	Failed    int
	Skipped   int
}

// Result records every item a restore touched, in order.
type Result struct {
	Items []ItemResult
}

func (r *Result) add(step Step, name string, outcome Outcome, reason string) {
	r.Items = append(r.Items, ItemResult{Step: step, Name: name, Outcome: outcome, Reason: reason})
}

func (r *Result) fail(step Step, name string, err error) {
	r.add(step, name, Failed, err.Error())
}

func (r Result) Counts(step Step) Counts {
	var c Counts
	for _, item := range r.Items {
		if item.Step != step {
			continue
		}
		switch item.Outcome {
		case Succeeded:
			c.Succeeded++
		case Failed:
			c.Failed++
		case Skipped:
			c.Skipped++
		}
	}
	return c
}

func (r Result) Failures() []ItemResult {
	var out []ItemResult
	for _, item := range r.Items {
		if item.Outcome == Failed {
			out = append(out, item)
		}
	}
	return out
}

// Executor rebuilds a guild from a Snapshot. It is not transactional: items
// that fail are recorded and the run moves on, and nothing is rolled back.
type Executor struct {
	client platform.Client
	delay  time.Duration
	log    *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewExecutor(client platform.Client, delay time.Duration, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{client: client, delay: delay, log: log, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Restore replaces the guild's channels (all but keepChannelID) and the
// roles below the bot with the snapshot's. The partial Result is returned
// together with the context error when ctx ends mid-run.
func (e *Executor) Restore(ctx context.Context, guildID, keepChannelID snowflake.ID, snap *Snapshot) (Result, error) {
	var result Result
	log := e.log.With("guild", guildID)

	channels, err := e.client.Channels(ctx, guildID)
	if err != nil {
		return result, fmt.Errorf("reading channels: %w", err)
	}
	roles, err := e.client.Roles(ctx, guildID)
	if err != nil {
		return result, fmt.Errorf("reading roles: %w", err)
	}
	self, err := e.client.SelfMember(ctx, guildID)
	if err != nil {
		return result, fmt.Errorf("reading bot member: %w", err)
	}
	botRank := platform.MemberRank(guildID, *self, roles)

	for _, c := range channels {
		if c.ID == keepChannelID {
			continue
		}
		if err = ctx.Err(); err != nil {
			return result, err
		}
		if err = e.client.DeleteChannel(ctx, c.ID); err != nil {
			log.Warn("could not delete channel", "channel", c.Name, "err", err)
			result.fail(StepDeleteChannel, c.Name, err)
			continue
		}
		result.add(StepDeleteChannel, c.Name, Succeeded, "")
	}

	for _, role := range roles {
		if role.IsDefault(guildID) {
			continue
		}
		if role.Managed {
			result.add(StepDeleteRole, role.Name, Skipped, "managed by an integration")
			continue
		}
		if !botRank.Above(platform.RankOf(role)) {
			result.add(StepDeleteRole, role.Name, Skipped, "not below the bot's highest role")
			continue
		}
		if err = ctx.Err(); err != nil {
			return result, err
		}
		if err = e.client.DeleteRole(ctx, guildID, role.ID); err != nil {
			log.Warn("could not delete role", "role", role.Name, "err", err)
			result.fail(StepDeleteRole, role.Name, err)
			continue
		}
		result.add(StepDeleteRole, role.Name, Succeeded, "")
	}

	// reversed creation is a best-effort approximation of the recorded
	// stacking; roles changed in between are not accounted for
	for i := len(snap.Roles) - 1; i >= 0; i-- {
		if err = ctx.Err(); err != nil {
			return result, err
		}
		if err = e.createRole(ctx, guildID, snap.Roles[i]); err != nil {
			log.Warn("could not create role", "role", snap.Roles[i].Name, "err", err)
			result.fail(StepCreateRole, snap.Roles[i].Name, err)
			continue
		}
		result.add(StepCreateRole, snap.Roles[i].Name, Succeeded, "")
		if err = e.sleep(ctx, e.delay); err != nil {
			return result, err
		}
	}

	if err = e.createChannels(ctx, guildID, snap.Channels, &result); err != nil {
		return result, err
	}

	if err = ctx.Err(); err != nil {
		return result, err
	}
	update := platform.GuildUpdate{Name: &snap.Name}
	if snap.Description != nil && *snap.Description != "" {
		update.Description = snap.Description
	}
	if err = e.client.UpdateGuild(ctx, guildID, update); err != nil {
		result.fail(StepUpdateGuild, snap.Name, err)
	} else {
		result.add(StepUpdateGuild, snap.Name, Succeeded, "")
	}

	log.Info("restore finished",
		"roles", result.Counts(StepCreateRole).Succeeded,
		"channels", result.Counts(StepCreateChannel).Succeeded,
		"failures", len(result.Failures()))
	return result, nil
}

func (e *Executor) createRole(ctx context.Context, guildID snowflake.ID, role Role) error {
	color, err := ParseColor(role.Color)
	if err != nil {
		return err
	}
	_, err = e.client.CreateRole(ctx, guildID, platform.RoleCreate{
		Name:        role.Name,
		Color:       color,
		Permissions: platform.Permissions(role.Permissions),
	})
	return err
}

func (e *Executor) createChannels(ctx context.Context, guildID snowflake.ID, channels []Channel, result *Result) error {
	live, err := e.client.Channels(ctx, guildID)
	if err != nil {
		return fmt.Errorf("reading channels: %w", err)
	}
	categories := map[string]snowflake.ID{}
	for _, c := range live {
		if c.Kind == platform.ChannelKindCategory {
			if _, ok := categories[c.Name]; !ok {
				categories[c.Name] = c.ID
			}
		}
	}
	categoryErrs := map[string]error{}

	for _, channel := range channels {
		if err = ctx.Err(); err != nil {
			return err
		}
		if !channel.Reconstructible() {
			result.add(StepCreateChannel, channel.Name, Skipped, fmt.Sprintf("channel type %q is not restored", channel.Type))
			continue
		}

		var parentID snowflake.ID
		if name := channel.CategoryName(); name != "" {
			if cerr, failed := categoryErrs[name]; failed {
				result.fail(StepCreateChannel, channel.Name, fmt.Errorf("category %s: %w", name, cerr))
				continue
			}
			id, ok := categories[name]
			if !ok {
				created, cerr := e.client.CreateChannel(ctx, guildID, platform.ChannelCreate{Name: name, Kind: platform.ChannelKindCategory})
				if cerr != nil {
					categoryErrs[name] = cerr
					result.fail(StepCreateCategory, name, cerr)
					result.fail(StepCreateChannel, channel.Name, fmt.Errorf("category %s: %w", name, cerr))
					continue
				}
				result.add(StepCreateCategory, name, Succeeded, "")
				id = created.ID
				categories[name] = id
			}
			parentID = id
		}

		_, err = e.client.CreateChannel(ctx, guildID, platform.ChannelCreate{
			Name:     channel.Name,
			Kind:     platform.ChannelKind(channel.Type),
			ParentID: parentID,
		})
		if err != nil {
			e.log.Warn("could not create channel", "channel", channel.Name, "err", err)
			result.fail(StepCreateChannel, channel.Name, err)
			continue
		}
		result.add(StepCreateChannel, channel.Name, Succeeded, "")
		if err = e.sleep(ctx, e.delay); err != nil {
			return err
		}
	}
	return nil
}
